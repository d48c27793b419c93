package registry

import (
	"github.com/joeycumines/logiface"
)

type (
	// Option configures a [Registry], see [New].
	Option interface {
		applyOption(opts *registryOptions) error
	}

	registryOptions struct {
		logger    *logiface.Logger[logiface.Event]
		onCollect func(h *Handle)
	}

	optionFunc struct {
		fn func(opts *registryOptions) error
	}
)

func (o *optionFunc) applyOption(opts *registryOptions) error {
	return o.fn(opts)
}

// WithLogger sets the logger used for lifecycle events. A nil logger
// disables logging, which is also the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionFunc{func(opts *registryOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithCollectHook registers fn to be called after the script engine has
// collected the proxy of a still-registered handle. The handle stays
// registered; the next [Registry.BindProxy] creates a new proxy.
//
// The hook runs on the runtime's cleanup goroutine.
func WithCollectHook(fn func(h *Handle)) Option {
	return &optionFunc{func(opts *registryOptions) error {
		opts.onCollect = fn
		return nil
	}}
}

func resolveOptions(opts []Option) (*registryOptions, error) {
	var cfg registryOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
