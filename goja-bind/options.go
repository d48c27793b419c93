package gojabind

import (
	"github.com/joeycumines/logiface"
)

// bindingOptions holds configuration for a [Binding] instance.
type bindingOptions struct {
	logger *logiface.Logger[logiface.Event]
}

// Option configures a [Binding] instance.
type Option interface {
	applyOption(*bindingOptions) error
}

// optionFunc implements [Option] via a closure.
type optionFunc struct {
	fn func(*bindingOptions) error
}

func (o *optionFunc) applyOption(opts *bindingOptions) error {
	return o.fn(opts)
}

// WithLogger configures the logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionFunc{fn: func(opts *bindingOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveOptions applies the given options to a default [bindingOptions].
func resolveOptions(opts []Option) (*bindingOptions, error) {
	cfg := &bindingOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
