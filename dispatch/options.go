package dispatch

import (
	"github.com/joeycumines/logiface"
)

// Loop runs tasks on the script thread. It is satisfied by
// *eventloop.Loop from github.com/joeycumines/go-eventloop.
type Loop interface {
	// Submit queues task for execution on the loop goroutine.
	Submit(task func()) error
}

type (
	// Option configures a [Runtime], see [New].
	Option interface {
		applyOption(opts *runtimeOptions) error
	}

	runtimeOptions struct {
		logger        *logiface.Logger[logiface.Event]
		loop          Loop
		listenerError func(err error)
	}

	optionFunc struct {
		fn func(opts *runtimeOptions) error
	}
)

func (o *optionFunc) applyOption(opts *runtimeOptions) error {
	return o.fn(opts)
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionFunc{func(opts *runtimeOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithLoop funnels native-to-script deliveries and handle releases through
// loop. Without a loop, they are queued until [Runtime.Drain].
func WithLoop(loop Loop) Option {
	return &optionFunc{func(opts *runtimeOptions) error {
		opts.loop = loop
		return nil
	}}
}

// WithListenerErrorHandler receives errors returned by event listeners.
// Listener errors never propagate to native code; by default they are
// logged at warning level.
func WithListenerErrorHandler(fn func(err error)) Option {
	return &optionFunc{func(opts *runtimeOptions) error {
		opts.listenerError = fn
		return nil
	}}
}

func resolveOptions(opts []Option) (*runtimeOptions, error) {
	var cfg runtimeOptions
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
