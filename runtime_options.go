package kestrel

import "github.com/rs/zerolog"

type Option interface {
	apply(*options)
}

type options struct {
	config  Config
	logger  zerolog.Logger
	signal  ErrorSignaler
	coercer Coercer
	hook    EngineHook
}

func defaultOptions() options {
	return options{
		config:  DefaultConfig(),
		logger:  zerolog.Nop(),
		signal:  panicSignaler{},
		coercer: defaultCoercer{},
	}
}

type funcOption struct {
	f func(*options)
}

func (fdo *funcOption) apply(do *options) {
	fdo.f(do)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithConfig replaces the engine limits. The config is not validated here;
// use Config.Validate or ParseConfig.
func WithConfig(cfg Config) Option {
	return newFuncOption(func(o *options) {
		o.config = cfg
	})
}

func WithLogger(logger zerolog.Logger) Option {
	return newFuncOption(func(o *options) {
		o.logger = logger
	})
}

// WithErrorSignaler sets how failures of throwing operations are raised.
// The default panics with *PropertyError (see Engine.Try).
func WithErrorSignaler(s ErrorSignaler) Option {
	return newFuncOption(func(o *options) {
		o.signal = s
	})
}

func WithCoercer(c Coercer) Option {
	return newFuncOption(func(o *options) {
		o.coercer = c
	})
}

func WithHook(h EngineHook) Option {
	return newFuncOption(func(o *options) {
		o.hook = h
	})
}
