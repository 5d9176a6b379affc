package pmemkit

type options struct {
	logger   *Logger
	strategy Strategy
}

// Option configures constructor behavior.
type Option func(*options)

// WithLogger sets the logger used for diagnostics. If nil is passed,
// the process-wide default logger is used.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStrategy pins New to a specific strategy instead of detecting
// the best available one. Pinning an unavailable strategy is a fatal
// capability error, exactly as calling its constructor directly.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

func newOptions(opts ...Option) options {
	o := options{
		logger:   defaultLogger(),
		strategy: StrategyAuto,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
