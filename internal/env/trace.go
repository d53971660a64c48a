package env

import "log/slog"

// Option configures an Environment.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes scope tracing to l at debug level. Without it the
// environment logs nowhere.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
