package log

import "context"

type ctxKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the Logger stored in ctx, or Nop if there is none.
func FromContext(ctx context.Context) Logger { return FromContextOr(ctx, Nop()) }

// FromContextOr returns the Logger stored in ctx, or def if there is none.
func FromContextOr(ctx context.Context, def Logger) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(Logger); ok && l != nil {
			return l
		}
	}
	if def == nil {
		return Nop()
	}
	return def
}
