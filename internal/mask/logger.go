package mask

import (
	"context"

	"github.com/finwise/dataguard/internal/logging"
)

// SafeLogger masks every value argument before handing off to the wrapped
// logger. The message itself is not masked: it is a static string under the
// developer's control, not user data. All diagnostic output in this
// subsystem goes through a SafeLogger.
type SafeLogger struct {
	l logging.Logger
}

var _ logging.Logger = (*SafeLogger)(nil)

func NewSafeLogger(l logging.Logger) *SafeLogger {
	return &SafeLogger{l: l}
}

func (s *SafeLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.Debug(ctx, msg, maskArgs(args)...)
}

func (s *SafeLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.Info(ctx, msg, maskArgs(args)...)
}

func (s *SafeLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.Warn(ctx, msg, maskArgs(args)...)
}

func (s *SafeLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.Error(ctx, msg, maskArgs(args)...)
}

func (s *SafeLogger) With(args ...any) logging.Logger {
	return &SafeLogger{l: s.l.With(maskArgs(args)...)}
}

// maskArgs redacts the value of each key–value pair. Keys are static strings
// chosen by the developer and stay readable.
func maskArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if i%2 == 0 {
			out[i] = a
			continue
		}
		out[i] = Value(a)
	}
	return out
}
