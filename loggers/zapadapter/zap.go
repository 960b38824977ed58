// Package zapadapter adapts a zap logger to the pulsekit Logger interface.
package zapadapter

import (
	pulsekit "github.com/pulsekit/pulsekit-go"
	"go.uber.org/zap"
)

// Logger wraps a zap.Logger.
type Logger struct {
	Logger *zap.Logger
}

func (l *Logger) Info(msg string, values ...pulsekit.LogValue) {
	l.Logger.Info(msg, fields(values...)...)
}

func (l *Logger) Error(msg string, err error, values ...pulsekit.LogValue) {
	l.Logger.Error(msg, append(fields(values...), zap.Error(err))...)
}

func fields(values ...pulsekit.LogValue) []zap.Field {
	out := make([]zap.Field, 0, len(values))
	for _, v := range values {
		out = append(out, zap.Any(v.Name, v.Value))
	}
	return out
}
