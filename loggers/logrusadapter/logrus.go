// Package logrusadapter adapts a logrus logger to the pulsekit Logger
// interface.
package logrusadapter

import (
	pulsekit "github.com/pulsekit/pulsekit-go"
	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger.
type Logger struct {
	Logger *logrus.Logger
}

func (l *Logger) Info(msg string, values ...pulsekit.LogValue) {
	l.Logger.WithFields(fields(values...)).Info(msg)
}

func (l *Logger) Error(msg string, err error, values ...pulsekit.LogValue) {
	l.Logger.WithError(err).WithFields(fields(values...)).Error(msg)
}

func fields(values ...pulsekit.LogValue) logrus.Fields {
	out := logrus.Fields{}
	for _, v := range values {
		out[v.Name] = v.Value
	}
	return out
}
