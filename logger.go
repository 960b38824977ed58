package pulsekit

import (
	"fmt"
	"log"
)

// Logger is the SDK's internal diagnostic sink. It is independent of the
// user error callback: failures are always logged here, and additionally
// dispatched to Config.OnError when one is registered.
type Logger interface {
	Info(msg string, values ...LogValue)
	Error(msg string, err error, values ...LogValue)
}

// LogValue represents a key:value pair in a log line.
type LogValue struct {
	Name  string
	Value interface{}
}

func (v LogValue) String() string {
	return fmt.Sprintf(" %s=%v", v.Name, v.Value)
}

// StdLogger implements the Logger interface using the standard library logger.
type StdLogger struct {
	Logger *log.Logger
}

func (l *StdLogger) Info(msg string, values ...LogValue) {
	l.Logger.Print(l.format(msg, values...))
}

func (l *StdLogger) Error(msg string, err error, values ...LogValue) {
	l.Logger.Print(l.format(msg, values...) + " error=" + err.Error())
}

func (l *StdLogger) format(msg string, values ...LogValue) string {
	for _, v := range values {
		msg += v.String()
	}
	return msg
}

// NopLogger discards all messages. It is the default: telemetry must never
// write to the host application's output unless asked to.
type NopLogger struct{}

func (NopLogger) Info(msg string, values ...LogValue)             {}
func (NopLogger) Error(msg string, err error, values ...LogValue) {}
