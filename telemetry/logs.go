package telemetry

import (
	"log/slog"
)

// Logger is how the timeslider packages report what they are doing. By
// default nothing is written; hosts hand in their own implementation.
type Logger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
	Error(msg string, err error, args ...any)
}

type NOPLogger struct {
}

func (n NOPLogger) Info(msg string, args ...any) {
}
func (n NOPLogger) Debug(msg string, args ...any) {
}
func (n NOPLogger) Error(msg string, err error, args ...any) {
}

// SlogLogger writes through a *slog.Logger. Args are slog key/value pairs.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return SlogLogger{l: l}
}

func (s SlogLogger) Info(msg string, args ...any) {
	s.l.Info(msg, args...)
}
func (s SlogLogger) Debug(msg string, args ...any) {
	s.l.Debug(msg, args...)
}
func (s SlogLogger) Error(msg string, err error, args ...any) {
	s.l.Error(msg, append([]any{"error", err}, args...)...)
}
