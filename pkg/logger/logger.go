package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Interface -.
type Interface interface {
	Debug(message interface{}, args ...interface{})
	Info(message string, args ...interface{})
	Warn(message string, args ...interface{})
	Error(message interface{}, args ...interface{})
	Fatal(message interface{}, args ...interface{})
}

// Logger -.
type Logger struct {
	logger *zerolog.Logger
}

var _ Interface = (*Logger)(nil)

// New -.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter builds a Logger that writes JSON lines to w.
func NewWithWriter(level string, w io.Writer) *Logger {
	var l zerolog.Level

	switch strings.ToLower(level) {
	case "error":
		l = zerolog.ErrorLevel
	case "warn":
		l = zerolog.WarnLevel
	case "info":
		l = zerolog.InfoLevel
	case "debug":
		l = zerolog.DebugLevel
	default:
		l = zerolog.InfoLevel
	}

	skipFrameCount := 3
	logger := zerolog.New(w).
		Level(l).
		With().
		Timestamp().
		CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + skipFrameCount).
		Logger()

	return &Logger{
		logger: &logger,
	}
}

// Debug -.
func (l *Logger) Debug(message interface{}, args ...interface{}) {
	l.msg(l.logger.Debug(), message, args...)
}

// Info -.
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(l.logger.Info(), message, args...)
}

// Warn -.
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(l.logger.Warn(), message, args...)
}

// Error -.
func (l *Logger) Error(message interface{}, args ...interface{}) {
	l.msg(l.logger.Error(), message, args...)
}

// Fatal -.
func (l *Logger) Fatal(message interface{}, args ...interface{}) {
	l.msg(l.logger.Fatal(), message, args...)
}

func (l *Logger) log(e *zerolog.Event, message string, args ...interface{}) {
	if len(args) == 0 {
		e.Msg(message)
	} else {
		e.Msgf(message, args...)
	}
}

// msg accepts an error as message; the first string arg is then used as context.
func (l *Logger) msg(e *zerolog.Event, message interface{}, args ...interface{}) {
	switch msg := message.(type) {
	case error:
		if len(args) > 0 {
			if where, ok := args[0].(string); ok {
				e = e.Err(msg)
				l.log(e, where, args[1:]...)
				return
			}
		}
		l.log(e, msg.Error(), args...)
	case string:
		l.log(e, msg, args...)
	default:
		l.log(e, fmt.Sprintf("message %v has unknown type %T", message, msg), args...)
	}
}
