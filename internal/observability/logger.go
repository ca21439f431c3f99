package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	base zerolog.Logger
}

func NewLogger(level string) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

func NewLoggerTo(w io.Writer, level string) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return &Logger{base: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// Nop discards everything. Used where a logger is optional.
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

func (l *Logger) Debug(message string, fields map[string]any) {
	l.write(l.base.Debug(), message, fields)
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.write(l.base.Info(), message, fields)
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.write(l.base.Warn(), message, fields)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.write(l.base.Error(), message, fields)
}

func (l *Logger) write(event *zerolog.Event, message string, fields map[string]any) {
	if event == nil {
		return
	}
	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.Msg(message)
}
