package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZeroLogger writes JSON lines through zerolog. Each instance owns its
// logger, so children created by With never affect the parent.
type ZeroLogger struct {
	zl   zerolog.Logger
	exit func(int)
}

// NewZeroLogger returns a logger writing to writer at level, stamping
// defaultFields and a timestamp on every line.
func NewZeroLogger(writer io.Writer, level Level, defaultFields Fields) *ZeroLogger {
	zl := zerolog.New(writer).With().Timestamp().Fields(map[string]interface{}(defaultFields)).Logger()
	return &ZeroLogger{zl: zl.Level(toZerolog(level)), exit: os.Exit}
}

func (l *ZeroLogger) Info(message string, properties map[string]interface{}) {
	l.zl.Info().Fields(properties).Msg(message)
}

func (l *ZeroLogger) Error(err error, properties map[string]interface{}) {
	l.zl.Error().Fields(properties).Err(err).Msg(err.Error())
}

// Fatal logs at fatal level and exits the process with status 1.
func (l *ZeroLogger) Fatal(err error, properties map[string]interface{}) {
	l.zl.WithLevel(zerolog.FatalLevel).Fields(properties).Err(err).Msg(err.Error())
	l.exit(1)
}

func (l *ZeroLogger) Debug(message string, properties map[string]interface{}) {
	l.zl.Debug().Fields(properties).Msg(message)
}

func (l *ZeroLogger) SetLevel(level Level) {
	l.zl = l.zl.Level(toZerolog(level))
}

func (l *ZeroLogger) With(fields Fields) Logger {
	return &ZeroLogger{zl: l.zl.With().Fields(map[string]interface{}(fields)).Logger(), exit: l.exit}
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelFatal:
		return zerolog.FatalLevel
	case LevelOff:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
