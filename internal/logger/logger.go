package logger

// Fields are structured key/values attached to a log line.
type Fields map[string]interface{}

// Logger is the structured logger threaded through every component.
type Logger interface {
	Info(message string, properties map[string]interface{})
	Error(err error, properties map[string]interface{})
	Fatal(err error, properties map[string]interface{})
	Debug(message string, properties map[string]interface{})
	SetLevel(level Level)
	// With returns a child logger that adds fields to every line.
	With(fields Fields) Logger
}

type Level int8

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelError
	LevelFatal
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelOff:
		return "OFF"
	default:
		return ""
	}
}
