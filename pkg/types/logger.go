package types

import "time"

// Level is the severity of a log event, independent of the logging backend.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

func (l Level) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel maps a backend level name onto Level. Trace folds into debug,
// fatal and panic into error, anything else into info.
func ParseLevel(name string) Level {
	switch name {
	case "trace", "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error", "fatal", "panic":
		return ErrorLevel
	}
	return InfoLevel
}

// LevelFor is the level a result with status s is reported at.
func LevelFor(s Status) Level {
	switch s {
	case StatusFail:
		return ErrorLevel
	case StatusWarning:
		return WarnLevel
	}
	return InfoLevel
}

type Event interface {
	Msg(msg string)
	Msgf(format string, v ...any)
	Err(err error) Event
	Str(key, value string) Event
	Int(key string, value int) Event
	Bool(key string, value bool) Event
	Dur(key string, d time.Duration) Event
	Interface(key string, value any) Event
}

// LogContext accumulates fields for a child logger.
type LogContext interface {
	Str(key, value string) LogContext
	Int(key string, value int) LogContext
	Interface(key string, value any) LogContext
	Timestamp() LogContext
	Logger() Logger
}

// Logger is what runners, the engine and the session layer log through.
type Logger interface {
	Debug() Event
	Info() Event
	Warn() Event
	Error() Event
	At(level Level) Event
	With() LogContext
}
