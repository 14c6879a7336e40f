package log

import (
	"time"

	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/rs/zerolog"
)

var zerologLevels = map[types.Level]zerolog.Level{
	types.DebugLevel: zerolog.DebugLevel,
	types.InfoLevel:  zerolog.InfoLevel,
	types.WarnLevel:  zerolog.WarnLevel,
	types.ErrorLevel: zerolog.ErrorLevel,
}

// Adapter is a types.Logger backed by zerolog.
type Adapter struct {
	zl zerolog.Logger
}

func NewZerologAdapter(zl zerolog.Logger) *Adapter {
	return &Adapter{zl: zl}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Adapter {
	return &Adapter{zl: zerolog.Nop()}
}

func (a *Adapter) Debug() types.Event { return a.At(types.DebugLevel) }

func (a *Adapter) Info() types.Event { return a.At(types.InfoLevel) }

func (a *Adapter) Warn() types.Event { return a.At(types.WarnLevel) }

func (a *Adapter) Error() types.Event { return a.At(types.ErrorLevel) }

// At starts an event at level. Unknown levels log at info.
func (a *Adapter) At(level types.Level) types.Event {
	zl, ok := zerologLevels[level]
	if !ok {
		zl = zerolog.InfoLevel
	}
	return event{e: a.zl.WithLevel(zl)}
}

func (a *Adapter) With() types.LogContext {
	return fields{c: a.zl.With()}
}

// event wraps a possibly nil *zerolog.Event; zerolog treats nil as disabled.
type event struct {
	e *zerolog.Event
}

func (ev event) Msg(msg string) { ev.e.Msg(msg) }

func (ev event) Msgf(format string, v ...any) { ev.e.Msgf(format, v...) }

func (ev event) Err(err error) types.Event { return event{e: ev.e.Err(err)} }

func (ev event) Str(key, value string) types.Event { return event{e: ev.e.Str(key, value)} }

func (ev event) Int(key string, value int) types.Event { return event{e: ev.e.Int(key, value)} }

func (ev event) Bool(key string, value bool) types.Event { return event{e: ev.e.Bool(key, value)} }

func (ev event) Dur(key string, d time.Duration) types.Event { return event{e: ev.e.Dur(key, d)} }

func (ev event) Interface(key string, value any) types.Event {
	return event{e: ev.e.Interface(key, value)}
}

type fields struct {
	c zerolog.Context
}

func (f fields) Str(key, value string) types.LogContext { return fields{c: f.c.Str(key, value)} }

func (f fields) Int(key string, value int) types.LogContext { return fields{c: f.c.Int(key, value)} }

func (f fields) Interface(key string, value any) types.LogContext {
	return fields{c: f.c.Interface(key, value)}
}

func (f fields) Timestamp() types.LogContext { return fields{c: f.c.Timestamp()} }

func (f fields) Logger() types.Logger { return &Adapter{zl: f.c.Logger()} }
