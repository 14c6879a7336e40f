package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/arnavsurve/specrun/pkg/security"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/rs/zerolog"
)

// LogEvent is one decoded, redacted log line as handed to a Sink.
type LogEvent struct {
	Level     types.Level
	Message   string
	Fields    map[string]any
	Timestamp time.Time
}

// Field returns the string value of key, or "" when absent or not a string.
func (e *LogEvent) Field(key string) string {
	s, _ := e.Fields[key].(string)
	return s
}

type Sink interface {
	Write(event *LogEvent) error
	io.Closer
}

// Router is the io.Writer handed to zerolog. Each Write carries one JSON
// encoded event, which is decoded, redacted and fanned out to every sink.
type Router struct {
	mu       sync.Mutex
	sinks    []Sink
	redactor *security.Redactor
}

func NewRouter(sinks ...Sink) *Router {
	return &Router{sinks: sinks}
}

func (r *Router) Write(p []byte) (int, error) {
	evt, err := decodeEvent(p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log router: dropping undecodable line %q: %v\n", p, err)
		return len(p), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.redactor != nil {
		evt.Message = r.redactor.Redact(evt.Message)
		for k, v := range evt.Fields {
			evt.Fields[k] = r.redactor.RedactValue(v)
		}
	}
	for _, sink := range r.sinks {
		if err := sink.Write(evt); err != nil {
			fmt.Fprintf(os.Stderr, "log router: sink write failed: %v\n", err)
		}
	}
	return len(p), nil
}

func decodeEvent(p []byte) (*LogEvent, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return nil, err
	}

	evt := &LogEvent{Level: types.InfoLevel, Timestamp: time.Now()}
	if lvl, ok := raw[zerolog.LevelFieldName].(string); ok {
		evt.Level = types.ParseLevel(lvl)
	}
	if msg, ok := raw[zerolog.MessageFieldName].(string); ok {
		evt.Message = msg
	}
	if ts, ok := raw[zerolog.TimestampFieldName].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			evt.Timestamp = parsed
		}
	}

	delete(raw, zerolog.LevelFieldName)
	delete(raw, zerolog.MessageFieldName)
	delete(raw, zerolog.TimestampFieldName)
	evt.Fields = raw
	return evt, nil
}

func (r *Router) AddSink(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, sink)
}

// SetRedactor installs the redactor applied to every event before it reaches a sink.
func (r *Router) SetRedactor(redactor *security.Redactor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redactor = redactor
}

// Close closes every sink and returns the first error.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
