package sinks

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arnavsurve/specrun/pkg/log"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/fatih/color"
)

var levelColors = map[types.Level]*color.Color{
	types.DebugLevel: color.New(color.FgCyan),
	types.InfoLevel:  color.New(color.FgGreen),
	types.WarnLevel:  color.New(color.FgYellow),
	types.ErrorLevel: color.New(color.FgRed, color.Bold),
}

// ConsoleSink prints one colored line per event at or above minLevel.
type ConsoleSink struct {
	out      io.Writer
	minLevel types.Level
}

func NewConsoleSink(out io.Writer, minLevel types.Level) *ConsoleSink {
	return &ConsoleSink{out: out, minLevel: minLevel}
}

func (c *ConsoleSink) Write(event *log.LogEvent) error {
	if event.Level < c.minLevel {
		return nil
	}

	level := strings.ToUpper(event.Level.String())
	if lc, ok := levelColors[event.Level]; ok {
		level = lc.Sprint(level)
	}
	prefix := fmt.Sprintf("[%s %s] %s: ", level, event.Timestamp.Format(time.RFC3339), color.CyanString(scope(event)))

	_, err := fmt.Fprintln(c.out, prefix+body(event))
	return err
}

// scope is the innermost of step, test and spec on the event.
func scope(event *log.LogEvent) string {
	for _, key := range []string{"step_id", "test_id", "spec_id"} {
		if v := event.Field(key); v != "" {
			return v
		}
	}
	return "run"
}

// body renders subprocess output lines with their origin, then falls back to
// the message and error, then to the raw fields.
func body(event *log.LogEvent) string {
	source := event.Field("source")
	if line := event.Field("shell_line"); line != "" && source != "" {
		return fmt.Sprintf("[shell/%s]: %s", color.BlueString(source), line)
	}
	if line := event.Field("server_line"); line != "" && source != "" {
		return fmt.Sprintf("[server/%s]: %s", color.BlueString(source), line)
	}

	msg, errMsg := event.Message, event.Field("error")
	switch {
	case msg != "" && errMsg != "":
		return msg + ": " + errMsg
	case msg != "" || errMsg != "":
		return msg + errMsg
	}
	raw, _ := json.Marshal(event.Fields)
	return string(raw)
}

func (c *ConsoleSink) Close() error { return nil }
