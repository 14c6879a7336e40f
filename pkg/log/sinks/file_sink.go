package sinks

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arnavsurve/specrun/pkg/log"
)

// FileSink appends every event to a JSON lines file. Writes are buffered
// until Close.
type FileSink struct {
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory for %q: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	return &FileSink{file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (fs *FileSink) Write(event *log.LogEvent) error {
	line := make(map[string]any, len(event.Fields)+3)
	for k, v := range event.Fields {
		line[k] = v
	}
	line["time"] = event.Timestamp
	line["level"] = event.Level.String()
	line["message"] = event.Message

	if err := fs.enc.Encode(line); err != nil {
		return fmt.Errorf("encoding log event: %w", err)
	}
	return nil
}

func (fs *FileSink) Close() error {
	flushErr := fs.buf.Flush()
	if err := fs.file.Close(); err != nil {
		return err
	}
	return flushErr
}
