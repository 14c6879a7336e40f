package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arnavsurve/specrun/pkg/log"
	"github.com/arnavsurve/specrun/pkg/log/sinks"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/rs/zerolog"
)

// newLogger routes zerolog output to the console and, when logDir is set, to
// <logDir>/<runID>.json. The returned router must be closed by the caller.
func newLogger(runID, logDir string, verbose bool) (types.Logger, *log.Router, string, error) {
	minLevel := types.InfoLevel
	if verbose {
		minLevel = types.DebugLevel
	}
	logRouter := log.NewRouter(sinks.NewConsoleSink(os.Stdout, minLevel))

	var logFilePath string
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, nil, "", fmt.Errorf("creating logs directory %q: %w", logDir, err)
		}
		logFilePath = filepath.Join(logDir, fmt.Sprintf("%s.json", runID))
		fileSink, err := sinks.NewFileSink(logFilePath)
		if err != nil {
			return nil, nil, "", fmt.Errorf("creating file log sink: %w", err)
		}
		logRouter.AddSink(fileSink)
	}

	base := zerolog.New(logRouter).With().Timestamp().Str("run_id", runID).Logger()
	return log.NewZerologAdapter(base), logRouter, logFilePath, nil
}
