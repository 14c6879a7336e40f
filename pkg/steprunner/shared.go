package steprunner

import (
	"bufio"
	"io"

	"github.com/arnavsurve/specrun/pkg/types"
)

// LogBuffer streams reader content line by line to a structured logger.
func LogBuffer(r io.Reader, source string, logger types.Logger, logKey string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Info().
			Str("source", source).
			Str(logKey, scanner.Text()).
			Msg("Process output")
	}
}
