package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arnavsurve/specrun/pkg/core"
	"github.com/arnavsurve/specrun/pkg/metrics"
	"github.com/arnavsurve/specrun/pkg/report"
	"github.com/arnavsurve/specrun/pkg/security"
	"github.com/arnavsurve/specrun/pkg/session"
	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/arnavsurve/specrun/pkg/webdriver"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	// Ensure all runner implementations are initialized
	_ "github.com/arnavsurve/specrun/pkg/steprunner/runners"
)

var ErrRunFailed = errors.New("run failed")

type RunCmd struct {
	Specs       []string `arg:"" help:"Spec files to run." type:"existingfile"`
	Config      string   `help:"The run config file." short:"c" default:"specrun.yml"`
	Env         string   `help:"Dotenv file loaded into the process environment." default:".env"`
	Output      string   `help:"Where to write the JSON run report. Defaults to <log-dir>/<run id>.report.json."`
	MetricsFile string   `help:"Write run metrics in Prometheus text format to this file."`
	LogDir      string   `help:"Directory for JSON log files." default:".specrun/logs"`
	Verbose     bool     `help:"Show debug output on the console." short:"v"`
}

func (r *RunCmd) Run() error {
	runID := uuid.New().String()

	cmdLogger, logRouter, logFilePath, err := newLogger(runID, r.LogDir, r.Verbose)
	if err != nil {
		return err
	}
	defer func() {
		if err := logRouter.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during log shutdown: %v\n", err)
		}
	}()

	cmdLogger.Info().Msgf("Starting run with ID: %s", runID)
	if logFilePath != "" {
		cmdLogger.Info().Msgf("Logs will be saved to %q", logFilePath)
	}

	if err := godotenv.Load(r.Env); err != nil {
		cmdLogger.Debug().Err(err).Msgf("No %s file loaded, relying on the existing environment", r.Env)
	}

	cfg, err := loadConfig(r.Config)
	if err != nil {
		cmdLogger.Error().Err(err).Msg("Failed to load run config")
		return err
	}

	vars := core.NewVarStore(nil)
	if cfg.EnvFile != "" {
		names, err := vars.LoadEnvFile(cfg.EnvFile)
		if err != nil {
			cmdLogger.Error().Err(err).Msg("Failed to load env file from run config")
			return err
		}
		cmdLogger.Debug().Int("count", len(names)).Msgf("Loaded variables from %s", cfg.EnvFile)
	}
	logRouter.SetRedactor(security.NewRedactor(cfg.Secrets, vars))

	// Step payloads are validated at dispatch, where an invalid one fails only
	// its own step and variables set by earlier steps are known.
	specs, err := core.LoadSpecsFromFiles(r.Specs)
	if err != nil {
		cmdLogger.Error().Err(err).Msg("Failed to load specs")
		return err
	}
	cmdLogger.Info().Msgf("Loaded %d spec(s)", len(specs))

	server := session.NewServerManager(cfg.AutomationServer, cmdLogger)
	driver := webdriver.NewClient(cfg.AutomationServer.URL, cmdLogger)
	sessions := session.NewManager(driver, server, cmdLogger)

	registry := prometheus.NewRegistry()
	engine := core.NewEngine(cfg, cmdLogger, sessions)
	engine.Vars = vars
	engine.RunID = runID
	engine.Observer = metrics.NewRecorder(registry)

	runReport, err := engine.Run(context.Background(), specs)
	if err != nil {
		cmdLogger.Error().Err(err).Msg("Run aborted")
		return err
	}

	fmt.Print(report.FormatSummary(runReport))

	output := r.Output
	if output == "" {
		output = defaultReportPath(r.LogDir, runID)
	}
	if err := report.WriteJSON(output, runReport); err != nil {
		cmdLogger.Error().Err(err).Msg("Failed to write run report")
		return err
	}
	cmdLogger.Info().Msgf("Report written to %q", output)

	if r.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(r.MetricsFile, registry); err != nil {
			cmdLogger.Error().Err(err).Msg("Failed to write metrics file")
			return fmt.Errorf("writing metrics file %q: %w", r.MetricsFile, err)
		}
		cmdLogger.Info().Msgf("Metrics written to %q", r.MetricsFile)
	}

	if runReport.Status == types.StatusFail {
		return fmt.Errorf("%w: %d of %d step(s) failed", ErrRunFailed, runReport.Summary.Steps.Fail, runReport.Summary.Steps.Total())
	}
	return nil
}

// loadConfig reads path when it exists. A missing default config file means
// defaults.
func loadConfig(path string) (*types.RunConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return core.LoadRunConfig("")
	}
	return core.LoadRunConfig(path)
}

func defaultReportPath(logDir, runID string) string {
	return filepath.Join(logDir, runID+".report.json")
}
