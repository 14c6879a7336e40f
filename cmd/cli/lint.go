package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/arnavsurve/specrun/pkg/core"
	"github.com/arnavsurve/specrun/pkg/steprunner"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	// Ensure all runner implementations are initialized
	_ "github.com/arnavsurve/specrun/pkg/steprunner/runners"
)

type LintCmd struct {
	Specs  []string `arg:"" help:"Spec files to validate." type:"existingfile"`
	Config string   `help:"The run config file." short:"c" default:"specrun.yml"`
	Env    string   `help:"Dotenv file loaded into the process environment." default:".env"`
}

func (l *LintCmd) Run() error {
	cmdLogger, logRouter, _, err := newLogger(uuid.New().String(), "", false)
	if err != nil {
		return err
	}
	defer func() {
		if err := logRouter.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during log shutdown: %v\n", err)
		}
	}()

	if err := godotenv.Load(l.Env); err != nil {
		cmdLogger.Debug().Err(err).Msgf("No %s file loaded, relying on the existing environment", l.Env)
	}

	cfg, err := loadConfig(l.Config)
	if err != nil {
		cmdLogger.Error().Err(err).Msg("Failed to load run config")
		return err
	}

	vars := core.NewVarStore(nil)
	if cfg.EnvFile != "" {
		if _, err := vars.LoadEnvFile(cfg.EnvFile); err != nil {
			cmdLogger.Warn().Err(err).Msg("Could not load env file from run config, variables may not resolve")
		}
	}

	var errs []error
	for _, path := range l.Specs {
		specLogger := cmdLogger.With().Str("spec_file", path).Logger()

		spec, err := core.LoadSpecFromFile(path)
		if err != nil {
			specLogger.Error().Err(err).Msg("Spec structure is invalid")
			errs = append(errs, err)
			continue
		}

		if err := core.ValidateSpecRunners(spec, cfg, vars); err != nil {
			specLogger.Error().Err(err).Msg("Step configuration validation failed")
			errs = append(errs, fmt.Errorf("validating spec %q: %w", spec.ID, err))
			continue
		}

		steps := 0
		for _, test := range spec.Tests {
			steps += len(test.Steps)
		}
		specLogger.Info().Msgf("Spec %q is valid (%d test(s), %d step(s))", spec.ID, len(spec.Tests), steps)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	cmdLogger.Info().Msgf("Successfully validated %d spec(s). Known actions: %v", len(l.Specs), steprunner.Actions())
	return nil
}
