package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arnavsurve/specrun/pkg/types"
	"gopkg.in/yaml.v3"
)

// LoadRunConfig reads a run config and applies defaults. An empty path
// yields a default config.
func LoadRunConfig(path string) (*types.RunConfig, error) {
	var cfg types.RunConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML from %q: %w", path, err)
		}
		if cfg.EnvFile != "" {
			cfg.EnvFile = ResolvePathFromSpec(filepath.Dir(path), cfg.EnvFile)
		}
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadSpecFromFile reads one spec. JSON is accepted since it is valid YAML.
func LoadSpecFromFile(path string) (*types.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file %q: %w", path, err)
	}

	var spec types.Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing spec YAML from %q: %w", path, err)
	}
	if spec.File == "" {
		spec.File = path
	}
	if spec.ID == "" {
		spec.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := ValidateSpecStructure(&spec); err != nil {
		return nil, fmt.Errorf("invalid spec %q: %w", path, err)
	}
	return &spec, nil
}

func LoadSpecsFromFiles(paths []string) ([]types.Spec, error) {
	specs := make([]types.Spec, 0, len(paths))
	for _, p := range paths {
		spec, err := LoadSpecFromFile(p)
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}
