package runners

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"github.com/arnavsurve/specrun/pkg/core"
	"github.com/arnavsurve/specrun/pkg/types"
)

// Overwrite policies for persisted output.
const (
	OverwriteTrue        = "true"
	OverwriteFalse       = "false"
	OverwriteByVariation = "byVariation"
)

// persistOptions are the payload keys shared by actions that save output to
// a file and compare it against what was saved before.
type persistOptions struct {
	Path         string   `yaml:"path,omitempty"`
	Directory    string   `yaml:"directory,omitempty"`
	MaxVariation *float64 `yaml:"maxVariation,omitempty"`
	Overwrite    any      `yaml:"overwrite,omitempty"`
}

func (p persistOptions) enabled() bool {
	return p.Path != ""
}

func (p persistOptions) validate(action, stepID string) error {
	if p.MaxVariation != nil && (*p.MaxVariation < 0 || *p.MaxVariation > 1) {
		return fmt.Errorf("%s step %q: 'maxVariation' must be between 0 and 1", action, stepID)
	}
	if _, err := p.policy(); err != nil {
		return fmt.Errorf("%s step %q: %w", action, stepID, err)
	}
	return nil
}

func (p persistOptions) policy() (string, error) {
	switch v := p.Overwrite.(type) {
	case nil:
		return OverwriteFalse, nil
	case bool:
		if v {
			return OverwriteTrue, nil
		}
		return OverwriteFalse, nil
	case string:
		switch v {
		case OverwriteTrue, OverwriteFalse, OverwriteByVariation:
			return v, nil
		}
	}
	return "", fmt.Errorf("'overwrite' must be true, false or %q, got %v", OverwriteByVariation, p.Overwrite)
}

func (p persistOptions) maxVariation(def float64) float64 {
	if p.MaxVariation != nil {
		return *p.MaxVariation
	}
	return def
}

// target resolves the output file: an absolute path is used as is, otherwise
// it lives under directory (or defaultDir), relative to the spec.
func (p persistOptions) target(specDir, defaultDir string) string {
	if filepath.IsAbs(p.Path) {
		return p.Path
	}
	dir := p.Directory
	if dir == "" {
		dir = defaultDir
	}
	return core.ResolvePathFromSpec(specDir, filepath.Join(dir, p.Path))
}

// variationFunc measures how different two versions of a file are, from 0
// (identical) to 1.
type variationFunc func(previous, current []byte) (float64, error)

// persist writes content to path under the overwrite policy. A new file is
// written and passes. An existing file is compared first: beyond
// maxVariation the result is a WARNING and the file is replaced when policy
// is true or byVariation; within it the result passes and the file is only
// replaced when policy is true.
func persist(path string, content []byte, maxVariation float64, policy string, variation variationFunc) (types.StepResult, error) {
	previous, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := writeOutput(path, content); err != nil {
			return types.StepResult{}, err
		}
		return types.Pass("Saved output to %s.", path).WithOutputs(map[string]any{"path": path}), nil
	}
	if err != nil {
		return types.StepResult{}, fmt.Errorf("reading existing output %q: %w", path, err)
	}

	diff, err := variation(previous, content)
	if err != nil {
		return types.StepResult{}, fmt.Errorf("comparing with existing output %q: %w", path, err)
	}

	outputs := map[string]any{"path": path, "variation": diff}
	if diff > maxVariation {
		if policy == OverwriteTrue || policy == OverwriteByVariation {
			if err := writeOutput(path, content); err != nil {
				return types.StepResult{}, err
			}
			return types.Warn("Variation %.4f exceeds %.4f. Replaced %s.", diff, maxVariation, path).WithOutputs(outputs), nil
		}
		return types.Warn("Variation %.4f exceeds %.4f. Kept existing %s.", diff, maxVariation, path).WithOutputs(outputs), nil
	}

	if policy == OverwriteTrue {
		if err := writeOutput(path, content); err != nil {
			return types.StepResult{}, err
		}
		return types.Pass("Variation %.4f is within %.4f. Replaced %s.", diff, maxVariation, path).WithOutputs(outputs), nil
	}
	return types.Pass("Variation %.4f is within %.4f. Kept existing %s.", diff, maxVariation, path).WithOutputs(outputs), nil
}

func writeOutput(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory for %q: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("writing output %q: %w", path, err)
	}
	return nil
}

// textVariation is the edit distance between the texts relative to the
// longer one.
func textVariation(previous, current []byte) (float64, error) {
	a, b := string(previous), string(current)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 0, nil
	}
	return float64(levenshtein.Distance(a, b, nil)) / float64(longest), nil
}

// pixelVariation is the share of pixels that differ. Images of different
// sizes differ completely.
func pixelVariation(previous, current []byte) (float64, error) {
	a, _, err := image.Decode(bytes.NewReader(previous))
	if err != nil {
		return 0, fmt.Errorf("decoding existing image: %w", err)
	}
	b, _, err := image.Decode(bytes.NewReader(current))
	if err != nil {
		return 0, fmt.Errorf("decoding new image: %w", err)
	}

	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 1, nil
	}
	total := ab.Dx() * ab.Dy()
	if total == 0 {
		return 0, nil
	}

	var differing int
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			r1, g1, b1, a1 := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, a2 := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				differing++
			}
		}
	}
	return float64(differing) / float64(total), nil
}
