package runners

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arnavsurve/specrun/pkg/core"
	"github.com/arnavsurve/specrun/pkg/types"
)

// NormalizeURL prefixes a root-relative URL with origin and gives scheme-less
// URLs https.
func NormalizeURL(raw, origin string) (string, error) {
	if strings.HasPrefix(raw, "/") {
		if origin == "" {
			return "", fmt.Errorf("relative URL %q needs an origin, but no origin is configured", raw)
		}
		base, err := NormalizeURL(origin, "")
		if err != nil {
			return "", err
		}
		return strings.TrimRight(base, "/") + raw, nil
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw, nil
	}
	return raw, nil
}

// originFor picks the origin for relative URLs: the step's own, then the
// named API's (spec before run config), then the run config's.
func originFor(execCtx types.ExecutionContext, stepOrigin, apiName string) string {
	if stepOrigin != "" {
		return stepOrigin
	}
	if apiName != "" {
		if api, ok := execCtx.Spec.API(apiName); ok && api.Origin != "" {
			return api.Origin
		}
		if execCtx.Config != nil {
			if api, ok := execCtx.Config.API(apiName); ok && api.Origin != "" {
				return api.Origin
			}
		}
	}
	if execCtx.Config != nil {
		return execCtx.Config.Origin
	}
	return ""
}

// isRegexPattern reports whether s is written as /pattern/.
func isRegexPattern(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/")
}

// compileMatcher turns a literal or /regex/ expectation into a predicate.
// Literals match as substrings.
func compileMatcher(expected string) (func(string) bool, error) {
	if isRegexPattern(expected) {
		re, err := regexp.Compile(expected[1 : len(expected)-1])
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", expected, err)
		}
		return re.MatchString, nil
	}
	return func(s string) bool { return strings.Contains(s, expected) }, nil
}

// variableCapture sets a variable from a step's output, either from the first
// regex group (or whole match) or from a dotted path into the outputs.
type variableCapture struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex,omitempty"`
	Path  string `yaml:"path,omitempty"`
}

func validateCaptures(action, stepID string, captures []variableCapture) error {
	for i, c := range captures {
		if c.Name == "" {
			return fmt.Errorf("%s step %q: setVariables[%d] must define 'name'", action, stepID, i)
		}
		if c.Regex == "" && c.Path == "" {
			return fmt.Errorf("%s step %q: setVariables[%d] must define 'regex' or 'path'", action, stepID, i)
		}
		if c.Regex != "" {
			if _, err := regexp.Compile(c.Regex); err != nil {
				return fmt.Errorf("%s step %q: setVariables[%d] has invalid regex: %w", action, stepID, i, err)
			}
		}
	}
	return nil
}

// applyCaptures writes captured values into vars and returns the names that
// could not be captured.
func applyCaptures(captures []variableCapture, text string, outputs map[string]any, vars types.Variables) []string {
	var missing []string
	for _, c := range captures {
		var (
			val string
			ok  bool
		)
		if c.Regex != "" {
			if m := regexp.MustCompile(c.Regex).FindStringSubmatch(text); m != nil {
				val, ok = m[0], true
				if len(m) > 1 {
					val = m[1]
				}
			}
		} else if v, found := core.LookupPath(outputs, c.Path); found {
			val, ok = stringify(v), true
		}
		if !ok || vars == nil {
			missing = append(missing, c.Name)
			continue
		}
		vars.Set(c.Name, val)
	}
	return missing
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// withWarning downgrades a passing result to WARNING.
func withWarning(result types.StepResult, format string, a ...any) types.StepResult {
	if result.Status == types.StatusPass || result.Status == types.StatusWarning {
		result.Status = types.StatusWarning
		result.Description = strings.TrimSpace(result.Description + " " + fmt.Sprintf(format, a...))
	}
	return result
}
