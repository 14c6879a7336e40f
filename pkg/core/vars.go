package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/arnavsurve/specrun/pkg/types"
	"github.com/joho/godotenv"
)

// VarStore is the run-scoped variable store. Steps write into it; reads fall
// back to the process environment, which is never written.
type VarStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewVarStore(seed map[string]string) *VarStore {
	values := make(map[string]string, len(seed))
	maps.Copy(values, seed)
	return &VarStore{values: values}
}

func (v *VarStore) Get(name string) (string, bool) {
	v.mu.RLock()
	val, ok := v.values[name]
	v.mu.RUnlock()
	if ok {
		return val, true
	}
	return os.LookupEnv(name)
}

func (v *VarStore) Set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[name] = value
}

// Snapshot returns a copy of the values set on the store.
func (v *VarStore) Snapshot() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return maps.Clone(v.values)
}

// LoadEnvFile reads a dotenv file into the store and returns the names it set.
func (v *VarStore) LoadEnvFile(path string) ([]string, error) {
	loaded, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %q: %w", path, err)
	}
	names := make([]string, 0, len(loaded))
	for k, val := range loaded {
		v.Set(k, val)
		names = append(names, k)
	}
	return names, nil
}

// placeholderRe matches {{ name }} and {{ steps.id.outputs.path }}.
var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9\._-]+)\s*\}\}`)

// envRegex matches $NAME and ${NAME} references.
var envRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// mapStrings rebuilds a decoded YAML tree with fn applied to every string leaf.
func mapStrings(node any, fn func(string) (string, error)) (any, error) {
	switch n := node.(type) {
	case string:
		return fn(n)
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, child := range n {
			v, err := mapStrings(child, fn)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	case []any:
		out := make([]any, len(n))
		for i := range n {
			v, err := mapStrings(n[i], fn)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return node, nil
}

// ResolveStepVariables returns a copy of step with every payload string
// resolved against vars and the results of earlier steps.
func ResolveStepVariables(step *types.Step, vars types.Variables, results StepResultsContext) (*types.Step, error) {
	expand := func(s string) (string, error) {
		return ResolveStringWithContext(s, vars, results)
	}

	out := *step
	payload, err := mapStrings(step.Payload, expand)
	if err != nil {
		return nil, fmt.Errorf("step %q payload: %w", step.ID, err)
	}
	if m, ok := payload.(map[string]any); ok {
		out.Payload = m
	}
	if out.Description, err = expand(step.Description); err != nil {
		return nil, fmt.Errorf("step %q description: %w", step.ID, err)
	}
	return &out, nil
}

// ResolveStringWithContext expands {{ }} placeholders, which must resolve,
// then $NAME references, which are left as written when undefined.
func ResolveStringWithContext(input string, vars types.Variables, results StepResultsContext) (string, error) {
	var missing []string
	expanded := placeholderRe.ReplaceAllStringFunc(input, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := lookupReference(name, vars, results)
		if !ok {
			missing = append(missing, name)
			return m
		}
		if s, isStr := v.(string); isStr {
			return s
		}
		return fmt.Sprint(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("undefined variable: %s", strings.Join(missing, ", "))
	}
	return expandEnvRefs(expanded, vars), nil
}

// expandEnvRefs replaces $NAME and ${NAME}. A bare reference followed by
// another '$' is a special key such as $ENTER$ and is left alone.
func expandEnvRefs(input string, vars types.Variables) string {
	if vars == nil || !strings.Contains(input, "$") {
		return input
	}

	var b strings.Builder
	last := 0
	for _, loc := range envRegex.FindAllStringSubmatchIndex(input, -1) {
		start, end := loc[0], loc[1]
		var name string
		if loc[2] >= 0 {
			name = input[loc[2]:loc[3]]
		} else {
			name = input[loc[4]:loc[5]]
			if end < len(input) && input[end] == '$' {
				continue
			}
		}
		val, ok := vars.Get(name)
		if !ok {
			continue
		}
		b.WriteString(input[last:start])
		b.WriteString(val)
		last = end
	}
	b.WriteString(input[last:])
	return b.String()
}

// lookupReference resolves a placeholder name. steps.<id>.outputs.<path>,
// steps.<id>.status and steps.<id>.description read earlier results; any
// other name is a variable. A ".json" suffix yields the value JSON encoded.
func lookupReference(name string, vars types.Variables, results StepResultsContext) (any, bool) {
	name, asJSON := strings.CutSuffix(name, ".json")

	v, ok := stepReference(name, results)
	if !strings.HasPrefix(name, "steps.") && vars != nil {
		v, ok = vars.Get(name)
	}
	if !ok || !asJSON {
		return v, ok
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return string(encoded), true
}

func stepReference(name string, results StepResultsContext) (any, bool) {
	rest, isStep := strings.CutPrefix(name, "steps.")
	if !isStep {
		return nil, false
	}
	id, field, _ := strings.Cut(rest, ".")
	result, ok := results[id]
	if !ok {
		return nil, false
	}

	switch field {
	case "status":
		return string(result.Status), true
	case "description":
		return result.Description, true
	case "outputs":
		return result.Outputs, result.Outputs != nil
	}
	if path, isOutput := strings.CutPrefix(field, "outputs."); isOutput {
		return LookupPath(result.Outputs, path)
	}
	return nil, false
}

// LookupPath walks maps and slices along a dotted path of keys and indexes.
// An empty path returns data itself.
func LookupPath(data any, path string) (any, bool) {
	if path == "" {
		return data, data != nil
	}

	cur := data
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case map[string]string:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
