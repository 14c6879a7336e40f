package security

import (
	"sort"
	"strings"

	"github.com/arnavsurve/specrun/pkg/types"
)

const mask = "********"

// Redactor masks secret values in log output. Secrets holds fixed values;
// names are looked up in vars on every call so values loaded mid-run by a
// step are masked too.
type Redactor struct {
	Secrets []string

	names []string
	vars  types.Variables
}

// NewRedactor masks the values of the variables called names.
func NewRedactor(names []string, vars types.Variables) *Redactor {
	r := &Redactor{names: names, vars: vars}
	if len(names) > 0 && vars != nil {
		r.Secrets = r.lookup()
	}
	return r
}

func (r *Redactor) lookup() []string {
	var values []string
	if r.vars == nil {
		return values
	}
	for _, name := range r.names {
		if val, ok := r.vars.Get(name); ok && val != "" {
			values = append(values, val)
		}
	}
	return values
}

// Redact masks every known secret in s. Longer secrets win, so a secret
// containing another is masked whole.
func (r *Redactor) Redact(s string) string {
	if r == nil {
		return s
	}

	secrets := append(append([]string(nil), r.Secrets...), r.lookup()...)
	sort.Slice(secrets, func(i, j int) bool {
		return len(secrets[i]) > len(secrets[j])
	})

	pairs := make([]string, 0, 2*len(secrets))
	for _, secret := range secrets {
		if secret != "" {
			pairs = append(pairs, secret, mask)
		}
	}
	if len(pairs) == 0 {
		return s
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// RedactValue walks decoded JSON and masks secrets in every string it holds.
// Maps and slices are rewritten in place.
func (r *Redactor) RedactValue(v any) any {
	switch typed := v.(type) {
	case string:
		return r.Redact(typed)
	case map[string]any:
		for k, inner := range typed {
			typed[k] = r.RedactValue(inner)
		}
		return typed
	case []any:
		for i, inner := range typed {
			typed[i] = r.RedactValue(inner)
		}
		return typed
	default:
		return v
	}
}
