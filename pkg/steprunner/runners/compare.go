package runners

import (
	"fmt"
	"reflect"
	"strings"
)

// matchSubset reports whether actual contains everything expected does. Maps
// match key by key; with allowAdditional false they must not carry extra
// keys. Arrays match element-wise by index and, with allowAdditional false,
// must be the same length. The returned path points at the first mismatch.
func matchSubset(expected, actual any, allowAdditional bool) (bool, string) {
	return matchAt(expected, actual, allowAdditional, "")
}

func matchAt(expected, actual any, allowAdditional bool, path string) (bool, string) {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false, pathOrRoot(path)
		}
		if !allowAdditional && len(a) != len(e) {
			for k := range a {
				if _, ok := e[k]; !ok {
					return false, joinPath(path, k)
				}
			}
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok {
				return false, joinPath(path, k)
			}
			if ok, p := matchAt(ev, av, allowAdditional, joinPath(path, k)); !ok {
				return false, p
			}
		}
		return true, ""
	case []any:
		a, ok := actual.([]any)
		if !ok {
			return false, pathOrRoot(path)
		}
		if len(a) < len(e) || (!allowAdditional && len(a) != len(e)) {
			return false, pathOrRoot(path)
		}
		for i, ev := range e {
			p := joinPath(path, fmt.Sprint(i))
			if ok, p := matchAt(ev, a[i], allowAdditional, p); !ok {
				return false, p
			}
		}
		return true, ""
	default:
		if scalarEqual(expected, actual) {
			return true, ""
		}
		return false, pathOrRoot(path)
	}
}

// scalarEqual compares leaf values, treating all numeric types alike since
// YAML decodes ints and JSON decodes float64.
func scalarEqual(expected, actual any) bool {
	if ef, ok := toFloat(expected); ok {
		af, ok := toFloat(actual)
		return ok && ef == af
	}
	return reflect.DeepEqual(expected, actual)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}

// headersMatch checks expected headers case-insensitively by name and
// exactly by value.
func headersMatch(expected map[string]string, actual map[string]string) (bool, string) {
	lower := make(map[string]string, len(actual))
	for k, v := range actual {
		lower[strings.ToLower(k)] = v
	}
	for k, v := range expected {
		if got, ok := lower[strings.ToLower(k)]; !ok || got != v {
			return false, k
		}
	}
	return true, ""
}
