package runners

import (
	"fmt"
	"strings"
)

// specialKeys maps $NAME$ tokens to WebDriver key codes.
var specialKeys = map[string]string{
	"$ENTER$":       "\uE007",
	"$RETURN$":      "\uE006",
	"$TAB$":         "\uE004",
	"$ESCAPE$":      "\uE00C",
	"$BACKSPACE$":   "\uE003",
	"$DELETE$":      "\uE017",
	"$SPACE$":       "\uE00D",
	"$SHIFT$":       "\uE008",
	"$CONTROL$":     "\uE009",
	"$ALT$":         "\uE00A",
	"$META$":        "\uE03D",
	"$ARROW_LEFT$":  "\uE012",
	"$ARROW_UP$":    "\uE013",
	"$ARROW_RIGHT$": "\uE014",
	"$ARROW_DOWN$":  "\uE015",
	"$PAGE_UP$":     "\uE00E",
	"$PAGE_DOWN$":   "\uE00F",
	"$HOME$":        "\uE011",
	"$END$":         "\uE010",
}

// translateKeys joins keys, replacing whole-entry special key tokens and
// tokens embedded in text.
func translateKeys(keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		if code, ok := specialKeys[k]; ok {
			b.WriteString(code)
			continue
		}
		for token, code := range specialKeys {
			k = strings.ReplaceAll(k, token, code)
		}
		b.WriteString(k)
	}
	return b.String()
}

// keysFromValue accepts a string, a list of strings, or a mapping with keys.
func keysFromValue(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		keys := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("keys[%d] must be a string, got %T", i, item)
			}
			keys = append(keys, s)
		}
		return keys, nil
	case map[string]any:
		inner, ok := t["keys"]
		if !ok {
			return nil, fmt.Errorf("mapping must define 'keys'")
		}
		return keysFromValue(inner)
	case nil:
		return nil, fmt.Errorf("no keys given")
	default:
		return nil, fmt.Errorf("keys must be a string or a list of strings, got %T", v)
	}
}
