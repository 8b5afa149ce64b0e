package render

import (
	"fmt"
	"regexp"
	"strconv"
)

// LabelFunc maps feature properties to a display string.
type LabelFunc func(properties map[string]any) string

// placeholder captures 1=property name in "{NAME}".
var placeholder = regexp.MustCompile(`\{([^{}]+)\}`)

// CompileLabel builds a LabelFunc from a template with {KEY} placeholders,
// e.g. "{NAMELSAD} ({GEOID})". Missing keys and null values expand to "".
func CompileLabel(tpl string) LabelFunc {
	if tpl == "" {
		return func(map[string]any) string { return "" }
	}

	return func(properties map[string]any) string {
		return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
			key := m[1 : len(m)-1]
			return FormatValue(properties[key])
		})
	}
}

// FormatValue renders a scalar property value for display.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func (s Style) labelFunc() LabelFunc {
	if s.Label != nil {
		return s.Label
	}
	return CompileLabel(s.LabelTemplate)
}
