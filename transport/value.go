package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FormatValue renders a decoded JSON value as an environment variable value.
// Null is empty, numbers keep their literal form, and objects and arrays are
// re-encoded as JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

// FormatMap applies FormatValue to every value of m.
func FormatMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for key, value := range m {
		out[key] = FormatValue(value)
	}
	return out
}
