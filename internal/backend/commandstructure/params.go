package commandstructure

import (
	"strconv"
	"strings"
)

// GetIntParam extracts an int parameter. Numeric strings are accepted since
// params may come from environment-expanded YAML.
func GetIntParam(params map[string]any, key string, defaultValue int) int {
	val, ok := params[key]
	if !ok {
		return defaultValue
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return defaultValue
}
