package search

import (
	"fmt"
	"regexp"
	"strconv"
)

var multiparameterKey = regexp.MustCompile(`^(.+)\((\d+)([ais]?)\)$`)

// maxMultiparameterPosition bounds the fragment list. Date and time pickers use six.
const maxMultiparameterPosition = 16

// CollapseMultiparameters folds keys such as "created_at_gte(1i)" into a single ordered list
// under "created_at_gte". Missing positions stay nil. The optional suffix coerces a fragment to
// an integer (i), a string (s) or a list (a). Positions outside 1..16 are left as plain keys. The
// input map is not modified.
func CollapseMultiparameters(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	fragments := map[string][]any{}
	for key, value := range params {
		m := multiparameterKey.FindStringSubmatch(key)
		if m == nil {
			if _, collapsed := fragments[key]; !collapsed {
				out[key] = value
			}
			continue
		}
		position, err := strconv.Atoi(m[2])
		if err != nil || position < 1 || position > maxMultiparameterPosition {
			out[key] = value
			continue
		}
		parts := fragments[m[1]]
		for len(parts) < position {
			parts = append(parts, nil)
		}
		parts[position-1] = coerceFragment(m[3], value)
		fragments[m[1]] = parts
		delete(out, m[1])
	}
	for key, parts := range fragments {
		out[key] = parts
	}
	return out
}

func coerceFragment(cast string, value any) any {
	switch cast {
	case "i":
		if !Present(value) {
			return nil
		}
		if n, ok := toInt(value); ok {
			return n
		}
		return nil
	case "s":
		if value == nil {
			return ""
		}
		return fmt.Sprint(value)
	case "a":
		if value == nil {
			return []any{}
		}
		return listOf(value)
	default:
		return value
	}
}
