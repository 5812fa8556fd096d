package recwire

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// checkConstraints enforces a field's constraint set against an
// already-converted value. Numeric bounds apply to int and float
// values, length bounds to strings (counted in codepoints), byte
// strings, sequences and mappings. All bounds are inclusive. Absent
// optional values are exempt.
func checkConstraints(v any, cs Constraints, path string) error {
	if v == nil || cs.empty() {
		return nil
	}
	switch x := v.(type) {
	case int64:
		if cs.minValue != nil && float64(x) < *cs.minValue {
			return &ValidationError{Path: path, Rule: RuleMinValue,
				Msg: fmt.Sprintf("value %d below minimum %s", x, formatBound(*cs.minValue))}
		}
		if cs.maxValue != nil && float64(x) > *cs.maxValue {
			return &ValidationError{Path: path, Rule: RuleMaxValue,
				Msg: fmt.Sprintf("value %d above maximum %s", x, formatBound(*cs.maxValue))}
		}
	case float64:
		if cs.minValue != nil && x < *cs.minValue {
			return &ValidationError{Path: path, Rule: RuleMinValue,
				Msg: fmt.Sprintf("value %s below minimum %s", formatBound(x), formatBound(*cs.minValue))}
		}
		if cs.maxValue != nil && x > *cs.maxValue {
			return &ValidationError{Path: path, Rule: RuleMaxValue,
				Msg: fmt.Sprintf("value %s above maximum %s", formatBound(x), formatBound(*cs.maxValue))}
		}
	case string:
		return checkLength(utf8.RuneCountInString(x), "codepoint", cs, path)
	case []byte:
		return checkLength(len(x), "byte", cs, path)
	case []any:
		return checkLength(len(x), "element", cs, path)
	case map[string]any:
		return checkLength(len(x), "entry", cs, path)
	}
	return nil
}

func checkLength(n int, unit string, cs Constraints, path string) error {
	if cs.minLen != nil && n < *cs.minLen {
		return &ValidationError{Path: path, Rule: RuleMinLength,
			Msg: fmt.Sprintf("length %d below minimum %d %ss", n, *cs.minLen, unit)}
	}
	if cs.maxLen != nil && n > *cs.maxLen {
		return &ValidationError{Path: path, Rule: RuleMaxLength,
			Msg: fmt.Sprintf("length %d above maximum %d %ss", n, *cs.maxLen, unit)}
	}
	return nil
}

// formatBound renders a numeric bound without a trailing ".0" for
// integral values, so messages read "minimum 0" rather than "minimum 0.0".
func formatBound(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// joinPath extends a dotted field path: "" + "user" is "user",
// "profile" + "address" is "profile.address".
func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

// indexPath extends a path with a sequence index: "events" and 1 give
// "events[1]".
func indexPath(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}
