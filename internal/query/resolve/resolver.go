// Package resolve substitutes ${NAME} placeholders in query definitions.
//
// Values are the shapes a decoded schema file can hold: scalars, sequences
// ([]interface{}, []string) and mappings (map[string]interface{},
// map[string]string). Resolution is a structural recursion over those
// shapes; anything else is returned untouched.
package resolve

import (
	"fmt"
	"regexp"
	"strconv"

	"crossquery/internal/common/env"
	"crossquery/internal/models"
)

var (
	placeholderPattern = regexp.MustCompile(`\$\{(\w+)\}`)
	wholePattern       = regexp.MustCompile(`^\$\{(\w+)\}$`)
)

// String replaces every placeholder in s. A placeholder takes the caller
// parameter of the same name when present and non-nil, then the environment
// value when set and non-empty; otherwise it is left exactly as written.
func String(s string, params models.ParameterSet, environment env.Provider) string {
	if !placeholderPattern.MatchString(s) {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := token[2 : len(token)-1]
		if v, ok := params[name]; ok && v != nil {
			return FormatValue(v)
		}
		if v := env.Get(environment, name); v != "" {
			return v
		}
		return token
	})
}

// Value resolves placeholders in an arbitrarily nested value. The input is
// never modified; sequences and mappings are rebuilt. A string that is
// exactly one placeholder takes the parameter value with its type, so
// "${limit}" with limit=25 becomes the number 25. Environment values and
// placeholders embedded in longer text always produce strings.
func Value(value interface{}, params models.ParameterSet, environment env.Provider) interface{} {
	switch v := value.(type) {
	case string:
		if m := wholePattern.FindStringSubmatch(v); m != nil {
			if p, ok := params[m[1]]; ok && p != nil {
				return p
			}
		}
		return String(v, params, environment)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = Value(elem, params, environment)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, elem := range v {
			out[i] = String(elem, params, environment)
		}
		return out
	case map[string]interface{}:
		return Map(v, params, environment)
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, elem := range v {
			out[k] = String(elem, params, environment)
		}
		return out
	default:
		return value
	}
}

// Map resolves every value of m, keeping its key set. A nil map stays nil.
func Map(m map[string]interface{}, params models.ParameterSet, environment env.Provider) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, elem := range m {
		out[k] = Value(elem, params, environment)
	}
	return out
}

// Placeholders lists the distinct placeholder names still present in value,
// in first-seen order. Map keys are visited in no particular order.
func Placeholders(value interface{}) []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case string:
			for _, m := range placeholderPattern.FindAllStringSubmatch(t, -1) {
				if !seen[m[1]] {
					seen[m[1]] = true
					names = append(names, m[1])
				}
			}
		case []interface{}:
			for _, elem := range t {
				walk(elem)
			}
		case []string:
			for _, elem := range t {
				walk(elem)
			}
		case map[string]interface{}:
			for _, elem := range t {
				walk(elem)
			}
		case map[string]string:
			for _, elem := range t {
				walk(elem)
			}
		}
	}
	walk(value)
	return names
}

// FormatValue renders a parameter value for substitution into a string.
// Whole floats print without a fractional part, so 42 parsed from JSON
// becomes "42" rather than "4.2e+01".
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}
