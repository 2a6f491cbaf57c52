// Package extract pulls the meaningful part out of a decoded response using
// a dotted response path such as "data.viewer.assignedIssues.nodes".
//
// Path syntax:
//
//	""  or "."      the whole payload
//	a.b.c           nested mapping keys
//	items.0.name    numeric segments index into sequences
//	nodes[].title   "[]" maps the rest of the path over every element
//
// A segment marked with "[]" and nothing after it simply returns the
// sequence, so "data.issues.nodes[]" and "data.issues.nodes" agree.
package extract

import (
	"strconv"
	"strings"
)

const arrayMarker = "[]"

// Extract returns the value at path and whether it was found. It never
// panics: nil values, missing keys, wrong shapes and out-of-range indexes
// all end the walk with (nil, false).
func Extract(payload interface{}, path string) (interface{}, bool) {
	path = strings.TrimSpace(path)
	if path == "" || path == "." {
		return payload, true
	}
	return walk(payload, splitPath(path))
}

// Value is Extract without the found flag; a miss is nil.
func Value(payload interface{}, path string) interface{} {
	v, _ := Extract(payload, path)
	return v
}

func splitPath(path string) []string {
	raw := strings.Split(path, ".")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func walk(current interface{}, segments []string) (interface{}, bool) {
	for i, segment := range segments {
		if current == nil {
			return nil, false
		}

		if strings.HasSuffix(segment, arrayMarker) {
			key := strings.TrimSuffix(segment, arrayMarker)
			value := current
			if key != "" {
				var ok bool
				if value, ok = step(current, key); !ok {
					return nil, false
				}
			}
			return mapElements(value, segments[i+1:])
		}

		next, ok := step(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// mapElements applies rest to every element of value. Elements the rest of
// the path does not reach are dropped from the result.
func mapElements(value interface{}, rest []string) (interface{}, bool) {
	if len(rest) == 0 {
		return value, value != nil
	}
	elems, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]interface{}, 0, len(elems))
	for _, elem := range elems {
		if v, found := walk(elem, rest); found {
			out = append(out, v)
		}
	}
	return out, true
}

func step(current interface{}, segment string) (interface{}, bool) {
	switch v := current.(type) {
	case map[string]interface{}:
		next, ok := v[segment]
		return next, ok
	case []interface{}:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil, false
		}
		return v[idx], true
	default:
		return nil, false
	}
}
