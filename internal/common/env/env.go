// Package env is the single read-only seam through which adapters and the
// resolver see process environment values such as credentials.
package env

import "os"

// Provider looks up environment values.
type Provider interface {
	Lookup(name string) (string, bool)
}

// OSProvider reads the real process environment.
type OSProvider struct{}

func (OSProvider) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapProvider serves values from a fixed map. Used by tests and by callers
// that want to pin the environment for a run.
type MapProvider map[string]string

func (m MapProvider) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Get returns the value of name, or "" when unset or empty.
func Get(p Provider, name string) string {
	if p == nil {
		return ""
	}
	v, _ := p.Lookup(name)
	return v
}

// GetOrDefault returns the value of name, or def when unset or empty.
func GetOrDefault(p Provider, name, def string) string {
	if v := Get(p, name); v != "" {
		return v
	}
	return def
}
