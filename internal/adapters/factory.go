package adapters

import (
	"fmt"

	"crossquery/internal/models"
)

// NewDefaultRegistry registers the built-in backends. services supplies
// per-backend base URL overrides; unknown service names are ignored here and
// surface as missing adapters when a template references them.
func NewDefaultRegistry(services map[string]models.ServiceConfig, opts Options) (*Registry, error) {
	constructors := map[string]func(Options) (Adapter, error){
		LinearService:  func(o Options) (Adapter, error) { return NewLinear(o) },
		GitHubService:  func(o Options) (Adapter, error) { return NewGitHub(o) },
		CamundaService: func(o Options) (Adapter, error) { return NewCamunda(o) },
	}

	registry := NewRegistry()
	for name, construct := range constructors {
		o := opts
		o.BaseURL = services[name].BaseURL
		a, err := construct(o)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s adapter: %w", name, err)
		}
		registry.Register(a)
	}
	return registry, nil
}
