package adapters

import (
	"context"
	"fmt"

	apperrors "crossquery/internal/common/errors"
	"crossquery/internal/models"
)

const (
	LinearService        = "linear"
	LinearAPIKeyEnv      = "LINEAR_API_KEY"
	LinearDefaultBaseURL = "https://api.linear.app"
	linearGraphQLPath    = "/graphql"
)

// Linear talks to the Linear issue tracker's GraphQL API. Linear expects the
// personal API key as the raw Authorization value, without a scheme.
type Linear struct {
	backend
}

func NewLinear(opts Options) (*Linear, error) {
	b, err := newBackend(LinearService, LinearDefaultBaseURL, opts)
	if err != nil {
		return nil, err
	}
	return &Linear{backend: b}, nil
}

func (a *Linear) Execute(ctx context.Context, def models.QueryDefinition, params models.ParameterSet) (interface{}, error) {
	apiKey, err := a.credential(LinearAPIKeyEnv)
	if err != nil {
		return nil, err
	}
	if def.Kind() != models.QueryTypeGraphQL {
		return nil, apperrors.NewRequestBuildError(a.service, fmt.Errorf("linear supports graphql definitions only, got %q", def.Kind()))
	}

	desc, err := BuildGraphQLRequest(a.endpoint, linearGraphQLPath, def, params, a.environment, map[string]string{
		"Authorization": apiKey,
		"Content-Type":  "application/json",
	})
	if err != nil {
		return nil, apperrors.NewRequestBuildError(a.service, err)
	}
	return a.send(ctx, desc)
}
