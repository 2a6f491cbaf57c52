package adapters

import (
	"context"
	"fmt"

	apperrors "crossquery/internal/common/errors"
	"crossquery/internal/models"
)

const (
	GitHubService        = "github"
	GitHubTokenEnv       = "GITHUB_TOKEN"
	GitHubOwnerEnv       = "GITHUB_OWNER"
	GitHubRepoEnv        = "GITHUB_REPO"
	GitHubDefaultBaseURL = "https://api.github.com"
	githubGraphQLPath    = "/graphql"
	githubAPIVersion     = "2022-11-28"
	githubUserAgent      = "crossquery"
)

// githubDefaults maps parameter names to the environment variables that
// supply them when the caller leaves them out.
var githubDefaults = map[string]string{
	"owner": GitHubOwnerEnv,
	"repo":  GitHubRepoEnv,
}

// GitHub serves both GitHub APIs; the definition type picks GraphQL or REST.
type GitHub struct {
	backend
}

func NewGitHub(opts Options) (*GitHub, error) {
	b, err := newBackend(GitHubService, GitHubDefaultBaseURL, opts)
	if err != nil {
		return nil, err
	}
	return &GitHub{backend: b}, nil
}

func (a *GitHub) Execute(ctx context.Context, def models.QueryDefinition, params models.ParameterSet) (interface{}, error) {
	token, err := a.credential(GitHubTokenEnv)
	if err != nil {
		return nil, err
	}

	params = withDefaults(params, a.environment, githubDefaults)
	headers := map[string]string{
		"Authorization":        "Bearer " + token,
		"User-Agent":           githubUserAgent,
		"X-GitHub-Api-Version": githubAPIVersion,
	}

	var desc models.RequestDescription
	switch def.Kind() {
	case models.QueryTypeGraphQL:
		headers["Content-Type"] = "application/json"
		desc, err = BuildGraphQLRequest(a.endpoint, githubGraphQLPath, def, params, a.environment, headers)
	case models.QueryTypeREST:
		headers["Accept"] = "application/vnd.github+json"
		desc, err = BuildRESTRequest(a.endpoint, def, params, a.environment, headers)
	default:
		err = fmt.Errorf("unsupported definition type %q", def.Kind())
	}
	if err != nil {
		return nil, apperrors.NewRequestBuildError(a.service, err)
	}
	return a.send(ctx, desc)
}
