package adapters

import (
	"context"
	"fmt"

	apperrors "crossquery/internal/common/errors"
	"crossquery/internal/common/env"
	"crossquery/internal/models"
)

const (
	CamundaService       = "camunda"
	CamundaTokenEnv      = "CAMUNDA_TOKEN"
	CamundaClusterIDEnv  = "CAMUNDA_CLUSTER_ID"
	CamundaRegionEnv     = "CAMUNDA_REGION"
	camundaDefaultRegion = "bru-2"
)

// Camunda queries the Tasklist REST API of a Camunda 8 cluster. The cluster
// id is the workspace identifier: on SaaS it is part of the host path and is
// also offered to definitions as the cluster_id parameter. With an explicit
// base URL (self-managed Tasklist) the cluster id is optional.
type Camunda struct {
	backend
	explicitBaseURL bool
}

func NewCamunda(opts Options) (*Camunda, error) {
	// The SaaS host is only known per run once the region and cluster are
	// read; parse a placeholder so construction still validates overrides.
	b, err := newBackend(CamundaService, "https://tasklist.camunda.io", opts)
	if err != nil {
		return nil, err
	}
	return &Camunda{backend: b, explicitBaseURL: opts.BaseURL != ""}, nil
}

func (a *Camunda) Execute(ctx context.Context, def models.QueryDefinition, params models.ParameterSet) (interface{}, error) {
	token, err := a.credential(CamundaTokenEnv)
	if err != nil {
		return nil, err
	}

	ep := a.endpoint
	clusterID := env.Get(a.environment, CamundaClusterIDEnv)
	if !a.explicitBaseURL {
		if clusterID == "" {
			return nil, apperrors.NewCredentialMissingError(a.service, CamundaClusterIDEnv)
		}
		region := env.GetOrDefault(a.environment, CamundaRegionEnv, camundaDefaultRegion)
		ep = Endpoint{
			Scheme:   "https",
			Host:     fmt.Sprintf("%s.tasklist.camunda.io", region),
			BasePath: "/" + clusterID,
		}
	}

	if def.Kind() != models.QueryTypeREST {
		return nil, apperrors.NewRequestBuildError(a.service, fmt.Errorf("camunda supports rest definitions only, got %q", def.Kind()))
	}

	if clusterID != "" {
		if v, ok := params["cluster_id"]; !ok || v == nil {
			params = params.Merge(models.ParameterSet{"cluster_id": clusterID})
		}
	}

	desc, err := BuildRESTRequest(ep, def, params, a.environment, map[string]string{
		"Authorization": "Bearer " + token,
		"Accept":        "application/json",
		"Content-Type":  "application/json",
	})
	if err != nil {
		return nil, apperrors.NewRequestBuildError(a.service, err)
	}
	return a.send(ctx, desc)
}
