// Package e2e runs the shipped templates in configs/ against the real
// backends. Set CROSSQUERY_E2E=1 and the credentials from .env.example.
package e2e

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crossquery/internal/adapters"
	"crossquery/internal/common/config"
	"crossquery/internal/common/env"
	apperrors "crossquery/internal/common/errors"
	httpclient "crossquery/internal/common/http"
	"crossquery/internal/common/logger"
	"crossquery/internal/history"
	"crossquery/internal/models"
	"crossquery/internal/orchestrator"
	"crossquery/pkg/registry"
)

const configPath = "../../configs/config.yaml"

var zapLog *zap.Logger

func TestMain(m *testing.M) {
	if os.Getenv("CROSSQUERY_E2E") == "" {
		// Nothing to talk to; keep `go test ./...` green offline.
		os.Exit(0)
	}
	zapLog, _ = zap.NewDevelopment()
	code := m.Run()
	_ = zapLog.Sync()
	os.Exit(code)
}

type harness struct {
	cfg   *config.Config
	store *registry.Store
	orch  *orchestrator.Orchestrator
	runs  history.Store
}

func setup(t *testing.T) *harness {
	t.Helper()

	cfg, err := config.LoadFromFile(configPath)
	require.NoError(t, err)

	log := logger.NewZapAdapter(zapLog)

	store, err := registry.Load(cfg.Query.TemplatesFile, cfg.Services)
	require.NoError(t, err)

	reg, err := adapters.NewDefaultRegistry(cfg.Services, adapters.Options{
		Sender: httpclient.NewClient(cfg.MaxServiceTimeout(), log),
		Env:    env.OSProvider{},
		Logger: log,
	})
	require.NoError(t, err)
	require.NoError(t, store.Validate(cfg.Services, reg.Services()))

	runs, closeRuns, err := history.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeRuns() })

	orch := orchestrator.New(store, reg, orchestrator.Config{
		Services:       cfg.Services,
		DefaultTimeout: config.GetDuration(cfg.Query.DefaultTimeout),
		MaxConcurrency: cfg.Query.MaxConcurrency,
	}, orchestrator.WithLogger(log), orchestrator.WithRecorder(runs))

	return &harness{cfg: cfg, store: store, orch: orch, runs: runs}
}

// expectedEntries lists the entries of a template that should run.
func (h *harness) expectedEntries(tmpl models.QueryTemplate) []models.TemplateEntry {
	var out []models.TemplateEntry
	for _, e := range tmpl.Queries {
		if h.cfg.IsServiceEnabled(e.Service) {
			out = append(out, e)
		}
	}
	return out
}

// shippedParams fills the parameters the CLI shortcuts normally supply.
func shippedParams() models.ParameterSet {
	return models.ParameterSet{
		"days_ago":     time.Now().UTC().AddDate(0, 0, -7).Format(time.RFC3339),
		"search_query": "bug",
	}
}

func TestShippedTemplates(t *testing.T) {
	h := setup(t)

	for _, tmpl := range h.store.Templates() {
		t.Run(tmpl.Name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			rs, err := h.orch.Run(ctx, tmpl.Name, shippedParams())
			require.NoError(t, err)

			want := h.expectedEntries(tmpl)
			require.Len(t, rs.Outcomes, len(want))
			for i, o := range rs.Outcomes {
				assert.Equal(t, want[i].Service, o.Service)
				assert.Equal(t, want[i].Template, o.Template)
				if !o.Success {
					t.Logf("%s/%s failed: %s", o.Service, o.Template, o.Error)
				}
			}

			raw, err := json.MarshalIndent(rs, "", "  ")
			require.NoError(t, err)
			t.Logf("%s", raw)
		})
	}
}

func TestUnknownTemplate(t *testing.T) {
	h := setup(t)

	_, err := h.orch.Run(context.Background(), "does-not-exist", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTemplateNotFound)
}

func TestHistoryRecorded(t *testing.T) {
	h := setup(t)
	if h.cfg.History.Backend == config.HistoryBackendNone {
		t.Skip("history.backend is none")
	}

	templates := h.store.Templates()
	require.NotEmpty(t, templates)
	name := templates[0].Name

	rs, err := h.orch.Run(context.Background(), name, shippedParams())
	require.NoError(t, err)

	recent, err := h.runs.Recent(context.Background(), name, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, rs.RunID, recent[0].RunID)
}
