// Package orchestrator runs query templates: it resolves a template into
// per-service calls, dispatches them concurrently through the adapter
// registry and gathers one outcome per entry in template order.
package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"crossquery/internal/adapters"
	apperrors "crossquery/internal/common/errors"
	"crossquery/internal/common/logger"
	"crossquery/internal/common/metrics"
	"crossquery/internal/common/observability"
	"crossquery/internal/models"
	"crossquery/internal/query/extract"
)

const DefaultTimeout = 30 * time.Second

// Catalog is the read-only source of templates and query definitions.
type Catalog interface {
	Template(name string) (models.QueryTemplate, bool)
	Query(service, name string) (models.QueryDefinition, bool)
}

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, run *models.ResultSet) error
}

type Config struct {
	Services       map[string]models.ServiceConfig
	DefaultTimeout time.Duration
	// MaxConcurrency bounds in-flight backend calls; 1 runs entries sequentially.
	MaxConcurrency int
}

type Orchestrator struct {
	catalog  Catalog
	adapters *adapters.Registry
	config   Config
	logger   logger.Logger
	errors   *apperrors.ErrorHandler
	obs      *observability.Observability
	tracer   trace.Tracer
	recorder Recorder
}

type Option func(*Orchestrator)

func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) { o.logger = log }
}

func WithObservability(obs *observability.Observability) Option {
	return func(o *Orchestrator) { o.obs = obs }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func New(catalog Catalog, registry *adapters.Registry, cfg Config, opts ...Option) *Orchestrator {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}

	o := &Orchestrator{
		catalog:  catalog,
		adapters: registry,
		config:   cfg,
		logger:   logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.errors = apperrors.NewErrorHandler(o.logger)
	o.tracer = o.obs.Tracer()
	return o
}

// call is one planned template entry.
type call struct {
	entry      models.TemplateEntry
	adapter    adapters.Adapter
	definition models.QueryDefinition
	timeout    time.Duration
}

// Run executes templateName with callerParams layered over the template's
// default params. Configuration problems are returned as errors before any
// request is sent; everything that goes wrong inside an entry is reported
// as a failed outcome instead.
func (o *Orchestrator) Run(ctx context.Context, templateName string, callerParams models.ParameterSet) (*models.ResultSet, error) {
	tmpl, ok := o.catalog.Template(templateName)
	if !ok {
		return nil, apperrors.NewTemplateNotFoundError(templateName)
	}

	params := tmpl.Params.Merge(callerParams)

	calls, err := o.plan(tmpl)
	if err != nil {
		return nil, err
	}

	run := &models.ResultSet{
		RunID:        uuid.NewString(),
		TemplateName: templateName,
		Params:       params,
		StartedAt:    time.Now().UTC(),
	}
	log := o.logger.WithFields(map[string]interface{}{
		"runId":    run.RunID,
		"template": templateName,
	})
	log.Info("template run started", map[string]interface{}{
		"entries": len(calls),
		"skipped": len(tmpl.Queries) - len(calls),
	})

	ctx, span := o.tracer.Start(ctx, "template.run", trace.WithAttributes(
		attribute.String("template", templateName),
		attribute.String("run_id", run.RunID),
		attribute.Int("entries", len(calls)),
	))
	defer span.End()

	run.Outcomes = o.execute(ctx, calls, params)
	run.FinishedAt = time.Now().UTC()

	status := metrics.StatusSuccess
	if run.HasFailures() {
		status = metrics.StatusFailure
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d entries failed", run.Failed(), len(run.Outcomes)))
	}
	metrics.RecordRun(templateName, run.HasFailures())
	o.obs.RecordRun(ctx, templateName, status, run.FinishedAt.Sub(run.StartedAt))

	log.Info("template run finished", map[string]interface{}{
		"succeeded":  run.Succeeded(),
		"failed":     run.Failed(),
		"durationMs": run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	})

	if o.recorder != nil {
		if err := o.recorder.Record(ctx, run); err != nil {
			log.Warn("failed to record run history", map[string]interface{}{"error": err.Error()})
		}
	}

	return run, nil
}

// plan walks the template in order, dropping entries whose service is not
// configured or is disabled, and checks every remaining reference.
func (o *Orchestrator) plan(tmpl models.QueryTemplate) ([]call, error) {
	calls := make([]call, 0, len(tmpl.Queries))
	for _, entry := range tmpl.Queries {
		svc, ok := o.config.Services[entry.Service]
		if !ok || !svc.Enabled {
			o.logger.Debug("skipping entry for inactive service", map[string]interface{}{
				"template": tmpl.Name,
				"service":  entry.Service,
				"query":    entry.Template,
			})
			continue
		}

		adapter, ok := o.adapters.Get(entry.Service)
		if !ok {
			return nil, apperrors.NewAdapterNotFoundError(entry.Service)
		}
		def, ok := o.catalog.Query(entry.Service, entry.Template)
		if !ok {
			return nil, apperrors.NewQueryNotFoundError(entry.Service, entry.Template)
		}

		timeout := o.config.DefaultTimeout
		if svc.Timeout > 0 {
			timeout = time.Duration(svc.Timeout) * time.Millisecond
		}
		calls = append(calls, call{entry: entry, adapter: adapter, definition: def, timeout: timeout})
	}
	return calls, nil
}

// execute fans calls out with at most MaxConcurrency in flight. Each
// goroutine owns exactly one slot of the result slice.
func (o *Orchestrator) execute(ctx context.Context, calls []call, params models.ParameterSet) []models.QueryOutcome {
	outcomes := make([]models.QueryOutcome, len(calls))

	var g errgroup.Group
	g.SetLimit(o.config.MaxConcurrency)
	for i, c := range calls {
		g.Go(func() error {
			outcomes[i] = o.dispatch(ctx, c, params)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (o *Orchestrator) dispatch(ctx context.Context, c call, params models.ParameterSet) (outcome models.QueryOutcome) {
	service, query := c.entry.Service, c.entry.Template
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "query.execute", trace.WithAttributes(
		attribute.String("service", service),
		attribute.String("query", query),
	))
	defer span.End()

	metrics.QueriesInFlight.Inc()
	defer metrics.QueriesInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("adapter panicked", map[string]interface{}{
				"service": service,
				"query":   query,
				"panic":   fmt.Sprint(r),
				"stack":   string(debug.Stack()),
			})
			outcome = o.fail(ctx, span, c, apperrors.NewInternalError(service, fmt.Sprint(r)), time.Since(start))
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := c.adapter.Execute(callCtx, c.definition, params)
	took := time.Since(start)
	if err != nil {
		return o.fail(ctx, span, c, err, took)
	}

	data, found := extract.Extract(payload, c.definition.ResponsePath)
	if !found {
		o.logger.Debug("response path matched nothing", map[string]interface{}{
			"service":      service,
			"query":        query,
			"responsePath": c.definition.ResponsePath,
		})
	}

	metrics.RecordOutcome(service, true, "", took)
	o.obs.RecordQuery(ctx, service, metrics.StatusSuccess, took)
	return models.NewSuccess(service, query, data, took)
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, c call, err error, took time.Duration) models.QueryOutcome {
	stdErr := o.errors.HandleEntryError(c.entry.Service, c.entry.Template, err)

	span.RecordError(stdErr)
	span.SetStatus(codes.Error, string(stdErr.Code))

	metrics.RecordOutcome(c.entry.Service, false, string(stdErr.Code), took)
	o.obs.RecordQuery(ctx, c.entry.Service, metrics.StatusFailure, took)
	return models.NewFailure(c.entry.Service, c.entry.Template, stdErr, took)
}
