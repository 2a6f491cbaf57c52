// Command crossquery runs query templates that fan out to several issue,
// code and workflow backends and prints one combined result.
//
// Usage:
//
//	crossquery run my_assignments -f markdown
//	crossquery run recent_activity --days 14
//	crossquery run search --query "authentication bug"
//	crossquery templates
//	crossquery validate
//	crossquery history my_assignments
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crossquery/internal/adapters"
	"crossquery/internal/common/config"
	"crossquery/internal/common/env"
	httpclient "crossquery/internal/common/http"
	"crossquery/internal/common/logger"
	"crossquery/internal/common/observability"
	"crossquery/pkg/registry"
)

const (
	exitFailures = 1
	exitConfig   = 2
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configError(err error) error {
	return &exitError{code: exitConfig, err: err}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitFailures
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(code)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "crossquery",
		Short:         "Run one query template across several backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: configs/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newRunCmd(opts),
		newTemplatesCmd(opts),
		newValidateCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// app is everything a command needs, built from the config file.
type app struct {
	cfg      *config.Config
	zap      *zap.Logger
	log      logger.Logger
	store    *registry.Store
	adapters *adapters.Registry
	obs      *observability.Observability
	closers  []func() error
}

func loadApp(opts *rootOptions) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, configError(err)
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	a := &app{
		cfg: cfg,
		zap: zapLog,
		log: logger.NewZapAdapter(zapLog),
	}

	a.store, err = registry.Load(cfg.Query.TemplatesFile, cfg.Services)
	if err != nil {
		return nil, configError(fmt.Errorf("failed to load templates and schemas: %w", err))
	}

	a.adapters, err = adapters.NewDefaultRegistry(cfg.Services, adapters.Options{
		Sender: httpclient.NewClient(cfg.MaxServiceTimeout(), a.log),
		Env:    env.OSProvider{},
		Logger: a.log,
	})
	if err != nil {
		return nil, configError(err)
	}

	return a, nil
}

// startObservability wires metrics and, when enabled, span export.
func (a *app) startObservability() error {
	opts := observability.Options{ServiceName: a.cfg.App.Name}
	switch {
	case !a.cfg.Tracing.Enabled:
	case a.cfg.Tracing.Exporter == config.TraceExporterJaeger:
		opts.JaegerEndpoint = a.cfg.Tracing.Endpoint
	default:
		w, closeFn, err := openOutput(a.cfg.Tracing.Output)
		if err != nil {
			return err
		}
		opts.TraceWriter = w
		a.closers = append(a.closers, closeFn)
	}

	obs, err := observability.New(opts)
	if err != nil {
		return err
	}
	a.obs = obs
	// Runs before the trace writer is closed; closers unwind in reverse.
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return obs.Shutdown(ctx)
	})
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("shutdown step failed", map[string]interface{}{"error": err.Error()})
		}
	}
	_ = a.zap.Sync()
}

// openOutput resolves "stdout", "stderr" or a file path to a writer.
func openOutput(target string) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch target {
	case "", "stdout", "-":
		return os.Stdout, noop, nil
	case "stderr":
		return os.Stderr, noop, nil
	}
	f, err := os.Create(target)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open %s: %w", target, err)
	}
	return f, f.Close, nil
}
