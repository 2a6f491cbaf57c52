package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"crossquery/internal/common/config"
	apperrors "crossquery/internal/common/errors"
	"crossquery/internal/common/metrics"
	"crossquery/internal/history"
	"crossquery/internal/models"
	"crossquery/internal/orchestrator"
	"crossquery/internal/query/resolve"
	"crossquery/internal/render"
	"crossquery/pkg/registry"
)

// Parameters set by the shortcut flags of the run command.
const (
	paramDaysAgo     = "days_ago"
	paramSearchQuery = "search_query"
	paramOwner       = "owner"
	paramRepo        = "repo"
)

const defaultLookbackDays = 7

type runOptions struct {
	params []string
	format string
	output string

	days    int
	daysSet bool
	query   string
	owner   string
	repo    string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <template>",
		Short: "Execute a query template against every enabled service",
		Long: `Execute a query template. Template params are overridden by -p key=value
pairs or by the shortcut flags; -p wins over a shortcut. --days sets
days_ago to an RFC 3339 timestamp N days back and is applied automatically
(default 7) to templates whose queries use ${days_ago}.

Exits with status 1 when any entry failed and 2 on configuration errors.`,
		Example: `  crossquery run my_assignments -f markdown
  crossquery run search --query "authentication bug"
  crossquery run recent_activity --days 14 --owner octo --repo hello`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.daysSet = cmd.Flags().Changed("days")
			return runTemplate(cmd, root, opts, args[0])
		},
	}
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "template parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", render.FormatJSON, "output format: json, yaml or markdown")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result to a file instead of stdout")
	cmd.Flags().IntVar(&opts.days, "days", defaultLookbackDays, "days to look back; sets days_ago")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "search text; sets search_query")
	cmd.Flags().StringVar(&opts.owner, "owner", "", "GitHub owner or organization; sets owner")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "GitHub repository; sets repo")
	return cmd
}

func runTemplate(cmd *cobra.Command, root *rootOptions, opts *runOptions, templateName string) error {
	renderer, err := render.For(opts.format)
	if err != nil {
		return configError(err)
	}
	explicit, err := parseParams(opts.params)
	if err != nil {
		return configError(err)
	}
	if opts.days < 0 {
		return configError(fmt.Errorf("--days must not be negative, got %d", opts.days))
	}

	a, err := loadApp(root)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.startObservability(); err != nil {
		return configError(err)
	}

	params := shortcutParams(opts, a.store, templateName, time.Now()).Merge(explicit)

	ctx := cmd.Context()
	store, closeHistory, err := history.Open(ctx, a.cfg)
	if err != nil {
		// History is best effort; the run itself does not depend on it.
		a.log.Warn("run history disabled", map[string]interface{}{"error": err.Error()})
		store = history.NopStore{}
	} else {
		a.closers = append(a.closers, closeHistory)
	}

	orch := orchestrator.New(a.store, a.adapters, orchestrator.Config{
		Services:       a.cfg.Services,
		DefaultTimeout: config.GetDuration(a.cfg.Query.DefaultTimeout),
		MaxConcurrency: a.cfg.Query.MaxConcurrency,
	},
		orchestrator.WithLogger(a.log),
		orchestrator.WithObservability(a.obs),
		orchestrator.WithRecorder(store),
	)

	run, err := orch.Run(ctx, templateName, params)
	if err != nil {
		if apperrors.IsConfigurationError(err) {
			return configError(err)
		}
		return err
	}

	if err := writeResult(cmd.OutOrStdout(), opts.output, renderer, run); err != nil {
		return err
	}

	if a.cfg.Metrics.Enabled {
		if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.log.Warn("failed to write metrics textfile", map[string]interface{}{
				"path":  a.cfg.Metrics.Textfile,
				"error": err.Error(),
			})
		}
	}

	if run.HasFailures() {
		return &exitError{code: exitFailures, err: fmt.Errorf("%d of %d queries failed", run.Failed(), len(run.Outcomes))}
	}
	return nil
}

func writeResult(stdout io.Writer, path string, renderer render.Renderer, run *models.ResultSet) error {
	if path == "" {
		return renderer.Render(stdout, run)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := renderer.Render(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// parseParams turns key=value pairs into a ParameterSet. Values stay
// strings; the last occurrence of a key wins.
func parseParams(pairs []string) (models.ParameterSet, error) {
	params := make(models.ParameterSet, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

// shortcutParams turns the convenience flags into parameters. days_ago is
// only derived when --days was given or the template refers to it, so
// unrelated runs do not record it.
func shortcutParams(opts *runOptions, store *registry.Store, templateName string, now time.Time) models.ParameterSet {
	params := models.ParameterSet{}
	if opts.query != "" {
		params[paramSearchQuery] = opts.query
	}
	if opts.owner != "" {
		params[paramOwner] = opts.owner
	}
	if opts.repo != "" {
		params[paramRepo] = opts.repo
	}
	if opts.daysSet || templateUses(store, templateName, paramDaysAgo) {
		params[paramDaysAgo] = daysAgo(now, opts.days)
	}
	return params
}

// daysAgo formats the instant n days before now as RFC 3339 in UTC.
func daysAgo(now time.Time, n int) string {
	return now.UTC().AddDate(0, 0, -n).Format(time.RFC3339)
}

// templateUses reports whether any query of the template has a ${param}
// placeholder.
func templateUses(store *registry.Store, templateName, param string) bool {
	tmpl, ok := store.Template(templateName)
	if !ok {
		return false
	}
	for _, entry := range tmpl.Queries {
		def, ok := store.Query(entry.Service, entry.Template)
		if !ok {
			continue
		}
		refs := resolve.Placeholders([]interface{}{def.Endpoint, def.Document(), def.Params, def.Variables, def.Body})
		for _, name := range refs {
			if name == param {
				return true
			}
		}
	}
	return false
}
