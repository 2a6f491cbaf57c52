// Package render formats a finished run for humans or other tools.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"crossquery/internal/models"
)

const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Renderer writes a result set in one output format.
type Renderer interface {
	Render(w io.Writer, run *models.ResultSet) error
}

type RendererFunc func(w io.Writer, run *models.ResultSet) error

func (f RendererFunc) Render(w io.Writer, run *models.ResultSet) error {
	return f(w, run)
}

var renderers = map[string]Renderer{
	FormatJSON:     RendererFunc(JSON),
	FormatYAML:     RendererFunc(YAML),
	"yml":          RendererFunc(YAML),
	FormatMarkdown: RendererFunc(Markdown),
	"md":           RendererFunc(Markdown),
}

// For returns the renderer registered for format.
func For(format string) (Renderer, error) {
	r, ok := renderers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (want json, yaml or markdown)", format)
	}
	return r, nil
}

// Formats lists the accepted format names.
func Formats() []string {
	out := make([]string, 0, len(renderers))
	for name := range renderers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// JSON writes the run as indented JSON.
func JSON(w io.Writer, run *models.ResultSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// YAML writes the same document as JSON in YAML form. The run is passed
// through its JSON encoding first so both formats share field names and the
// success/failure shape of each outcome.
func YAML(w io.Writer, run *models.ResultSet) error {
	raw, err := json.Marshal(run)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Markdown writes a short report: a summary line and one section per entry.
func Markdown(w io.Writer, run *models.ResultSet) error {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", run.TemplateName)
	fmt.Fprintf(&b, "Run `%s`: %d succeeded, %d failed in %dms.\n",
		run.RunID, run.Succeeded(), run.Failed(), run.FinishedAt.Sub(run.StartedAt).Milliseconds())

	for _, o := range run.Outcomes {
		status := "ok"
		if !o.Success {
			status = "failed"
		}
		fmt.Fprintf(&b, "\n## %s / %s (%s, %dms)\n\n", o.Service, o.Template, status, o.DurationMs)

		if !o.Success {
			fmt.Fprintf(&b, "**Error:** %s\n", o.Error)
			continue
		}

		if items, ok := o.Data.([]interface{}); ok {
			fmt.Fprintf(&b, "Found %d items\n\n", len(items))
		}
		data, err := json.MarshalIndent(o.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s data: %w", o.Service, o.Template, err)
		}
		fmt.Fprintf(&b, "```json\n%s\n```\n", data)
	}

	_, err := w.Write(b.Bytes())
	return err
}
