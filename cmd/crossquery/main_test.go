package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossquery/internal/models"
	"crossquery/pkg/registry"
)

// ==========================
// Test Helper Functions
// ==========================

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeWorkspace lays out a config, two schemas and a templates file
// pointing the github service at baseURL.
func writeWorkspace(t *testing.T, baseURL string) string {
	t.Helper()
	t.Setenv("APP_ENVIRONMENT", "test")
	dir := t.TempDir()

	writeFile(t, dir, "schemas/github.yaml", `
queries:
  my_prs:
    type: rest
    endpoint: /repos/${owner}/${repo}/pulls
    params:
      state: ${state}
    response_path: "[].title"
  recent_issues:
    type: rest
    endpoint: /repos/${owner}/${repo}/issues
    params:
      since: ${days_ago}
    response_path: "[].title"
`)
	writeFile(t, dir, "schemas/linear.yaml", `
queries:
  my_issues:
    query: "query { viewer { assignedIssues { nodes { title } } } }"
    response_path: data.viewer.assignedIssues.nodes[].title
`)
	writeFile(t, dir, "templates.yaml", `
templates:
  prs:
    description: Open pull requests
    params:
      owner: octo
      repo: hello
      state: open
    queries:
      - service: github
        template: my_prs
  everything:
    params:
      owner: octo
      repo: hello
    queries:
      - service: github
        template: my_prs
      - service: linear
        template: my_issues
  recent:
    params:
      owner: octo
      repo: hello
    queries:
      - service: github
        template: recent_issues
  typo:
    queries:
      - service: github
        template: my_prz
`)
	return writeFile(t, dir, "config.yaml", fmt.Sprintf(`
logging:
  level: error
  format: console
query:
  templates_file: templates.yaml
  max_concurrency: 2
services:
  github:
    enabled: true
    schema_file: schemas/github.yaml
    base_url: %s
  linear:
    enabled: true
    schema_file: schemas/linear.yaml
    base_url: %s
`, baseURL, baseURL))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return exitFailures
	}
	return 0
}

func newGitHubServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		title := r.URL.Path + " " + r.URL.Query().Get("state")
		if since := r.URL.Query().Get("since"); since != "" {
			title += " since=" + since
		}
		w.Write([]byte(fmt.Sprintf(`[{"title":%q}]`, title)))
	}))
	t.Cleanup(server.Close)
	return server
}

// ==========================
// Commands
// ==========================

func TestRunCommand_Success(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	server := newGitHubServer(t)
	cfgPath := writeWorkspace(t, server.URL)

	out, err := execute(t, "--config", cfgPath, "run", "prs", "-p", "state=closed")
	require.NoError(t, err)

	var doc struct {
		TemplateName string                   `json:"templateName"`
		Results      []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "prs", doc.TemplateName)
	require.Len(t, doc.Results, 1)
	assert.Equal(t, true, doc.Results[0]["success"])
	assert.Equal(t, []interface{}{"/repos/octo/hello/pulls closed"}, doc.Results[0]["data"])
}

func TestRunCommand_PartialFailureExitsOne(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("LINEAR_API_KEY", "")
	server := newGitHubServer(t)
	cfgPath := writeWorkspace(t, server.URL)

	outFile := filepath.Join(t.TempDir(), "report.md")
	_, err := execute(t, "--config", cfgPath, "run", "everything", "-f", "markdown", "-o", outFile)
	require.Error(t, err)
	assert.Equal(t, exitFailures, exitCode(err))

	report, readErr := os.ReadFile(outFile)
	require.NoError(t, readErr)
	assert.Contains(t, string(report), "1 succeeded, 1 failed")
	assert.Contains(t, string(report), "LINEAR_API_KEY environment variable is not set")
}

func TestRunCommand_ConfigurationErrorsExitTwo(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	server := newGitHubServer(t)
	cfgPath := writeWorkspace(t, server.URL)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown template", args: []string{"run", "nope"}},
		{name: "unknown query", args: []string{"run", "typo"}},
		{name: "bad format", args: []string{"run", "prs", "-f", "xml"}},
		{name: "bad param", args: []string{"run", "prs", "-p", "novalue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--config", cfgPath}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, exitConfig, exitCode(err))
		})
	}

	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "templates")
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestTemplatesCommand(t *testing.T) {
	cfgPath := writeWorkspace(t, "http://127.0.0.1:1")

	out, err := execute(t, "--config", cfgPath, "templates")
	require.NoError(t, err)
	assert.Contains(t, out, "TEMPLATE")
	assert.Contains(t, out, "everything")
	assert.Contains(t, out, "github/my_prs, linear/my_issues")
	assert.Contains(t, out, "Open pull requests")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := writeWorkspace(t, "http://127.0.0.1:1")

	_, err := execute(t, "--config", cfgPath, "validate")
	require.Error(t, err)
	assert.Equal(t, exitConfig, exitCode(err))
	assert.Contains(t, err.Error(), `query "my_prz" not found`)
}

func TestHistoryCommand_NoBackend(t *testing.T) {
	cfgPath := writeWorkspace(t, "http://127.0.0.1:1")

	out, err := execute(t, "--config", cfgPath, "history", "prs")
	require.NoError(t, err)
	assert.Contains(t, out, "no recorded runs for prs")
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"user=ada", "q=is:open label=bug", "user=grace", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "grace", params["user"])
	assert.Equal(t, "is:open label=bug", params["q"])
	assert.Equal(t, "", params["empty"])

	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}

// ==========================
// Shortcut Flags
// ==========================

func runData(t *testing.T, out string) []interface{} {
	t.Helper()
	var doc struct {
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Results, 1)
	require.Equal(t, true, doc.Results[0]["success"], doc.Results[0]["error"])
	data, ok := doc.Results[0]["data"].([]interface{})
	require.True(t, ok)
	return data
}

func sinceOf(t *testing.T, title string) time.Time {
	t.Helper()
	_, raw, ok := strings.Cut(title, "since=")
	require.True(t, ok, title)
	ts, err := time.Parse(time.RFC3339, raw)
	require.NoError(t, err)
	return ts
}

func TestRunCommand_DaysAgo(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	server := newGitHubServer(t)
	cfgPath := writeWorkspace(t, server.URL)

	out, err := execute(t, "--config", cfgPath, "run", "recent")
	require.NoError(t, err)
	since := sinceOf(t, runData(t, out)[0].(string))
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -7), since, time.Minute)

	out, err = execute(t, "--config", cfgPath, "run", "recent", "--days", "14")
	require.NoError(t, err)
	since = sinceOf(t, runData(t, out)[0].(string))
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -14), since, time.Minute)

	_, err = execute(t, "--config", cfgPath, "run", "recent", "--days=-1")
	assert.Equal(t, exitConfig, exitCode(err))
}

func TestRunCommand_OwnerRepoShortcuts(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	server := newGitHubServer(t)
	cfgPath := writeWorkspace(t, server.URL)

	out, err := execute(t, "--config", cfgPath, "run", "prs", "--owner", "acme", "--repo", "widgets")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"/repos/acme/widgets/pulls open"}, runData(t, out))

	out, err = execute(t, "--config", cfgPath, "run", "prs", "--owner", "acme", "-p", "owner=zed")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"/repos/zed/hello/pulls open"}, runData(t, out))
}

func TestShortcutParams(t *testing.T) {
	store := registry.NewStore(
		map[string]models.ServiceSchema{
			"github": {Queries: map[string]models.QueryDefinition{
				"recent": {Endpoint: "/issues", Params: map[string]interface{}{"since": "${days_ago}"}},
				"search": {Endpoint: "/search/issues", Params: map[string]interface{}{"q": "${search_query}"}},
			}},
		},
		map[string]models.QueryTemplate{
			"recent_activity": {Queries: []models.TemplateEntry{{Service: "github", Template: "recent"}}},
			"search":          {Queries: []models.TemplateEntry{{Service: "github", Template: "search"}}},
		},
	)
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	params := shortcutParams(&runOptions{days: 3}, store, "recent_activity", now)
	assert.Equal(t, models.ParameterSet{"days_ago": "2024-05-12T12:00:00Z"}, params)

	params = shortcutParams(&runOptions{days: 7, query: "auth bug"}, store, "search", now)
	assert.Equal(t, models.ParameterSet{"search_query": "auth bug"}, params)

	params = shortcutParams(&runOptions{days: 1, daysSet: true, owner: "octo", repo: "hello"}, store, "search", now)
	assert.Equal(t, models.ParameterSet{
		"days_ago": "2024-05-14T12:00:00Z",
		"owner":    "octo",
		"repo":     "hello",
	}, params)
}
