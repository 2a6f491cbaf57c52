package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"crossquery/internal/models"
)

func sampleRun() *models.ResultSet {
	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &models.ResultSet{
		RunID:        "run-1",
		TemplateName: "open-items",
		StartedAt:    started,
		FinishedAt:   started.Add(420 * time.Millisecond),
		Outcomes: []models.QueryOutcome{
			{Service: "github", Template: "my_prs", Success: true, Data: []interface{}{"Add feature"}, DurationMs: 120},
			{Service: "linear", Template: "my_issues", Success: false, Error: "LINEAR_API_KEY environment variable is not set"},
			{Service: "camunda", Template: "my_tasks", Success: true, Data: nil, DurationMs: 300},
		},
	}
}

func TestJSON_TaggedOutcomes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleRun()))

	var doc struct {
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Results, 3)

	assert.Equal(t, true, doc.Results[0]["success"])
	assert.Equal(t, []interface{}{"Add feature"}, doc.Results[0]["data"])
	assert.NotContains(t, doc.Results[0], "error")

	assert.Equal(t, false, doc.Results[1]["success"])
	assert.Equal(t, "LINEAR_API_KEY environment variable is not set", doc.Results[1]["error"])
	assert.NotContains(t, doc.Results[1], "data")

	data, present := doc.Results[2]["data"]
	assert.True(t, present, "an extraction miss still reports data")
	assert.Nil(t, data)
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, YAML(&buf, sampleRun()))

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "open-items", doc["templateName"])
	results := doc["results"].([]interface{})
	require.Len(t, results, 3)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "github", first["service"])
	assert.Equal(t, true, first["success"])
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, sampleRun()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# open-items\n"))
	assert.Contains(t, out, "2 succeeded, 1 failed in 420ms")
	assert.Contains(t, out, "## github / my_prs (ok, 120ms)")
	assert.Contains(t, out, "Found 1 items\n\n```json\n[\n  \"Add feature\"\n]\n```")
	assert.Equal(t, 1, strings.Count(out, "Found "), "only sequence data gets an item count")
	assert.Contains(t, out, "## linear / my_issues (failed, 0ms)")
	assert.Contains(t, out, "**Error:** LINEAR_API_KEY environment variable is not set")
	assert.Contains(t, out, "```json\nnull\n```")
}

func TestFor(t *testing.T) {
	for _, format := range []string{"json", "YAML", "yml", "markdown", "md"} {
		r, err := For(format)
		require.NoError(t, err, format)
		assert.NotNil(t, r)
	}

	_, err := For("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
	assert.Contains(t, Formats(), "json")
}
