package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	RecordOutcome("metrics-test-svc", true, "", 120*time.Millisecond)
	RecordOutcome("metrics-test-svc", false, "NETWORK_ERROR", 30*time.Millisecond)
	RecordRun("metrics-test-template", true)

	path := filepath.Join(t.TempDir(), "crossquery.prom")
	require.NoError(t, WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)

	assert.Contains(t, out, `crossquery_query_outcomes_total{service="metrics-test-svc",status="success"} 1`)
	assert.Contains(t, out, `crossquery_query_outcomes_total{service="metrics-test-svc",status="failure"} 1`)
	assert.Contains(t, out, `crossquery_query_errors_total{error_code="NETWORK_ERROR",service="metrics-test-svc"} 1`)
	assert.Contains(t, out, `crossquery_query_duration_seconds_count{service="metrics-test-svc"} 2`)
	assert.Contains(t, out, `crossquery_template_runs_total{status="failure",template="metrics-test-template"} 1`)
	assert.Contains(t, out, "crossquery_queries_in_flight 0")
}
