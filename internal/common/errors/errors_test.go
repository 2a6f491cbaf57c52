package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	entries []logEntry
}

func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, logEntry{"warn", msg, fields})
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.entries = append(l.entries, logEntry{"error", msg, fields})
}

// ==========================
// Sentinels and codes
// ==========================

func TestStandardError_Is(t *testing.T) {
	err := fmt.Errorf("planning: %w", NewQueryNotFoundError("github", "my_prs"))

	assert.ErrorIs(t, err, ErrQueryNotFound)
	assert.NotErrorIs(t, err, ErrTemplateNotFound)
	assert.Equal(t, ErrCodeQueryNotFound, CodeOf(err))
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	err := NewQueryTimeoutError("linear", context.DeadlineExceeded)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrQueryTimeout)
	assert.Contains(t, err.Error(), "linear")
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("boom")))
}

func TestIsConfigurationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"template not found", NewTemplateNotFoundError("daily"), true},
		{"query not found", NewQueryNotFoundError("github", "x"), true},
		{"adapter not found", NewAdapterNotFoundError("jira"), true},
		{"invalid configuration", NewInvalidConfigurationError("bad"), true},
		{"credential missing", NewCredentialMissingError("github", "GITHUB_TOKEN"), false},
		{"network", NewNetworkError("github", stderrors.New("refused")), false},
		{"plain", stderrors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConfigurationError(tt.err))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeTemplateNotFound))
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeInvalidConfiguration))
	assert.Equal(t, "CREDENTIAL", GetErrorCategory(ErrCodeCredentialMissing))
	assert.Equal(t, "TRANSPORT", GetErrorCategory(ErrCodeNetworkError))
	assert.Equal(t, "TRANSPORT", GetErrorCategory(ErrCodeQueryTimeout))
	assert.Equal(t, "REQUEST", GetErrorCategory(ErrCodeRequestBuild))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

// ==========================
// Handler
// ==========================

func TestHandleEntryError(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	got := h.HandleEntryError("github", "my_prs", NewCredentialMissingError("github", "GITHUB_TOKEN"))
	assert.Equal(t, ErrCodeCredentialMissing, got.Code)

	got = h.HandleEntryError("linear", "issues", stderrors.New("decoder exploded"))
	assert.Equal(t, ErrCodeInternal, got.Code)
	assert.Equal(t, "decoder exploded", got.Error())

	require.Len(t, log.entries, 2)
	assert.Equal(t, "warn", log.entries[0].level)
	assert.Equal(t, "CREDENTIAL", log.entries[0].fields["errorCategory"])
	assert.Equal(t, "error", log.entries[1].level)
	assert.Equal(t, "issues", log.entries[1].fields["query"])
}

func TestNormalize_KeepsCause(t *testing.T) {
	cause := stderrors.New("socket closed")
	stdErr := Normalize(cause)
	assert.ErrorIs(t, stdErr, cause)
}
