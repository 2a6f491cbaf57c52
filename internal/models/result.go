// internal/models/result.go
package models

import (
	"encoding/json"
	"time"
)

// QueryOutcome is the result of one template entry.
type QueryOutcome struct {
	Service    string      `json:"service" yaml:"service"`
	Template   string      `json:"template" yaml:"template"`
	Success    bool        `json:"success" yaml:"success"`
	Data       interface{} `json:"data,omitempty" yaml:"data,omitempty"`
	Error      string      `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs int64       `json:"durationMs" yaml:"durationMs"`
}

// MarshalJSON emits the tagged shape: a success always carries "data" (null
// on an extraction miss) and a failure always carries "error".
func (o QueryOutcome) MarshalJSON() ([]byte, error) {
	if o.Success {
		return json.Marshal(struct {
			Service    string      `json:"service"`
			Template   string      `json:"template"`
			Success    bool        `json:"success"`
			Data       interface{} `json:"data"`
			DurationMs int64       `json:"durationMs"`
		}{o.Service, o.Template, true, o.Data, o.DurationMs})
	}
	return json.Marshal(struct {
		Service    string `json:"service"`
		Template   string `json:"template"`
		Success    bool   `json:"success"`
		Error      string `json:"error"`
		DurationMs int64  `json:"durationMs"`
	}{o.Service, o.Template, false, o.Error, o.DurationMs})
}

func NewSuccess(service, template string, data interface{}, took time.Duration) QueryOutcome {
	return QueryOutcome{
		Service:    service,
		Template:   template,
		Success:    true,
		Data:       data,
		DurationMs: took.Milliseconds(),
	}
}

func NewFailure(service, template string, err error, took time.Duration) QueryOutcome {
	return QueryOutcome{
		Service:    service,
		Template:   template,
		Success:    false,
		Error:      err.Error(),
		DurationMs: took.Milliseconds(),
	}
}

// ResultSet holds outcomes in template declaration order.
type ResultSet struct {
	RunID        string         `json:"runId" yaml:"runId"`
	TemplateName string         `json:"templateName" yaml:"templateName"`
	Params       ParameterSet   `json:"params,omitempty" yaml:"params,omitempty"`
	StartedAt    time.Time      `json:"startedAt" yaml:"startedAt"`
	FinishedAt   time.Time      `json:"finishedAt" yaml:"finishedAt"`
	Outcomes     []QueryOutcome `json:"results" yaml:"results"`
}

func (r *ResultSet) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

func (r *ResultSet) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// HasFailures reports whether any entry failed.
func (r *ResultSet) HasFailures() bool {
	return r.Failed() > 0
}
