// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"crossquery/internal/common/logger"
	"crossquery/internal/models"
)

const DefaultTimeout = 30 * time.Second

// Client is the one request primitive every adapter goes through.
type Client struct {
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: NewTracedTransport(http.DefaultTransport),
		},
		logger: log,
	}
}

// NewTracedTransport emits one client span per request through the global
// tracer provider, named "HTTP <method> <path>".
func NewTracedTransport(base http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(base,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	)
}

// Send issues the described request, reads the full body and decodes it as
// JSON. A body that is not JSON comes back as its raw text; that is not an
// error. Any HTTP status is accepted; only transport failures return an error.
func (c *Client) Send(ctx context.Context, desc models.RequestDescription) (interface{}, error) {
	var body io.Reader
	if len(desc.Body) > 0 {
		body = bytes.NewReader(desc.Body)
	}

	req, err := http.NewRequestWithContext(ctx, desc.Method, desc.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range desc.Headers {
		req.Header.Set(k, v)
	}
	if len(desc.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("sending request", map[string]interface{}{
		"method": desc.Method,
		"host":   desc.Host,
		"path":   desc.Path,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("backend returned non-success status", map[string]interface{}{
			"status": resp.StatusCode,
			"host":   desc.Host,
			"path":   desc.Path,
		})
	}

	return Decode(raw), nil
}

// Decode parses raw as JSON, falling back to the raw text.
func Decode(raw []byte) interface{} {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	return decoded
}

// IsTimeout reports whether err came from a deadline or client timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
