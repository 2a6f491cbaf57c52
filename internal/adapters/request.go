package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"crossquery/internal/common/env"
	apperrors "crossquery/internal/common/errors"
	httpclient "crossquery/internal/common/http"
	"crossquery/internal/common/logger"
	"crossquery/internal/models"
	"crossquery/internal/query/resolve"
)

// Endpoint is the scheme, host and optional path prefix of a backend.
type Endpoint struct {
	Scheme   string
	Host     string
	BasePath string
}

// ParseEndpoint splits a base URL such as "https://api.github.com" or
// "http://127.0.0.1:8080/prefix".
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Endpoint{}, fmt.Errorf("invalid base url %q: scheme and host are required", raw)
	}
	return Endpoint{
		Scheme:   u.Scheme,
		Host:     u.Host,
		BasePath: strings.TrimSuffix(u.Path, "/"),
	}, nil
}

func (e Endpoint) describe(method, path string, headers map[string]string, body []byte) models.RequestDescription {
	return models.RequestDescription{
		Scheme:  e.Scheme,
		Host:    e.Host,
		Path:    e.BasePath + path,
		Method:  method,
		Headers: headers,
		Body:    body,
	}
}

// graphQLRequest is the POST body every GraphQL backend accepts.
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// BuildGraphQLRequest resolves the definition's variables and wraps them
// with the query (or mutation) document into a POST to path.
func BuildGraphQLRequest(ep Endpoint, path string, def models.QueryDefinition, params models.ParameterSet, environment env.Provider, headers map[string]string) (models.RequestDescription, error) {
	if def.Document() == "" {
		return models.RequestDescription{}, fmt.Errorf("graphql definition has neither query nor mutation")
	}
	variables := resolve.Map(def.Variables, params, environment)
	if variables == nil {
		variables = map[string]interface{}{}
	}
	body, err := json.Marshal(graphQLRequest{Query: def.Document(), Variables: variables})
	if err != nil {
		return models.RequestDescription{}, fmt.Errorf("failed to marshal graphql body: %w", err)
	}
	return ep.describe("POST", path, headers, body), nil
}

// BuildRESTRequest resolves the endpoint template, query parameters and
// body. Query parameters are URL-encoded in key order; nil values are left
// out. The body is only sent for methods other than GET.
func BuildRESTRequest(ep Endpoint, def models.QueryDefinition, params models.ParameterSet, environment env.Provider, headers map[string]string) (models.RequestDescription, error) {
	if def.Endpoint == "" {
		return models.RequestDescription{}, fmt.Errorf("rest definition has no endpoint")
	}

	path := resolve.String(def.Endpoint, params, environment)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if query := encodeQuery(resolve.Map(def.Params, params, environment)); query != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + query
	}

	var body []byte
	method := def.HTTPMethod()
	if def.Body != nil && method != "GET" {
		var err error
		body, err = json.Marshal(resolve.Value(def.Body, params, environment))
		if err != nil {
			return models.RequestDescription{}, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	return ep.describe(method, path, headers, body), nil
}

func encodeQuery(params map[string]interface{}) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range params {
		switch t := v.(type) {
		case nil:
			continue
		case []interface{}:
			for _, elem := range t {
				values.Add(k, resolve.FormatValue(elem))
			}
		case []string:
			for _, elem := range t {
				values.Add(k, elem)
			}
		default:
			values.Set(k, resolve.FormatValue(v))
		}
	}
	return values.Encode()
}

// withDefaults fills params the caller did not supply from environment
// defaults. An explicit caller value always wins; an unset or empty
// environment value adds nothing.
func withDefaults(params models.ParameterSet, environment env.Provider, defaults map[string]string) models.ParameterSet {
	out := params.Clone()
	for param, envName := range defaults {
		if v, ok := out[param]; ok && v != nil {
			continue
		}
		if v := env.Get(environment, envName); v != "" {
			out[param] = v
		}
	}
	return out
}

// backend carries what every concrete adapter shares.
type backend struct {
	service     string
	endpoint    Endpoint
	sender      Sender
	environment env.Provider
	logger      logger.Logger
}

func newBackend(service, defaultBaseURL string, opts Options) (backend, error) {
	opts = opts.withDefaults()
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	ep, err := ParseEndpoint(baseURL)
	if err != nil {
		return backend{}, err
	}
	return backend{
		service:     service,
		endpoint:    ep,
		sender:      opts.Sender,
		environment: opts.Env,
		logger:      opts.Logger.WithFields(map[string]interface{}{"service": service}),
	}, nil
}

func (b backend) Service() string {
	return b.service
}

// credential returns the named environment value or a CredentialError.
func (b backend) credential(name string) (string, error) {
	v := env.Get(b.environment, name)
	if v == "" {
		return "", apperrors.NewCredentialMissingError(b.service, name)
	}
	return v, nil
}

// send issues the request and maps transport failures to entry errors.
func (b backend) send(ctx context.Context, desc models.RequestDescription) (interface{}, error) {
	b.logger.Debug("dispatching query", map[string]interface{}{
		"method": desc.Method,
		"path":   desc.Path,
	})
	if left := resolve.Placeholders([]string{desc.Path, string(desc.Body)}); len(left) > 0 {
		b.logger.Debug("request still contains placeholders", map[string]interface{}{
			"placeholders": left,
		})
	}
	out, err := b.sender.Send(ctx, desc)
	if err != nil {
		if httpclient.IsTimeout(err) {
			return nil, apperrors.NewQueryTimeoutError(b.service, err)
		}
		return nil, apperrors.NewNetworkError(b.service, err)
	}
	return out, nil
}

// Options configures a concrete adapter.
type Options struct {
	// BaseURL overrides the public API host, e.g. for self-hosted instances.
	BaseURL string
	Sender  Sender
	Env     env.Provider
	Logger  logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Env == nil {
		o.Env = env.OSProvider{}
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoOpLogger()
	}
	if o.Sender == nil {
		o.Sender = httpclient.NewClient(httpclient.DefaultTimeout, o.Logger)
	}
	return o
}
