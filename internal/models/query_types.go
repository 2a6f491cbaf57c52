// internal/models/query_types.go
package models

import "strings"

type QueryType string

const (
	QueryTypeGraphQL QueryType = "graphql"
	QueryTypeREST    QueryType = "rest"
)

// ParameterSet maps placeholder names to scalar values (string, number, bool).
type ParameterSet map[string]interface{}

// Merge returns a new set holding p overlaid with override. Neither input is modified.
func (p ParameterSet) Merge(override ParameterSet) ParameterSet {
	out := make(ParameterSet, len(p)+len(override))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of the set.
func (p ParameterSet) Clone() ParameterSet {
	return ParameterSet(nil).Merge(p)
}

// QueryDefinition describes one backend-specific operation.
type QueryDefinition struct {
	Type         QueryType              `json:"type,omitempty" yaml:"type,omitempty"`
	Description  string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Query        string                 `json:"query,omitempty" yaml:"query,omitempty"`
	Mutation     string                 `json:"mutation,omitempty" yaml:"mutation,omitempty"`
	Variables    map[string]interface{} `json:"variables,omitempty" yaml:"variables,omitempty"`
	Endpoint     string                 `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Method       string                 `json:"method,omitempty" yaml:"method,omitempty"`
	Params       map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	Body         interface{}            `json:"body,omitempty" yaml:"body,omitempty"`
	ResponsePath string                 `json:"response_path,omitempty" yaml:"response_path,omitempty"`
}

// Kind reports the effective transport of the definition. An untyped
// definition carrying a query or mutation document is GraphQL.
func (d QueryDefinition) Kind() QueryType {
	if d.Type != "" {
		return QueryType(strings.ToLower(string(d.Type)))
	}
	if d.Query != "" || d.Mutation != "" {
		return QueryTypeGraphQL
	}
	return QueryTypeREST
}

// Document returns the GraphQL document to send; a mutation wins over a query.
func (d QueryDefinition) Document() string {
	if d.Mutation != "" {
		return d.Mutation
	}
	return d.Query
}

// HTTPMethod returns the upper-cased method, GET when unset.
func (d QueryDefinition) HTTPMethod() string {
	if d.Method == "" {
		return "GET"
	}
	return strings.ToUpper(d.Method)
}

// ServiceSchema holds the named query definitions of one backend.
type ServiceSchema struct {
	Queries map[string]QueryDefinition `json:"queries" yaml:"queries"`
}

// TemplateEntry references one query definition of one service.
type TemplateEntry struct {
	Service  string `json:"service" yaml:"service"`
	Template string `json:"template" yaml:"template"`
}

// QueryTemplate is a named, ordered bundle of per-service query references.
type QueryTemplate struct {
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Params      ParameterSet    `json:"params,omitempty" yaml:"params,omitempty"`
	Queries     []TemplateEntry `json:"queries" yaml:"queries"`
}

// ServiceConfig addresses one backend. Timeout is in milliseconds.
type ServiceConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	SchemaFile string `json:"schema_file" mapstructure:"schema_file"`
	BaseURL    string `json:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `json:"timeout,omitempty" mapstructure:"timeout"`
}

// RequestDescription is a fully resolved request ready for transport.
type RequestDescription struct {
	Scheme  string
	Host    string
	Path    string
	Method  string
	Headers map[string]string
	Body    []byte
}

// URL joins scheme, host and path.
func (r RequestDescription) URL() string {
	scheme := r.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.Path
}
