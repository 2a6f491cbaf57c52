// Package registry loads service schemas and query templates from disk and
// serves them read-only for the lifetime of the process.
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"crossquery/internal/common/validation"
	"crossquery/internal/models"
)

// Store holds every loaded schema and template. It is never modified after
// Load returns, so it is safe for concurrent use.
type Store struct {
	schemas   map[string]models.ServiceSchema
	templates map[string]models.QueryTemplate
}

func NewStore(schemas map[string]models.ServiceSchema, templates map[string]models.QueryTemplate) *Store {
	s := &Store{
		schemas:   make(map[string]models.ServiceSchema, len(schemas)),
		templates: make(map[string]models.QueryTemplate, len(templates)),
	}
	for name, schema := range schemas {
		s.schemas[name] = schema
	}
	for name, tmpl := range templates {
		tmpl.Name = name
		s.templates[name] = tmpl
	}
	return s
}

// Load reads the templates file and the schema file of every enabled
// service. Disabled services are never read. Both YAML and JSON are accepted.
func Load(templatesFile string, services map[string]models.ServiceConfig) (*Store, error) {
	templates, err := LoadTemplates(templatesFile)
	if err != nil {
		return nil, err
	}

	schemas := make(map[string]models.ServiceSchema, len(services))
	for name, svc := range services {
		if !svc.Enabled || svc.SchemaFile == "" {
			continue
		}
		schema, err := LoadSchema(svc.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", name, err)
		}
		schemas[name] = schema
	}

	return NewStore(schemas, templates), nil
}

type templatesFile struct {
	Templates map[string]models.QueryTemplate `yaml:"templates"`
}

func LoadTemplates(path string) (map[string]models.QueryTemplate, error) {
	var file templatesFile
	if err := decodeValidated(path, validation.TemplatesDocument, &file); err != nil {
		return nil, err
	}
	return file.Templates, nil
}

func LoadSchema(path string) (models.ServiceSchema, error) {
	var schema models.ServiceSchema
	if err := decodeValidated(path, validation.ServiceSchemaDocument, &schema); err != nil {
		return models.ServiceSchema{}, err
	}
	return schema, nil
}

// decodeValidated parses path once generically for schema validation and
// once into out.
func decodeValidated(path, schemaJSON string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var document interface{}
	if err := yaml.Unmarshal(data, &document); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result, err := validation.ValidateDocument(schemaJSON, document)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", path, err)
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("invalid %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (s *Store) Template(name string) (models.QueryTemplate, bool) {
	t, ok := s.templates[name]
	return t, ok
}

func (s *Store) Query(service, name string) (models.QueryDefinition, bool) {
	schema, ok := s.schemas[service]
	if !ok {
		return models.QueryDefinition{}, false
	}
	def, ok := schema.Queries[name]
	return def, ok
}

// Templates returns every template sorted by name.
func (s *Store) Templates() []models.QueryTemplate {
	out := make([]models.QueryTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks every template entry that would run against an enabled
// service: the service must have an adapter and its schema must define the
// referenced query. Entries for disabled or unconfigured services are
// skipped at run time and therefore not reported.
func (s *Store) Validate(services map[string]models.ServiceConfig, adapters []string) error {
	known := make(map[string]bool, len(adapters))
	for _, a := range adapters {
		known[a] = true
	}

	var errs []error
	for _, tmpl := range s.Templates() {
		for i, entry := range tmpl.Queries {
			svc, ok := services[entry.Service]
			if !ok || !svc.Enabled {
				continue
			}
			if !known[entry.Service] {
				errs = append(errs, fmt.Errorf("template %s entry %d: no adapter for service %q", tmpl.Name, i, entry.Service))
				continue
			}
			if _, ok := s.Query(entry.Service, entry.Template); !ok {
				errs = append(errs, fmt.Errorf("template %s entry %d: query %q not found for service %q", tmpl.Name, i, entry.Template, entry.Service))
			}
		}
	}
	return errors.Join(errs...)
}
