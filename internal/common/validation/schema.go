package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ServiceSchemaDocument describes a per-service schema file.
const ServiceSchemaDocument = `{
  "type": "object",
  "required": ["queries"],
  "properties": {
    "queries": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "type":          {"type": "string", "enum": ["graphql", "rest", "GraphQL", "REST"]},
          "description":   {"type": "string"},
          "query":         {"type": "string"},
          "mutation":      {"type": "string"},
          "variables":     {"type": "object"},
          "endpoint":      {"type": "string"},
          "method":        {"type": "string"},
          "params":        {"type": "object"},
          "response_path": {"type": "string"}
        },
        "anyOf": [
          {"required": ["query"]},
          {"required": ["mutation"]},
          {"required": ["endpoint"]}
        ]
      }
    }
  }
}`

// TemplatesDocument describes the templates file.
const TemplatesDocument = `{
  "type": "object",
  "required": ["templates"],
  "properties": {
    "templates": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["queries"],
        "properties": {
          "description": {"type": "string"},
          "params":      {"type": "object"},
          "queries": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["service", "template"],
              "properties": {
                "service":  {"type": "string", "minLength": 1},
                "template": {"type": "string", "minLength": 1}
              }
            }
          }
        }
      }
    }
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateDocument checks a decoded YAML or JSON document against a JSON
// schema.
func ValidateDocument(schemaJSON string, document interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	errors := make([]ValidationError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errors = append(errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}

	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: errors,
	}, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}

// Err folds the result into a single error, or nil when valid.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(vr.GetErrorMessages(), "; "))
}
