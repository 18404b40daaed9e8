package ai

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// SchemaFor infers a JSON Schema from T. Objects are closed: properties not
// declared on T are rejected.
func SchemaFor[T any]() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	if schema.Type == "object" && schema.AdditionalProperties == nil {
		schema.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
	}
	return schema, nil
}

// NewFunctionDeclaration declares a function whose arguments decode into T.
func NewFunctionDeclaration[T any](name, description string) (FunctionDeclaration, error) {
	params, err := SchemaFor[T]()
	if err != nil {
		return FunctionDeclaration{}, fmt.Errorf("function %q: %w", name, err)
	}
	return FunctionDeclaration{Name: name, Description: description, Parameters: params}, nil
}
