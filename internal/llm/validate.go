package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchemas holds compiled schemas by name. Schemas are package-level
// values (question batches, synthesized content), so each compiles once.
var compiledSchemas sync.Map // map[string]*jsonschema.Schema

// ValidateJSON checks raw against schema. A nil schema accepts anything.
// Failures are reported as *ErrInvalidResponse carrying raw.
func ValidateJSON(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("compile schema %q: %w", schema.Name, err)}
	}

	if err := compiled.Validate(instance); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("%s: %w", schema.Name, err)}
	}
	return nil
}

// compileSchema returns the compiled form of schema. Unnamed schemas are
// compiled on every call.
func compileSchema(schema *Schema) (*jsonschema.Schema, error) {
	if schema.Name != "" {
		if cached, ok := compiledSchemas.Load(schema.Name); ok {
			return cached.(*jsonschema.Schema), nil
		}
	}

	// Round-trip through JSON so Go literals ([]string, int) become the
	// generic values the compiler expects.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	name := schema.Name
	if name == "" {
		name = "anonymous"
	}
	url := "schema://" + name + ".json"

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, def); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}

	if schema.Name != "" {
		compiledSchemas.Store(schema.Name, compiled)
	}
	return compiled, nil
}
