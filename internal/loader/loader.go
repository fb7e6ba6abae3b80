// Package loader reads and validates wraprun configuration files.
package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sourceplane/wraprun/internal/model"
	"gopkg.in/yaml.v3"
)

// configSchema constrains a bundle configuration document. Group maps stay
// open-ended beyond the common keys: the option schema is the real
// authority on names and the parser reports unknown ones precisely.
const configSchema = `
type: object
additionalProperties: false
properties:
  options:
    type: [object, "null"]
    additionalProperties: true
  groups:
    type: array
    minItems: 1
    items:
      anyOf:
        - type: string
          minLength: 1
        - type: object
          properties:
            pes:
              type: [integer, array, string]
            exe:
              type: string
            cd:
              type: [string, array]
            oe:
              type: [string, array]
            env:
              type: [string, array]
          required: [pes, exe]
required: [groups]
`

// LoadConfig loads a bundle configuration YAML file and validates it
// against the embedded document schema.
func LoadConfig(path string) (*model.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the YAML and round-trip it through JSON so the validator sees
	// the value types it expects.
	var parsed any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	jsonDoc, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to convert config to JSON: %w", err)
	}
	var doc any
	if err := json.Unmarshal(jsonDoc, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert config to JSON: %w", err)
	}

	schema, err := compileConfigSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("config %s failed validation: %w", path, err)
	}

	var config model.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &config, nil
}

func compileConfigSchema() (*jsonschema.Schema, error) {
	var schemaData any
	if err := yaml.Unmarshal([]byte(configSchema), &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse config schema: %w", err)
	}

	// Convert to JSON for the schema compiler.
	jsonData, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config schema: %w", err)
	}

	schema, err := jsonschema.CompileString("config.schema.json", string(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to compile config schema: %w", err)
	}
	return schema, nil
}
