// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package world

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Bundle is the on-disk form of one level's interactive object set.
// State groups and sibling nodes are arrays so that declaration order
// survives the trip through JSON.
type Bundle struct {
	FormatVersion string         `json:"format_version" jsonschema:"required"`
	LevelID       string         `json:"level_id" jsonschema:"required"`
	Objects       []BundleObject `json:"objects,omitempty"`
}

// BundleObject is one placed object in a bundle.
type BundleObject struct {
	ID        string             `json:"id" jsonschema:"required"`
	StateInfo []BundleStateGroup `json:"state_info,omitempty"`
}

// BundleStateGroup is one keyed state group with ordered root nodes.
type BundleStateGroup struct {
	Key    string       `json:"key" jsonschema:"required"`
	States []BundleNode `json:"states,omitempty"`
}

// BundleNode mirrors StateNode in serialized form.
type BundleNode struct {
	Opcode   string                  `json:"opcode" jsonschema:"required"`
	Params   []string                `json:"params,omitempty"`
	Branches map[string][]BundleNode `json:"branches,omitempty"`
}

// GetSchemaID returns the canonical schema identifier for level bundles.
func GetSchemaID() string {
	return "https://wildmere.dev/schemas/level-bundle.schema.json"
}

// GenerateSchema generates a JSON Schema from the Bundle struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{}
	schema := r.Reflect(&Bundle{})

	schema.ID = jsonschema.ID(GetSchemaID())
	schema.Title = "Wildmere Level Bundle"
	schema.Description = "Schema for level object bundle files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

var (
	schemaOnce   sync.Once
	schemaCached *jschema.Schema
	schemaErr    error
)

// ValidateBundle validates raw bundle JSON against the generated schema.
func ValidateBundle(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("bundle data is empty")
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// compiledSchema returns the compiled bundle schema, building it once.
func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaBytes, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}

		var schemaData any
		if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
			schemaErr = fmt.Errorf("failed to parse schema JSON: %w", err)
			return
		}

		c := jschema.NewCompiler()
		if err := c.AddResource("level-bundle.schema.json", schemaData); err != nil {
			schemaErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		schemaCached, schemaErr = c.Compile("level-bundle.schema.json")
	})
	return schemaCached, schemaErr
}
