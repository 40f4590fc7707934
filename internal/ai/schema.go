package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/foundly-app/foundly/constants"
)

// Per-operation JSON-Schemas (draft 2020-12 subset) as generic maps. Each is
// described to the model in the prompt and enforced locally after
// extraction, so a reply either becomes a fully typed value or the
// operation falls back.

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func imageSafetySchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"violation":    map[string]any{"type": "string", "enum": violationValues},
			"looks_staged": map[string]any{"type": "boolean"},
			"reason":       map[string]any{"type": "string"},
		},
		"required": []string{"violation"},
	}
}

func redactRegionsSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"regions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "number", "minimum": 0.0, "maximum": 1000.0},
					"minItems": 4,
					"maxItems": 4,
				},
			},
		},
		"required": []string{"regions"},
	}
}

func visualAttrsSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"title":     map[string]any{"type": "string"},
			"category":  map[string]any{"type": "string", "enum": constants.AsStringSlice()},
			"tags":      stringArrayProp(),
			"color":     map[string]any{"type": "string"},
			"brand":     map[string]any{"type": "string"},
			"condition": map[string]any{"type": "string"},
			"features":  map[string]any{"type": "string"},
		},
		"required": []string{"title", "category"},
	}
}

func mergeDescriptionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"description"},
	}
}

func validateDraftSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"is_valid": map[string]any{"type": "boolean"},
			"reason":   map[string]any{"type": "string"},
		},
		"required": []string{"is_valid"},
	}
}

func contentAnalysisSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"is_violating": map[string]any{"type": "boolean"},
			"violation":    map[string]any{"type": "string", "enum": violationValues},
			"category":     map[string]any{"type": "string", "enum": constants.AsStringSlice()},
			"summary":      map[string]any{"type": "string"},
			"tags":         stringArrayProp(),
		},
		"required": []string{"is_violating", "violation"},
	}
}

func searchParseSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"type":     map[string]any{"type": "string", "enum": []string{"LOST", "FOUND", "UNKNOWN"}},
			"keywords": map[string]any{"type": "string"},
		},
		"required": []string{"type", "keywords"},
	}
}

func matchListingSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"matches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"id":         map[string]any{"type": "string", "minLength": 1},
						"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 100.0},
					},
					"required": []string{"id"},
				},
			},
		},
		"required": []string{"matches"},
	}
}

func compareSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"confidence":   map[string]any{"type": "number", "minimum": 0.0, "maximum": 100.0},
			"explanation":  map[string]any{"type": "string"},
			"similarities": stringArrayProp(),
			"differences":  stringArrayProp(),
		},
		"required": []string{"confidence", "explanation"},
	}
}

func stringArrayProp() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}
