package personalization

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// preferencesSchema guards documents coming back from remote stores. A
// document that fails here is treated as malformed and replaced by defaults.
const preferencesSchema = `{
	"type": "object",
	"required": ["widgets"],
	"properties": {
		"widgets": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"visible": {"type": "boolean"},
					"order": {"type": "integer"}
				}
			}
		},
		"last_modified": {"type": "string"}
	}
}`

var (
	prefsSchemaOnce     sync.Once
	prefsSchemaCompiled *jsonschema.Schema
	prefsSchemaErr      error
)

func compiledPreferencesSchema() (*jsonschema.Schema, error) {
	prefsSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("preferences.json", strings.NewReader(preferencesSchema)); err != nil {
			prefsSchemaErr = fmt.Errorf("personalize: load preferences schema: %w", err)
			return
		}
		prefsSchemaCompiled, prefsSchemaErr = compiler.Compile("preferences.json")
	})
	return prefsSchemaCompiled, prefsSchemaErr
}

// ValidatePreferencesDocument checks a decoded JSON payload against the
// preferences schema.
func ValidatePreferencesDocument(payload map[string]any) error {
	schema, err := compiledPreferencesSchema()
	if err != nil {
		return err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("personalize: preferences document failed validation: %w", err)
	}
	return nil
}

// DecodePreferences validates raw JSON against the preferences schema and
// unmarshals it. Remote store clients use this so that malformed responses
// surface as load failures rather than half-decoded state.
func DecodePreferences(data []byte) (Preferences, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return Preferences{}, fmt.Errorf("personalize: parse preferences: %w", err)
	}
	if err := ValidatePreferencesDocument(payload); err != nil {
		return Preferences{}, err
	}
	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("personalize: decode preferences: %w", err)
	}
	return prefs, nil
}
