package chapter

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// JSON schemas for the payloads the capabilities must return. They are
// applied after extraction, before decoding into Go types; count and
// distinctness checks beyond what JSON Schema expresses conveniently live
// in LessonContent.ShapeIssues.

var questionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text": map[string]any{"type": "string"},
		"options": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 4,
			"maxItems": 4,
		},
		"answer": map[string]any{
			"type":    "integer",
			"minimum": 0,
			"maximum": 3,
		},
		"difficulty": map[string]any{
			"type": "string",
			"enum": []any{"easy", "medium", "hard"},
		},
	},
	"required": []any{"text", "options", "answer", "difficulty"},
}

var lessonContentSchemaDef = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"topic": map[string]any{"type": "string"},
		"explanation": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": 3,
			"maxItems": 5,
		},
		"practice": map[string]any{
			"type":     "array",
			"items":    questionSchema,
			"minItems": PracticeCount,
			"maxItems": PracticeCount,
		},
		"test": map[string]any{
			"type":     "array",
			"items":    questionSchema,
			"minItems": TestCount,
			"maxItems": TestCount,
		},
	},
	"required": []any{"topic", "explanation", "practice", "test"},
}

var verdictSchemaDef = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"pass": map[string]any{"type": "boolean"},
		"issues": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required": []any{"pass"},
}

var (
	lessonContentSchema = mustCompileSchema("lesson-content", lessonContentSchemaDef)
	verdictSchema       = mustCompileSchema("verification-verdict", verdictSchemaDef)
)

func mustCompileSchema(name string, def map[string]any) *jsonschema.Schema {
	// The jsonschema library expects a parsed JSON value, not raw bytes.
	defBytes, err := json.Marshal(def)
	if err != nil {
		panic(fmt.Sprintf("marshal schema %q: %v", name, err))
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		panic(fmt.Sprintf("parse schema %q: %v", name, err))
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		panic(fmt.Sprintf("add schema resource %q: %v", name, err))
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("compile schema %q: %v", name, err))
	}
	return compiled
}

// validateAgainstSchema parses raw JSON and validates it against the schema.
func validateAgainstSchema(schema *jsonschema.Schema, raw string) error {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
