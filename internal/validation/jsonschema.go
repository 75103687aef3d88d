package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const processSchemaURL = "https://bpmnflow.dev/schemas/process.json"

// processSchemaJSON describes the shape of a structured process. Nested paths
// are only checked to hold objects here; each nested element is validated
// against its own definition by the structural walk.
const processSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://bpmnflow.dev/schemas/process.json",
  "type": "array",
  "items": { "type": "object" },
  "$defs": {
    "task": {
      "type": "object",
      "required": ["type", "id", "label"],
      "properties": {
        "type": { "enum": ["task", "userTask", "serviceTask"] },
        "id": { "type": "string", "minLength": 1 },
        "label": { "type": "string", "minLength": 1 }
      }
    },
    "event": {
      "type": "object",
      "required": ["type", "id"],
      "properties": {
        "type": { "enum": ["startEvent", "endEvent"] },
        "id": { "type": "string", "minLength": 1 },
        "label": { "type": "string" }
      }
    },
    "branch": {
      "type": "object",
      "required": ["condition", "path"],
      "properties": {
        "condition": { "type": "string" },
        "path": { "type": "array", "items": { "type": "object" } },
        "next": { "type": ["string", "null"] }
      }
    },
    "exclusiveGateway": {
      "type": "object",
      "required": ["type", "id", "label", "has_join", "branches"],
      "properties": {
        "type": { "const": "exclusiveGateway" },
        "id": { "type": "string", "minLength": 1 },
        "label": { "type": "string", "minLength": 1 },
        "has_join": { "type": "boolean" },
        "branches": {
          "type": "array",
          "minItems": 1,
          "items": { "$ref": "#/$defs/branch" }
        }
      }
    },
    "parallelGateway": {
      "type": "object",
      "required": ["type", "id", "branches"],
      "properties": {
        "type": { "const": "parallelGateway" },
        "id": { "type": "string", "minLength": 1 },
        "branches": {
          "type": "array",
          "minItems": 1,
          "items": { "type": "array", "items": { "type": "object" } }
        }
      }
    }
  }
}`

// schemaSet holds the compiled process schema and one compiled schema per
// element definition. Compiled schemas are immutable and safe for concurrent use.
type schemaSet struct {
	process *jsonschema.Schema
	defs    map[string]*jsonschema.Schema
}

func compileSchemas() (*schemaSet, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(processSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal process schema: %w", err)
	}
	if err := c.AddResource(processSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add process schema resource: %w", err)
	}

	process, err := c.Compile(processSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile process schema: %w", err)
	}

	set := &schemaSet{process: process, defs: make(map[string]*jsonschema.Schema)}
	for _, def := range []string{"task", "event", "branch", "exclusiveGateway", "parallelGateway"} {
		s, err := c.Compile(processSchemaURL + "#/$defs/" + def)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", def, err)
		}
		set.defs[def] = s
	}
	return set, nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// collectViolations walks a ValidationError tree and collects leaf error messages
// with their instance locations.
func collectViolations(err error) []string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}

// compact renders a decoded JSON value for inclusion in error messages.
func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
