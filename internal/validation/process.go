package validation

import (
	"encoding/json"
	"strings"

	"github.com/rendis/bpmnflow/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ProcessValidator orchestrates the three-stage validation pipeline:
// 1. Structural (element shape, JSON Schema per kind, global id uniqueness)
// 2. Semantic (start event, branch references, degenerate gateways)
// 3. Graph (reachability of the flattened flow graph)
//
// It is safe for concurrent use.
type ProcessValidator struct {
	schemas *schemaSet
}

var _ Validator = (*ProcessValidator)(nil)

// NewProcessValidator creates a ProcessValidator with all schemas pre-compiled.
func NewProcessValidator() (*ProcessValidator, error) {
	s, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &ProcessValidator{schemas: s}, nil
}

// Validate runs the full pipeline and returns an aggregated result.
// Structural errors short-circuit: semantic and graph stages are skipped.
func (pv *ProcessValidator) Validate(process schema.Sequence) *schema.ValidationResult {
	doc, err := toJSONValue(process)
	if err != nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "failed to serialize process: "+err.Error())
		return r
	}
	return pv.validate(doc, process)
}

// ValidateDocument validates a JSON or YAML process document (see
// schema.NormalizeDocument) and decodes it. The returned process is nil
// whenever the result is invalid.
func (pv *ProcessValidator) ValidateDocument(data []byte) (schema.Sequence, *schema.ValidationResult) {
	raw, err := schema.NormalizeDocument(data)
	if err != nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, err.Error())
		return nil, r
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "invalid process document: "+err.Error())
		return nil, r
	}

	if v := newStructuralWalk(pv.schemas).process(doc); v != nil {
		return nil, v.result()
	}

	var process schema.Sequence
	if err := json.Unmarshal(raw, &process); err != nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "invalid process document: "+err.Error())
		return nil, r
	}

	result := validateProcessRules(process)
	if !result.Valid() {
		return nil, result
	}
	return process, result
}

func (pv *ProcessValidator) validate(doc any, process schema.Sequence) *schema.ValidationResult {
	// Stage 1: Structural.
	if v := newStructuralWalk(pv.schemas).process(doc); v != nil {
		return v.result()
	}
	return validateProcessRules(process)
}

// validateProcessRules runs the stages that need a decoded process.
func validateProcessRules(process schema.Sequence) *schema.ValidationResult {
	// Stage 2: Semantic.
	result := validateSemantic(process)

	// Stage 3: Graph (skip if semantic errors).
	if result.Valid() {
		result.Merge(validateGraph(process))
	}
	return result
}

// ValidateProcess satisfies the Validator interface.
func (pv *ProcessValidator) ValidateProcess(process schema.Sequence) error {
	return pv.Validate(process).ToError()
}

// ValidateElement checks a single element, including the shape of its
// branches, without descending into them or checking id uniqueness.
func (pv *ProcessValidator) ValidateElement(node schema.Node) error {
	if node == nil {
		return schema.NewError(schema.ErrCodeValidation, "element is nil")
	}
	doc, err := toJSONValue(node)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize element").WithCause(err)
	}
	return pv.validateElementValue(doc)
}

// ValidateElementJSON is ValidateElement for a raw JSON element.
func (pv *ProcessValidator) ValidateElementJSON(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid element JSON").WithCause(err)
	}
	return pv.validateElementValue(doc)
}

func (pv *ProcessValidator) validateElementValue(doc any) error {
	el, ok := doc.(map[string]any)
	if !ok {
		return schema.NewErrorf(schema.ErrCodeValidation, "Invalid element: %s", compact(doc))
	}
	if v := checkElement(pv.schemas, el); v != nil {
		return v.result().ToError()
	}
	return nil
}
