package validation

import (
	"fmt"

	"github.com/rendis/bpmnflow/pkg/schema"
)

// violation is the first structural problem found in a process.
type violation struct {
	id      string
	code    string
	message string
	payload any
}

func (v *violation) result() *schema.ValidationResult {
	r := &schema.ValidationResult{}
	path := v.id
	if path == "" {
		path = "/"
	}
	r.AddElementError(path, v.code, v.message, v.payload)
	return r
}

func newViolation(payload any, id, code, format string, args ...any) *violation {
	return &violation{id: id, code: code, message: fmt.Sprintf(format, args...), payload: payload}
}

// structuralWalk checks every element of a decoded JSON process depth-first,
// descending into gateway branches after the gateway itself, and stops at the
// first violation. Element ids are tracked across the whole process.
type structuralWalk struct {
	schemas *schemaSet
	seen    map[string]bool
}

func newStructuralWalk(s *schemaSet) *structuralWalk {
	return &structuralWalk{schemas: s, seen: make(map[string]bool)}
}

func (w *structuralWalk) process(doc any) *violation {
	if err := w.schemas.process.Validate(doc); err != nil {
		return newViolation(doc, "", schema.ErrCodeValidation,
			"Process must be a list of elements: %s", collectViolations(err)[0])
	}
	return w.sequence(doc.([]any))
}

func (w *structuralWalk) sequence(items []any) *violation {
	for _, item := range items {
		el, ok := item.(map[string]any)
		if !ok {
			return newViolation(item, "", schema.ErrCodeValidation, "Invalid element: %s", compact(item))
		}
		if v := checkElement(w.schemas, el); v != nil {
			return v
		}

		id := el["id"].(string)
		if w.seen[id] {
			return newViolation(el, id, schema.ErrCodeValidation, "Duplicate element ID found: %s", id)
		}
		w.seen[id] = true

		switch schema.ElementType(el["type"].(string)) {
		case schema.ElementExclusiveGateway:
			for _, b := range el["branches"].([]any) {
				if v := w.sequence(b.(map[string]any)["path"].([]any)); v != nil {
					return v
				}
			}
		case schema.ElementParallelGateway:
			for _, b := range el["branches"].([]any) {
				if v := w.sequence(b.([]any)); v != nil {
					return v
				}
			}
		}
	}
	return nil
}

// checkElement validates a single decoded element without descending into
// its branches. A nil result guarantees "id" and "type" are non-empty strings
// and that gateway branches have the documented shape.
func checkElement(s *schemaSet, el map[string]any) *violation {
	id, _ := el["id"].(string)
	if id == "" {
		return newViolation(el, "", schema.ErrCodeValidation, "Element is missing an ID: %s", compact(el))
	}
	typ, _ := el["type"].(string)
	if typ == "" {
		return newViolation(el, id, schema.ErrCodeValidation, "Element is missing a type: %s", compact(el))
	}

	et := schema.ElementType(typ)
	switch {
	case et.IsTask():
		if label, _ := el["label"].(string); label == "" {
			return newViolation(el, id, schema.ErrCodeValidation, "Task element is missing a label: %s", compact(el))
		}
		if s.defs["task"].Validate(el) != nil {
			return newViolation(el, id, schema.ErrCodeValidation, "Invalid task element: %s", compact(el))
		}
	case et.IsEvent():
		if s.defs["event"].Validate(el) != nil {
			return newViolation(el, id, schema.ErrCodeValidation, "Invalid event element: %s", compact(el))
		}
	case et == schema.ElementExclusiveGateway:
		return checkExclusive(s, el, id)
	case et == schema.ElementParallelGateway:
		return checkParallel(s, el, id)
	default:
		return newViolation(el, id, schema.ErrCodeUnsupported,
			"Unsupported element type: %s. Supported types: %s", typ, schema.SupportedTypesString())
	}
	return nil
}

func checkExclusive(s *schemaSet, el map[string]any, id string) *violation {
	if label, _ := el["label"].(string); label == "" {
		return newViolation(el, id, schema.ErrCodeValidation, "Exclusive gateway is missing a label: %s", compact(el))
	}
	branches, ok := el["branches"].([]any)
	if !ok || len(branches) == 0 {
		return newViolation(el, id, schema.ErrCodeValidation,
			"Exclusive gateway is missing or has invalid 'branches': %s", compact(el))
	}
	for _, b := range branches {
		branch, ok := b.(map[string]any)
		_, hasCondition := branch["condition"]
		_, hasPath := branch["path"]
		if !ok || !hasCondition || !hasPath || s.defs["branch"].Validate(b) != nil {
			return newViolation(b, id, schema.ErrCodeValidation, "Invalid branch in exclusive gateway: %s", compact(b))
		}
	}
	if s.defs["exclusiveGateway"].Validate(el) != nil {
		return newViolation(el, id, schema.ErrCodeValidation, "Invalid exclusive gateway element: %s", compact(el))
	}
	return nil
}

func checkParallel(s *schemaSet, el map[string]any, id string) *violation {
	branches, ok := el["branches"].([]any)
	if !ok || len(branches) == 0 {
		return newViolation(el, id, schema.ErrCodeValidation,
			"Parallel gateway has missing or invalid 'branches': %s", compact(el))
	}
	if s.defs["parallelGateway"].Validate(el) != nil {
		return newViolation(el, id, schema.ErrCodeValidation, "Invalid parallel gateway element: %s", compact(el))
	}
	return nil
}
