package validation

import "github.com/rendis/bpmnflow/pkg/schema"

// Validator checks structured processes before they are accepted, both right
// after a conversion and after every external edit.
type Validator interface {
	ValidateProcess(process schema.Sequence) error
	ValidateElement(node schema.Node) error
}
