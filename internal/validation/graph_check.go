package validation

import (
	"fmt"

	"github.com/rendis/bpmnflow/internal/transform"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// validateGraph flattens the process and runs reachability analysis on the
// resulting flow graph: elements the start event cannot reach, and elements
// other than end events that have nowhere to go.
func validateGraph(process schema.Sequence) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	g, err := transform.Flatten(process)
	if err != nil {
		result.AddError("/", schema.ErrCodeStructural, err.Error())
		return result
	}

	starts := g.ElementsOfType(schema.ElementStartEvent)
	if len(starts) != 1 {
		return result // reported by the semantic stage
	}

	reachable := map[string]bool{starts[0].ID: true}
	queue := []string{starts[0].ID}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.Successors(node) {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, el := range g.Elements() {
		if !reachable[el.ID] {
			result.AddWarning(el.ID, schema.ErrCodeValidation,
				fmt.Sprintf("element %q is unreachable from the start event", el.ID))
			continue
		}
		if el.Type != schema.ElementEndEvent && len(g.Outgoing(el.ID)) == 0 {
			result.AddWarning(el.ID, schema.ErrCodeValidation,
				fmt.Sprintf("element %q has no outgoing flow and is not an end event", el.ID))
		}
	}

	return result
}
