package validation

import (
	"fmt"
	"strings"

	"github.com/rendis/bpmnflow/pkg/schema"
)

// validateSemantic checks process-wide rules on a structurally valid process:
// a single start event that opens the process, branch "next" references, and
// gateways that do not actually split.
func validateSemantic(process schema.Sequence) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	ids := make(map[string]bool)
	var starts []string
	_ = schema.Walk(process, func(n schema.Node) error {
		ids[n.NodeID()] = true
		if n.NodeType() == schema.ElementStartEvent {
			starts = append(starts, n.NodeID())
		}
		return nil
	})

	switch {
	case len(starts) == 0:
		result.AddError("/", schema.ErrCodeValidation, "Process must contain a start event")
	case len(starts) > 1:
		result.AddError(starts[1], schema.ErrCodeValidation,
			fmt.Sprintf("Process must have exactly one start event, found %d: %s", len(starts), strings.Join(starts, ", ")))
	case process[0].NodeType() != schema.ElementStartEvent:
		result.AddError(starts[0], schema.ErrCodeValidation,
			fmt.Sprintf("Start event %s must be the first element of the process", starts[0]))
	}

	_ = schema.Walk(process, func(n schema.Node) error {
		switch g := n.(type) {
		case *schema.ExclusiveGateway:
			if len(g.Branches) == 1 {
				result.AddWarning(g.ID, schema.ErrCodeValidation,
					fmt.Sprintf("exclusive gateway %s has a single branch", g.ID))
			}
			for _, b := range g.Branches {
				if b.Next != "" && !ids[b.Next] {
					result.AddWarning(g.ID, schema.ErrCodeValidation,
						fmt.Sprintf("branch %q of exclusive gateway %s continues at unknown element %q", b.Condition, g.ID, b.Next))
				}
			}
		case *schema.ParallelGateway:
			if len(g.Branches) == 1 {
				result.AddWarning(g.ID, schema.ErrCodeValidation,
					fmt.Sprintf("parallel gateway %s has a single branch", g.ID))
			}
		}
		return nil
	})

	return result
}
