package diagram

import (
	"github.com/rendis/bpmnflow/internal/flowgraph"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// DefaultTitle is used when Build is given an empty title.
const DefaultTitle = "Process"

// Build constructs a DiagramModel from a flow graph. Nodes keep the graph's
// element order and levels are breadth-first distances from the start events.
// Validation issues, if given, are overlaid on the node named by their path.
func Build(g *flowgraph.Graph, title string, issues ...schema.ValidationIssue) (*DiagramModel, error) {
	elements := g.Elements()
	if len(elements) == 0 {
		return nil, schema.NewError(schema.ErrCodeRender, "process has no elements to render")
	}
	if title == "" {
		title = DefaultTitle
	}

	model := &DiagramModel{Title: title, Nodes: make([]*Node, 0, len(elements))}
	for _, el := range elements {
		model.Nodes = append(model.Nodes, &Node{
			ID:    el.ID,
			Label: nodeLabel(el),
			Kind:  elementKind(el.Type),
		})
	}
	for _, f := range g.Flows() {
		model.Edges = append(model.Edges, Edge{From: f.Source, To: f.Target, Label: f.Condition})
	}

	model.Levels = g.Levels(roots(g)...)
	overlayIssues(model, issues)
	return model, nil
}

// roots are the start events, or every element without incoming flows when
// the graph has none.
func roots(g *flowgraph.Graph) []string {
	var ids []string
	for _, el := range g.ElementsOfType(schema.ElementStartEvent) {
		ids = append(ids, el.ID)
	}
	if len(ids) > 0 {
		return ids
	}
	for _, el := range g.Elements() {
		if len(g.Incoming(el.ID)) == 0 {
			ids = append(ids, el.ID)
		}
	}
	return ids
}

func elementKind(t schema.ElementType) NodeKind {
	switch t {
	case schema.ElementStartEvent:
		return NodeKindStart
	case schema.ElementEndEvent:
		return NodeKindEnd
	case schema.ElementUserTask:
		return NodeKindUserTask
	case schema.ElementServiceTask:
		return NodeKindServiceTask
	case schema.ElementExclusiveGateway:
		return NodeKindExclusive
	case schema.ElementParallelGateway:
		return NodeKindParallel
	default:
		return NodeKindTask
	}
}

// nodeLabel falls back to a BPMN marker for unlabeled gateways and to the
// element id otherwise.
func nodeLabel(el *flowgraph.Element) string {
	if el.Label != "" {
		return el.Label
	}
	switch el.Type {
	case schema.ElementExclusiveGateway:
		return "X"
	case schema.ElementParallelGateway:
		return "+"
	case schema.ElementStartEvent:
		return "Start"
	case schema.ElementEndEvent:
		return "End"
	}
	return el.ID
}

func overlayIssues(model *DiagramModel, issues []schema.ValidationIssue) {
	for _, issue := range issues {
		node := model.Node(issue.Path)
		if node == nil {
			continue
		}
		if node.Issue == nil {
			node.Issue = &IssueOverlay{Severity: issue.Severity, Message: issue.Message}
		} else if issue.Severity == schema.SeverityError && node.Issue.Severity != schema.SeverityError {
			node.Issue.Severity = issue.Severity
			node.Issue.Message = issue.Message
		}
		node.Issue.Count++
	}
}
