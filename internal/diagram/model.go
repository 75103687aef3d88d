package diagram

import "github.com/rendis/bpmnflow/pkg/schema"

// NodeKind classifies a diagram node by its BPMN element type.
type NodeKind string

const (
	NodeKindStart       NodeKind = "start"
	NodeKindEnd         NodeKind = "end"
	NodeKindTask        NodeKind = "task"
	NodeKindUserTask    NodeKind = "userTask"
	NodeKindServiceTask NodeKind = "serviceTask"
	NodeKindExclusive   NodeKind = "exclusive"
	NodeKindParallel    NodeKind = "parallel"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents a single flow element in the diagram.
type Node struct {
	ID    string
	Label string
	Kind  NodeKind
	Issue *IssueOverlay
}

// IssueOverlay carries the validation findings attached to a node.
// Severity is the most severe finding; Count includes all of them.
type IssueOverlay struct {
	Severity schema.ValidationSeverity
	Message  string
	Count    int
}

// Edge is a sequence flow between two nodes. Label is the flow condition.
type Edge struct {
	From  string
	To    string
	Label string
}

// Node returns the node with the given id, or nil.
func (m *DiagramModel) Node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
