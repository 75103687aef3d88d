package schema

import (
	"encoding/json"
	"strings"
)

// ElementType enumerates the BPMN element kinds understood by the engine.
// Values are the BPMN 2.0 local tag names.
type ElementType string

const (
	ElementTask             ElementType = "task"
	ElementUserTask         ElementType = "userTask"
	ElementServiceTask      ElementType = "serviceTask"
	ElementStartEvent       ElementType = "startEvent"
	ElementEndEvent         ElementType = "endEvent"
	ElementExclusiveGateway ElementType = "exclusiveGateway"
	ElementParallelGateway  ElementType = "parallelGateway"
)

// SupportedElementTypes lists every element type in declaration order.
var SupportedElementTypes = []ElementType{
	ElementTask,
	ElementUserTask,
	ElementServiceTask,
	ElementStartEvent,
	ElementEndEvent,
	ElementExclusiveGateway,
	ElementParallelGateway,
}

// Valid reports whether t is one of SupportedElementTypes.
func (t ElementType) Valid() bool {
	for _, s := range SupportedElementTypes {
		if s == t {
			return true
		}
	}
	return false
}

// IsTask reports whether t is a task kind.
func (t ElementType) IsTask() bool {
	return t == ElementTask || t == ElementUserTask || t == ElementServiceTask
}

// IsEvent reports whether t is an event kind.
func (t ElementType) IsEvent() bool {
	return t == ElementStartEvent || t == ElementEndEvent
}

// IsGateway reports whether t is a gateway kind.
func (t ElementType) IsGateway() bool {
	return t == ElementExclusiveGateway || t == ElementParallelGateway
}

// Labeled reports whether elements of kind t carry a label (BPMN "name").
func (t ElementType) Labeled() bool {
	return t.Valid() && t != ElementParallelGateway
}

// SupportedTypesString renders SupportedElementTypes for error messages.
func SupportedTypesString() string {
	names := make([]string, len(SupportedElementTypes))
	for i, t := range SupportedElementTypes {
		names[i] = string(t)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Node is a structured process element. The set of implementations is closed:
// *Task, *Event, *ExclusiveGateway and *ParallelGateway.
type Node interface {
	NodeID() string
	NodeType() ElementType
	node()
}

// Task is a task, userTask or serviceTask.
type Task struct {
	Type  ElementType `json:"type"`
	ID    string      `json:"id"`
	Label string      `json:"label"`
}

// Event is a startEvent or endEvent. Label is optional.
type Event struct {
	Type  ElementType `json:"type"`
	ID    string      `json:"id"`
	Label string      `json:"label,omitempty"`
}

// ExclusiveGateway splits the flow into conditional branches.
// HasJoin tells whether the branches reconverge on a dedicated join gateway.
type ExclusiveGateway struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	HasJoin  bool     `json:"has_join"`
	Branches []Branch `json:"branches"`
}

// Branch is one conditional path of an exclusive gateway.
// Next is set only when the branch does not continue into the gateway's
// default continuation.
type Branch struct {
	Condition string   `json:"condition"`
	Path      Sequence `json:"path"`
	Next      string   `json:"next,omitempty"`
}

// ParallelGateway forks into branches that always reconverge on a join.
type ParallelGateway struct {
	ID       string     `json:"id"`
	Branches []Sequence `json:"branches"`
}

func (t *Task) NodeID() string        { return t.ID }
func (t *Task) NodeType() ElementType { return t.Type }
func (*Task) node()                   {}

func (e *Event) NodeID() string        { return e.ID }
func (e *Event) NodeType() ElementType { return e.Type }
func (*Event) node()                   {}

func (g *ExclusiveGateway) NodeID() string      { return g.ID }
func (*ExclusiveGateway) NodeType() ElementType { return ElementExclusiveGateway }
func (*ExclusiveGateway) node()                 {}

func (g *ParallelGateway) NodeID() string      { return g.ID }
func (*ParallelGateway) NodeType() ElementType { return ElementParallelGateway }
func (*ParallelGateway) node()                 {}

// MarshalJSON adds the fixed "type" discriminator.
func (g *ExclusiveGateway) MarshalJSON() ([]byte, error) {
	type alias ExclusiveGateway
	branches := g.Branches
	if branches == nil {
		branches = []Branch{}
	}
	return json.Marshal(struct {
		Type ElementType `json:"type"`
		alias
	}{ElementExclusiveGateway, alias{ID: g.ID, Label: g.Label, HasJoin: g.HasJoin, Branches: branches}})
}

// MarshalJSON adds the fixed "type" discriminator.
func (g *ParallelGateway) MarshalJSON() ([]byte, error) {
	type alias ParallelGateway
	branches := g.Branches
	if branches == nil {
		branches = []Sequence{}
	}
	return json.Marshal(struct {
		Type ElementType `json:"type"`
		alias
	}{ElementParallelGateway, alias{ID: g.ID, Branches: branches}})
}

// Sequence is an ordered list of structured nodes. A process is the top-level
// Sequence, beginning at its start event; branch paths are nested Sequences.
type Sequence []Node

// MarshalJSON always encodes an empty sequence as [].
func (s Sequence) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Node(s))
}

// UnmarshalJSON decodes each element by its "type" discriminator.
func (s *Sequence) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Sequence, 0, len(raws))
	for _, raw := range raws {
		n, err := decodeNode(raw)
		if err != nil {
			return err
		}
		out = append(out, n)
	}
	*s = out
	return nil
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var probe struct {
		Type ElementType `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	var n Node
	switch {
	case probe.Type.IsTask():
		n = &Task{}
	case probe.Type.IsEvent():
		n = &Event{}
	case probe.Type == ElementExclusiveGateway:
		n = &ExclusiveGateway{}
	case probe.Type == ElementParallelGateway:
		n = &ParallelGateway{}
	default:
		return nil, NewErrorf(ErrCodeUnsupported, "Unsupported element type: %s. Supported types: %s",
			probe.Type, SupportedTypesString())
	}
	if err := json.Unmarshal(raw, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Walk visits every node depth-first, descending into gateway branches after
// the gateway itself. It stops at the first error returned by fn.
func Walk(seq Sequence, fn func(Node) error) error {
	for _, n := range seq {
		if err := fn(n); err != nil {
			return err
		}
		switch g := n.(type) {
		case *ExclusiveGateway:
			for _, b := range g.Branches {
				if err := Walk(b.Path, fn); err != nil {
					return err
				}
			}
		case *ParallelGateway:
			for _, b := range g.Branches {
				if err := Walk(b, fn); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// IDs returns every element id of seq in Walk order.
func (s Sequence) IDs() []string {
	var ids []string
	_ = Walk(s, func(n Node) error {
		ids = append(ids, n.NodeID())
		return nil
	})
	return ids
}
