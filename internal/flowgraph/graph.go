package flowgraph

import (
	"github.com/rendis/bpmnflow/pkg/schema"
)

// Element is a typed node of the flow graph.
type Element struct {
	ID    string
	Type  schema.ElementType
	Label string
}

// Flow is a directed edge between two elements. Condition is only meaningful
// on flows leaving an exclusive gateway.
type Flow struct {
	ID        string
	Source    string
	Target    string
	Condition string
}

// Graph is an id-keyed arena of elements and flows. Insertion order is kept
// for both, and Outgoing/Incoming return flows in insertion order.
// Graph performs no cross-validation: flows may reference unknown ids.
type Graph struct {
	elements map[string]*Element
	order    []string
	flows    map[string]*Flow
	flowIDs  []string
	outgoing map[string][]*Flow
	incoming map[string][]*Flow
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		elements: make(map[string]*Element),
		flows:    make(map[string]*Flow),
		outgoing: make(map[string][]*Flow),
		incoming: make(map[string][]*Flow),
	}
}

// AddElement registers an element. A second element with the same id is rejected.
func (g *Graph) AddElement(e Element) error {
	if e.ID == "" {
		return schema.NewErrorf(schema.ErrCodeStructural, "%s element has no id", e.Type)
	}
	if _, exists := g.elements[e.ID]; exists {
		return schema.NewErrorf(schema.ErrCodeStructural, "Duplicate element ID found: %s", e.ID).WithElement(e.ID)
	}
	el := e
	g.elements[e.ID] = &el
	g.order = append(g.order, e.ID)
	return nil
}

// AddFlow registers a flow. A second flow with the same id is rejected.
func (g *Graph) AddFlow(f Flow) error {
	if f.ID == "" {
		return schema.NewErrorf(schema.ErrCodeStructural, "flow %s -> %s has no id", f.Source, f.Target)
	}
	if _, exists := g.flows[f.ID]; exists {
		return schema.NewErrorf(schema.ErrCodeStructural, "Duplicate flow ID found: %s", f.ID).WithElement(f.ID)
	}
	fl := f
	g.flows[f.ID] = &fl
	g.flowIDs = append(g.flowIDs, f.ID)
	g.outgoing[f.Source] = append(g.outgoing[f.Source], &fl)
	g.incoming[f.Target] = append(g.incoming[f.Target], &fl)
	return nil
}

// Element returns the element with the given id.
func (g *Graph) Element(id string) (*Element, bool) {
	e, ok := g.elements[id]
	return e, ok
}

// HasFlow reports whether a flow with the given id exists.
func (g *Graph) HasFlow(id string) bool {
	_, ok := g.flows[id]
	return ok
}

// Elements returns all elements in insertion order.
func (g *Graph) Elements() []*Element {
	out := make([]*Element, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.elements[id])
	}
	return out
}

// Flows returns all flows in insertion order.
func (g *Graph) Flows() []*Flow {
	out := make([]*Flow, 0, len(g.flowIDs))
	for _, id := range g.flowIDs {
		out = append(out, g.flows[id])
	}
	return out
}

// Outgoing returns the flows leaving id.
func (g *Graph) Outgoing(id string) []*Flow {
	return g.outgoing[id]
}

// Incoming returns the flows entering id.
func (g *Graph) Incoming(id string) []*Flow {
	return g.incoming[id]
}

// Successors returns the target ids of the flows leaving id.
func (g *Graph) Successors(id string) []string {
	flows := g.outgoing[id]
	out := make([]string, len(flows))
	for i, f := range flows {
		out[i] = f.Target
	}
	return out
}

// ElementsOfType returns the elements of kind t in insertion order.
func (g *Graph) ElementsOfType(t schema.ElementType) []*Element {
	var out []*Element
	for _, id := range g.order {
		if e := g.elements[id]; e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of elements and flows.
func (g *Graph) Len() (elements, flows int) {
	return len(g.order), len(g.flowIDs)
}

// Levels groups element ids by breadth-first distance from the given roots.
// Each element appears once, at its shortest distance. Elements unreachable
// from any root are collected in a final level.
func (g *Graph) Levels(roots ...string) [][]string {
	depth := make(map[string]int, len(g.order))
	var levels [][]string
	frontier := make([]string, 0, len(roots))
	for _, r := range roots {
		if _, ok := g.elements[r]; ok {
			if _, seen := depth[r]; !seen {
				depth[r] = 0
				frontier = append(frontier, r)
			}
		}
	}
	for len(frontier) > 0 {
		levels = append(levels, frontier)
		var next []string
		for _, id := range frontier {
			for _, f := range g.outgoing[id] {
				if _, ok := g.elements[f.Target]; !ok {
					continue
				}
				if _, seen := depth[f.Target]; seen {
					continue
				}
				depth[f.Target] = len(levels)
				next = append(next, f.Target)
			}
		}
		frontier = next
	}

	var rest []string
	for _, id := range g.order {
		if _, seen := depth[id]; !seen {
			rest = append(rest, id)
		}
	}
	if len(rest) > 0 {
		levels = append(levels, rest)
	}
	return levels
}
