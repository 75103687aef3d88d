package transform

import (
	"strings"

	"github.com/rendis/bpmnflow/internal/flowgraph"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// Build turns a flow graph into a structured process rooted at its single
// start event. It fails with a STRUCTURAL_ERROR when the graph has no unique
// start event, when a gateway lacks the join it requires, or when a flow
// points at an unknown element.
func Build(g *flowgraph.Graph) (schema.Sequence, error) {
	starts := g.ElementsOfType(schema.ElementStartEvent)
	switch len(starts) {
	case 0:
		return nil, schema.NewError(schema.ErrCodeStructural, "No start event found in the process")
	case 1:
	default:
		ids := make([]string, len(starts))
		for i, s := range starts {
			ids[i] = s.ID
		}
		return nil, schema.NewErrorf(schema.ErrCodeStructural,
			"Process must have exactly one start event, found %d: %s", len(starts), strings.Join(ids, ", ")).
			WithElement(starts[1].ID)
	}

	b := &builder{g: g, exits: make(map[string]string)}
	return b.build(starts[0].ID, "", make(map[string]bool))
}

type builder struct {
	g *flowgraph.Graph
	// exits maps a gateway with a join to the element following that join.
	exits map[string]string
}

// build emits the sequence starting at current. It yields an empty sequence
// on a revisit or on reaching stopAt, which is left unconsumed.
func (b *builder) build(current, stopAt string, visited map[string]bool) (schema.Sequence, error) {
	seq := schema.Sequence{}
	for current != "" && current != stopAt && !visited[current] {
		visited[current] = true

		el, ok := b.g.Element(current)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeStructural,
				"Flow target %s is not a supported element of the process", current).WithElement(current)
		}

		var (
			node schema.Node
			next string
			err  error
		)
		switch el.Type {
		case schema.ElementExclusiveGateway:
			node, next, err = b.exclusive(el, stopAt, visited)
		case schema.ElementParallelGateway:
			node, next, err = b.parallel(el, stopAt, visited)
		default:
			node = leaf(el)
			if out := b.g.Outgoing(el.ID); len(out) == 1 {
				next = out[0].Target
			}
		}
		if err != nil {
			return nil, err
		}

		seq = append(seq, node)
		current = next
	}
	return seq, nil
}

func leaf(el *flowgraph.Element) schema.Node {
	if el.Type.IsEvent() {
		return &schema.Event{Type: el.Type, ID: el.ID, Label: el.Label}
	}
	return &schema.Task{Type: el.Type, ID: el.ID, Label: el.Label}
}

// endpoint is the common endpoint of gateway traced up to the enclosing
// stopAt. A gateway that only meets itself or the enclosing stopAt has no
// endpoint of its own.
func (b *builder) endpoint(gateway, stopAt string) string {
	id, ok := commonEndpoint(tracePaths(b.g, gateway, stopAt))
	if !ok || id == gateway || id == stopAt {
		return ""
	}
	return id
}

// exclusive builds an exclusive gateway. Without an endpoint of its own its
// branches run to the enclosing stopAt and nothing follows it.
func (b *builder) exclusive(el *flowgraph.Element, stopAt string, visited map[string]bool) (schema.Node, string, error) {
	gw := &schema.ExclusiveGateway{ID: el.ID, Label: el.Label, Branches: []schema.Branch{}}

	end := b.endpoint(el.ID, stopAt)
	next := end
	if end != "" {
		if join, ok := b.g.Element(end); ok && join.Type == schema.ElementExclusiveGateway {
			out := b.g.Outgoing(end)
			if len(out) != 1 {
				return nil, "", schema.NewErrorf(schema.ErrCodeStructural,
					"Join gateway %s of exclusive gateway %s should have exactly one outgoing flow", end, el.ID).
					WithElement(el.ID)
			}
			gw.HasJoin = true
			next = out[0].Target
			b.exits[el.ID] = next
		}
	}

	bound := end
	if bound == "" {
		bound = stopAt
	}
	for _, f := range b.g.Outgoing(el.ID) {
		path, err := b.build(f.Target, bound, visited)
		if err != nil {
			return nil, "", err
		}
		branch := schema.Branch{Condition: f.Condition, Path: path}
		b.assignNext(&branch, f.Target, bound)
		gw.Branches = append(gw.Branches, branch)
	}
	return gw, next, nil
}

func (b *builder) parallel(el *flowgraph.Element, stopAt string, visited map[string]bool) (schema.Node, string, error) {
	gw := &schema.ParallelGateway{ID: el.ID, Branches: []schema.Sequence{}}

	join := b.endpoint(el.ID, stopAt)
	joinEl, ok := b.g.Element(join)
	if join == "" || !ok || joinEl.Type != schema.ElementParallelGateway || len(b.g.Outgoing(join)) != 1 {
		return nil, "", schema.NewErrorf(schema.ErrCodeStructural,
			"Parallel gateway %s must have a corresponding join gateway", el.ID).WithElement(el.ID)
	}
	next := b.g.Outgoing(join)[0].Target
	b.exits[el.ID] = next

	for _, f := range b.g.Outgoing(el.ID) {
		path, err := b.build(f.Target, join, copyVisited(visited))
		if err != nil {
			return nil, "", err
		}
		gw.Branches = append(gw.Branches, path)
	}
	return gw, next, nil
}

// assignNext sets branch.Next when the branch does not continue into end.
// entry is the target of the flow that opens the branch. A join-less
// exclusive gateway at the tail hands the decision down to its own branches.
func (b *builder) assignNext(branch *schema.Branch, entry, end string) {
	branch.Next = ""
	if len(branch.Path) == 0 {
		if entry != end {
			branch.Next = entry
		}
		return
	}

	tail := branch.Path[len(branch.Path)-1]
	if eg, ok := tail.(*schema.ExclusiveGateway); ok && !eg.HasJoin {
		out := b.g.Outgoing(eg.ID)
		for i := range eg.Branches {
			if i < len(out) {
				b.assignNext(&eg.Branches[i], out[i].Target, end)
			}
		}
		return
	}

	if exit := b.exit(tail); exit != "" && exit != end {
		branch.Next = exit
	}
}

// exit is the element a node hands control to once it completes: the
// successor of its join for a gateway with a join, else its single successor.
func (b *builder) exit(n schema.Node) string {
	if next, ok := b.exits[n.NodeID()]; ok {
		return next
	}
	if out := b.g.Outgoing(n.NodeID()); len(out) == 1 && !n.NodeType().IsGateway() {
		return out[0].Target
	}
	return ""
}

func copyVisited(visited map[string]bool) map[string]bool {
	out := make(map[string]bool, len(visited))
	for k, v := range visited {
		out[k] = v
	}
	return out
}
