package transform

import (
	"strconv"

	"github.com/rendis/bpmnflow/internal/flowgraph"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// JoinSuffix is appended to a gateway id to name its synthesized join.
const JoinSuffix = "-join"

// FlowID names the flow from source to target.
func FlowID(source, target string) string {
	return source + "-" + target
}

// JoinID names the join synthesized for gateway.
func JoinID(gateway string) string {
	return gateway + JoinSuffix
}

// Flatten turns a structured process back into a flow graph. Flow ids are
// derived from their endpoints, so repeated flattenings of the same process
// produce identical graphs. The process is expected to be valid; a repeated
// element id surfaces as a STRUCTURAL_ERROR.
func Flatten(process schema.Sequence) (*flowgraph.Graph, error) {
	f := &flattener{g: flowgraph.New()}
	if err := f.sequence(process, ""); err != nil {
		return nil, err
	}
	return f.g, nil
}

type flattener struct {
	g *flowgraph.Graph
}

// sequence chains the nodes of seq and connects the last one to cont.
func (f *flattener) sequence(seq schema.Sequence, cont string) error {
	for i, n := range seq {
		next := cont
		if i+1 < len(seq) {
			next = seq[i+1].NodeID()
		}
		if err := f.node(n, next); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) node(n schema.Node, next string) error {
	switch v := n.(type) {
	case *schema.Task:
		if err := f.g.AddElement(flowgraph.Element{ID: v.ID, Type: v.Type, Label: v.Label}); err != nil {
			return err
		}
		return f.connect(v.ID, next, "")
	case *schema.Event:
		if err := f.g.AddElement(flowgraph.Element{ID: v.ID, Type: v.Type, Label: v.Label}); err != nil {
			return err
		}
		if v.Type == schema.ElementEndEvent {
			return nil
		}
		return f.connect(v.ID, next, "")
	case *schema.ExclusiveGateway:
		return f.exclusive(v, next)
	case *schema.ParallelGateway:
		return f.parallel(v, next)
	}
	return schema.NewErrorf(schema.ErrCodeUnsupported, "Unsupported element type: %s. Supported types: %s",
		n.NodeType(), schema.SupportedTypesString()).WithElement(n.NodeID())
}

func (f *flattener) exclusive(gw *schema.ExclusiveGateway, next string) error {
	if err := f.g.AddElement(flowgraph.Element{ID: gw.ID, Type: schema.ElementExclusiveGateway, Label: gw.Label}); err != nil {
		return err
	}
	target := next
	if gw.HasJoin {
		target = JoinID(gw.ID)
		if err := f.g.AddElement(flowgraph.Element{ID: target, Type: schema.ElementExclusiveGateway}); err != nil {
			return err
		}
	}

	for _, br := range gw.Branches {
		t := target
		if br.Next != "" {
			t = br.Next
		}
		if err := f.branch(gw.ID, br.Path, t, br.Condition); err != nil {
			return err
		}
	}

	if gw.HasJoin {
		return f.connect(target, next, "")
	}
	return nil
}

func (f *flattener) parallel(gw *schema.ParallelGateway, next string) error {
	if err := f.g.AddElement(flowgraph.Element{ID: gw.ID, Type: schema.ElementParallelGateway}); err != nil {
		return err
	}
	join := JoinID(gw.ID)
	if err := f.g.AddElement(flowgraph.Element{ID: join, Type: schema.ElementParallelGateway}); err != nil {
		return err
	}

	for _, br := range gw.Branches {
		if err := f.branch(gw.ID, br, join, ""); err != nil {
			return err
		}
	}
	return f.connect(join, next, "")
}

// branch flattens path towards cont, then opens it from gateway. An empty path
// connects the gateway straight to cont.
func (f *flattener) branch(gateway string, path schema.Sequence, cont, condition string) error {
	if len(path) == 0 {
		return f.connect(gateway, cont, condition)
	}
	if err := f.sequence(path, cont); err != nil {
		return err
	}
	return f.connect(gateway, path[0].NodeID(), condition)
}

// connect adds a flow from source to target unless target is empty.
// Parallel flows between the same pair get a numeric suffix.
func (f *flattener) connect(source, target, condition string) error {
	if target == "" {
		return nil
	}
	id := FlowID(source, target)
	for i := 2; f.g.HasFlow(id); i++ {
		id = FlowID(source, target) + "_" + strconv.Itoa(i)
	}
	return f.g.AddFlow(flowgraph.Flow{ID: id, Source: source, Target: target, Condition: condition})
}
