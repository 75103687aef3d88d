package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rendis/bpmnflow/internal/flowgraph"
	"github.com/rendis/bpmnflow/pkg/schema"
)

func start(id string) *schema.Event { return &schema.Event{Type: schema.ElementStartEvent, ID: id} }
func end(id string) *schema.Event   { return &schema.Event{Type: schema.ElementEndEvent, ID: id} }
func task(id, label string) *schema.Task {
	return &schema.Task{Type: schema.ElementTask, ID: id, Label: label}
}

func branch(cond string, path ...schema.Node) schema.Branch {
	return schema.Branch{Condition: cond, Path: schema.Sequence(append([]schema.Node{}, path...))}
}

func seq(nodes ...schema.Node) schema.Sequence {
	return schema.Sequence(append([]schema.Node{}, nodes...))
}

// edge is source, target and an optional condition.
type edge [3]string

func graphOf(t *testing.T, elements map[string]schema.ElementType, order []string, edges ...edge) *flowgraph.Graph {
	t.Helper()
	g := flowgraph.New()
	for _, id := range order {
		require.NoError(t, g.AddElement(flowgraph.Element{ID: id, Type: elements[id], Label: id}))
	}
	for _, e := range edges {
		require.NoError(t, g.AddFlow(flowgraph.Flow{ID: FlowID(e[0], e[1]), Source: e[0], Target: e[1], Condition: e[2]}))
	}
	return g
}

// Processes shared by the build and flatten tests.
var (
	linearProcess = seq(start("start1"), task("task1", "Do work"), end("end1"))

	procurementProcess = seq(
		start("start1"),
		&schema.ParallelGateway{ID: "parallel1", Branches: []schema.Sequence{
			seq(task("task1", "Check stock"), task("task2", "Reserve items")),
			seq(task("task3", "Request quote"), task("task4", "Approve quote")),
		}},
		end("end1"),
	)

	orderProcess = seq(
		start("start1"),
		task("task1", "Receive order"),
		&schema.ExclusiveGateway{ID: "exclusive1", Label: "Product in stock?", Branches: []schema.Branch{
			branch("Product is out of stock", task("task2", "Notify customer")),
			branch("Product is in stock", &schema.ExclusiveGateway{ID: "exclusive2", Label: "Payment result", Branches: []schema.Branch{
				branch("Payment succeeds", task("task3", "Ship order"), task("task4", "Send invoice")),
				branch("Payment fails", task("task5", "Cancel order")),
			}}),
		}},
		end("end1"),
	)

	parallelInExclusiveProcess = seq(
		start("start1"),
		&schema.ExclusiveGateway{ID: "exclusive1", Label: "Route", HasJoin: true, Branches: []schema.Branch{
			branch("A", task("task2", "Handle A")),
			branch("B", &schema.ParallelGateway{ID: "parallel1", Branches: []schema.Sequence{
				seq(task("task3", "Left")),
				seq(task("task4", "Right")),
			}}),
		}},
		end("end1"),
	)

	emptyPathProcess = seq(
		start("start1"),
		task("task1", "Prepare"),
		task("task2", "Review"),
		&schema.ExclusiveGateway{ID: "exclusive1", Label: "Needs fix?", Branches: []schema.Branch{
			branch("Yes", task("task3", "Fix")),
			branch("No"),
		}},
		end("end1"),
	)

	nestedJoinProcess = seq(
		start("start1"),
		&schema.ExclusiveGateway{ID: "eg1", Label: "Outer", HasJoin: true, Branches: []schema.Branch{
			branch("A", &schema.ExclusiveGateway{ID: "eg2", Label: "Inner", HasJoin: true, Branches: []schema.Branch{
				branch("x", task("t1", "X")),
				branch("y", task("t2", "Y")),
			}}),
			branch("B", task("t3", "Z")),
		}},
		task("t4", "After"),
		end("end1"),
	)

	joinlessAtBranchTailProcess = seq(
		start("start1"),
		&schema.ExclusiveGateway{ID: "eg1", Label: "Outer", HasJoin: true, Branches: []schema.Branch{
			branch("A", &schema.ExclusiveGateway{ID: "eg2", Label: "Inner", Branches: []schema.Branch{
				branch("x", task("t1", "X")),
				branch("y", task("t2", "Y"), end("end2")),
			}}),
			branch("B", task("t3", "Z")),
		}},
		task("t4", "After"),
		end("end1"),
	)

	joinlessIntoOuterJoinProcess = seq(
		start("start1"),
		&schema.ExclusiveGateway{ID: "eg1", Label: "Outer", HasJoin: true, Branches: []schema.Branch{
			branch("A", &schema.ExclusiveGateway{ID: "eg2", Label: "Inner", Branches: []schema.Branch{
				branch("x", task("t1", "X")),
				branch("y", task("t2", "Y")),
				branch("z"),
			}}),
			branch("B", task("t3", "Z")),
		}},
		task("t4", "After"),
		end("end1"),
	)

	joinlessInParallelProcess = seq(
		start("start1"),
		&schema.ParallelGateway{ID: "parallel1", Branches: []schema.Sequence{
			seq(&schema.ExclusiveGateway{ID: "eg1", Label: "Pick", Branches: []schema.Branch{
				branch("x", task("t1", "X")),
				branch("y", task("t2", "Y")),
			}}),
			seq(task("t3", "Z")),
		}},
		end("end1"),
	)

	loopProcess = seq(
		start("start1"),
		task("task1", "Draft"),
		&schema.ExclusiveGateway{ID: "exclusive1", Label: "Approved?", Branches: []schema.Branch{
			branch("Yes", end("end1")),
			{Condition: "No", Path: seq(task("task2", "Revise")), Next: "task1"},
		}},
	)

	parallelEmptyBranchProcess = seq(
		start("start1"),
		&schema.ParallelGateway{ID: "parallel1", Branches: []schema.Sequence{
			seq(task("task1", "Work")),
			seq(),
		}},
		end("end1"),
	)
)
