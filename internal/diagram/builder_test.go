package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/bpmnflow/internal/flowgraph"
	"github.com/rendis/bpmnflow/internal/transform"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// --- Test process builders ---

func linearGraph(t *testing.T) *flowgraph.Graph {
	t.Helper()
	g, err := transform.Flatten(schema.Sequence{
		&schema.Event{Type: schema.ElementStartEvent, ID: "start1"},
		&schema.Task{Type: schema.ElementTask, ID: "fetch", Label: "Fetch order"},
		&schema.Task{Type: schema.ElementUserTask, ID: "review", Label: "Review order"},
		&schema.Task{Type: schema.ElementServiceTask, ID: "store", Label: "Store order"},
		&schema.Event{Type: schema.ElementEndEvent, ID: "end1"},
	})
	require.NoError(t, err)
	return g
}

func gatewayGraph(t *testing.T) *flowgraph.Graph {
	t.Helper()
	g, err := transform.Flatten(schema.Sequence{
		&schema.Event{Type: schema.ElementStartEvent, ID: "start1"},
		&schema.ExclusiveGateway{ID: "decide", Label: "In stock?", HasJoin: true, Branches: []schema.Branch{
			{Condition: "yes", Path: schema.Sequence{
				&schema.ParallelGateway{ID: "fan-out", Branches: []schema.Sequence{
					{&schema.Task{Type: schema.ElementTask, ID: "ship", Label: "Ship"}},
					{&schema.Task{Type: schema.ElementTask, ID: "bill", Label: "Bill"}},
				}},
			}},
			{Condition: "no", Path: schema.Sequence{
				&schema.Task{Type: schema.ElementTask, ID: "notify", Label: "Notify"},
			}},
		}},
		&schema.Event{Type: schema.ElementEndEvent, ID: "end1"},
	})
	require.NoError(t, err)
	return g
}

// --- Tests ---

func TestBuildLinearProcess(t *testing.T) {
	model, err := Build(linearGraph(t), "Orders")
	require.NoError(t, err)

	assert.Equal(t, "Orders", model.Title)
	require.Len(t, model.Nodes, 5)
	assert.Equal(t, NodeKindStart, model.Nodes[0].Kind)
	assert.Equal(t, "Start", model.Nodes[0].Label)
	assert.Equal(t, NodeKindTask, model.Nodes[1].Kind)
	assert.Equal(t, NodeKindUserTask, model.Nodes[2].Kind)
	assert.Equal(t, NodeKindServiceTask, model.Nodes[3].Kind)
	assert.Equal(t, NodeKindEnd, model.Nodes[4].Kind)

	assert.Len(t, model.Edges, 4)
	assert.Equal(t, [][]string{{"start1"}, {"fetch"}, {"review"}, {"store"}, {"end1"}}, model.Levels)
}

func TestBuildDefaultTitle(t *testing.T) {
	model, err := Build(linearGraph(t), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, model.Title)
}

func TestBuildGateways(t *testing.T) {
	model, err := Build(gatewayGraph(t), "")
	require.NoError(t, err)

	decide := model.Node("decide")
	require.NotNil(t, decide)
	assert.Equal(t, NodeKindExclusive, decide.Kind)
	assert.Equal(t, "In stock?", decide.Label)

	join := model.Node("decide-join")
	require.NotNil(t, join)
	assert.Equal(t, "X", join.Label)

	fan := model.Node("fan-out")
	require.NotNil(t, fan)
	assert.Equal(t, NodeKindParallel, fan.Kind)
	assert.Equal(t, "+", fan.Label)

	var labels []string
	for _, e := range model.Edges {
		if e.From == "decide" {
			labels = append(labels, e.Label)
		}
	}
	assert.Equal(t, []string{"yes", "no"}, labels)

	assert.Equal(t, []string{"decide"}, model.Levels[1])
	assert.ElementsMatch(t, []string{"fan-out", "notify"}, model.Levels[2])
}

func TestBuildEmptyGraph(t *testing.T) {
	_, err := Build(flowgraph.New(), "")
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeRender))
}

func TestBuildWithoutStartEventUsesSources(t *testing.T) {
	g := flowgraph.New()
	require.NoError(t, g.AddElement(flowgraph.Element{ID: "a", Type: schema.ElementTask, Label: "A"}))
	require.NoError(t, g.AddElement(flowgraph.Element{ID: "b", Type: schema.ElementTask, Label: "B"}))
	require.NoError(t, g.AddFlow(flowgraph.Flow{ID: "a-b", Source: "a", Target: "b"}))

	model, err := Build(g, "")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, model.Levels)
}

func TestBuildIssueOverlay(t *testing.T) {
	issues := []schema.ValidationIssue{
		{Path: "fetch", Severity: schema.SeverityWarning, Message: "first"},
		{Path: "fetch", Severity: schema.SeverityError, Message: "second"},
		{Path: "review", Severity: schema.SeverityWarning, Message: "third"},
		{Path: "/", Severity: schema.SeverityError, Message: "process-wide"},
	}
	model, err := Build(linearGraph(t), "", issues...)
	require.NoError(t, err)

	fetch := model.Node("fetch")
	require.NotNil(t, fetch.Issue)
	assert.Equal(t, schema.SeverityError, fetch.Issue.Severity)
	assert.Equal(t, "second", fetch.Issue.Message)
	assert.Equal(t, 2, fetch.Issue.Count)

	review := model.Node("review")
	require.NotNil(t, review.Issue)
	assert.Equal(t, schema.SeverityWarning, review.Issue.Severity)

	assert.Nil(t, model.Node("store").Issue)
}
