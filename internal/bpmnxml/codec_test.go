package bpmnxml

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/bpmnflow/internal/transform"
	"github.com/rendis/bpmnflow/pkg/schema"
)

const header = `<definitions xmlns="http://www.omg.org/spec/BPMN/20100524/MODEL" xmlns:bpmndi="http://www.omg.org/spec/BPMN/20100524/DI" xmlns:dc="http://www.omg.org/spec/DD/20100524/DC" xmlns:di="http://www.omg.org/spec/DD/20100524/DI" id="definitions_1"><process id="Process_1" isExecutable="false">`
const footer = `</process></definitions>`

func ev(typ schema.ElementType, id, label string) *schema.Event {
	return &schema.Event{Type: typ, ID: id, Label: label}
}

func tk(typ schema.ElementType, id, label string) *schema.Task {
	return &schema.Task{Type: typ, ID: id, Label: label}
}

var fixtures = []struct {
	name    string
	process schema.Sequence
	xml     string
}{
	{
		name: "linear",
		process: schema.Sequence{
			ev(schema.ElementStartEvent, "start1", ""),
			tk(schema.ElementTask, "task1", "Receive customer inquiry"),
			tk(schema.ElementUserTask, "task2", "Review product catalog"),
			tk(schema.ElementTask, "task3", "Prepare quote"),
			tk(schema.ElementServiceTask, "task4", "Send quote to customer"),
			tk(schema.ElementTask, "task5", "Follow up with customer"),
			ev(schema.ElementEndEvent, "end1", ""),
		},
		xml: header +
			`<startEvent id="start1"><outgoing>start1-task1</outgoing></startEvent>` +
			`<task id="task1" name="Receive customer inquiry"><incoming>start1-task1</incoming><outgoing>task1-task2</outgoing></task>` +
			`<userTask id="task2" name="Review product catalog"><incoming>task1-task2</incoming><outgoing>task2-task3</outgoing></userTask>` +
			`<task id="task3" name="Prepare quote"><incoming>task2-task3</incoming><outgoing>task3-task4</outgoing></task>` +
			`<serviceTask id="task4" name="Send quote to customer"><incoming>task3-task4</incoming><outgoing>task4-task5</outgoing></serviceTask>` +
			`<task id="task5" name="Follow up with customer"><incoming>task4-task5</incoming><outgoing>task5-end1</outgoing></task>` +
			`<endEvent id="end1"><incoming>task5-end1</incoming></endEvent>` +
			`<sequenceFlow id="start1-task1" sourceRef="start1" targetRef="task1" />` +
			`<sequenceFlow id="task1-task2" sourceRef="task1" targetRef="task2" />` +
			`<sequenceFlow id="task2-task3" sourceRef="task2" targetRef="task3" />` +
			`<sequenceFlow id="task3-task4" sourceRef="task3" targetRef="task4" />` +
			`<sequenceFlow id="task4-task5" sourceRef="task4" targetRef="task5" />` +
			`<sequenceFlow id="task5-end1" sourceRef="task5" targetRef="end1" />` +
			footer,
	},
	{
		name: "procurement",
		process: schema.Sequence{
			ev(schema.ElementStartEvent, "start1", ""),
			&schema.ParallelGateway{ID: "parallel1", Branches: []schema.Sequence{
				{tk(schema.ElementTask, "task1", "Send mail to supplier"), tk(schema.ElementTask, "task2", "Prepare the documents")},
				{tk(schema.ElementTask, "task3", "Search for the goods"), tk(schema.ElementTask, "task4", "Pick up the goods")},
			}},
			ev(schema.ElementEndEvent, "end1", ""),
		},
		xml: header +
			`<startEvent id="start1"><outgoing>start1-parallel1</outgoing></startEvent>` +
			`<parallelGateway id="parallel1"><incoming>start1-parallel1</incoming><outgoing>parallel1-task1</outgoing><outgoing>parallel1-task3</outgoing></parallelGateway>` +
			`<parallelGateway id="parallel1-join"><incoming>task2-parallel1-join</incoming><incoming>task4-parallel1-join</incoming><outgoing>parallel1-join-end1</outgoing></parallelGateway>` +
			`<task id="task1" name="Send mail to supplier"><incoming>parallel1-task1</incoming><outgoing>task1-task2</outgoing></task>` +
			`<task id="task2" name="Prepare the documents"><incoming>task1-task2</incoming><outgoing>task2-parallel1-join</outgoing></task>` +
			`<task id="task3" name="Search for the goods"><incoming>parallel1-task3</incoming><outgoing>task3-task4</outgoing></task>` +
			`<task id="task4" name="Pick up the goods"><incoming>task3-task4</incoming><outgoing>task4-parallel1-join</outgoing></task>` +
			`<endEvent id="end1"><incoming>parallel1-join-end1</incoming></endEvent>` +
			`<sequenceFlow id="start1-parallel1" sourceRef="start1" targetRef="parallel1" />` +
			`<sequenceFlow id="task1-task2" sourceRef="task1" targetRef="task2" />` +
			`<sequenceFlow id="parallel1-task1" sourceRef="parallel1" targetRef="task1" />` +
			`<sequenceFlow id="task2-parallel1-join" sourceRef="task2" targetRef="parallel1-join" />` +
			`<sequenceFlow id="task3-task4" sourceRef="task3" targetRef="task4" />` +
			`<sequenceFlow id="parallel1-task3" sourceRef="parallel1" targetRef="task3" />` +
			`<sequenceFlow id="task4-parallel1-join" sourceRef="task4" targetRef="parallel1-join" />` +
			`<sequenceFlow id="parallel1-join-end1" sourceRef="parallel1-join" targetRef="end1" />` +
			footer,
	},
	{
		name: "exclusive",
		process: schema.Sequence{
			ev(schema.ElementStartEvent, "start1", ""),
			tk(schema.ElementTask, "task1", "Receive order from customer"),
			&schema.ExclusiveGateway{ID: "exclusive1", Label: "Product in stock?", Branches: []schema.Branch{
				{Condition: "Product is out of stock", Path: schema.Sequence{
					tk(schema.ElementTask, "task2", "Notify customer that order cannot be fulfilled"),
				}},
				{Condition: "Product is in stock", Path: schema.Sequence{
					&schema.ExclusiveGateway{ID: "exclusive2", Label: "Payment succeeds?", Branches: []schema.Branch{
						{Condition: "Payment succeeds", Path: schema.Sequence{
							tk(schema.ElementTask, "task3", "Process order"),
							tk(schema.ElementTask, "task4", "Notify customer that order has been processed"),
						}},
						{Condition: "Payment fails", Path: schema.Sequence{
							tk(schema.ElementTask, "task5", "Notify customer that order cannot be processed"),
						}},
					}},
				}},
			}},
			ev(schema.ElementEndEvent, "end1", ""),
		},
		xml: header +
			`<startEvent id="start1"><outgoing>start1-task1</outgoing></startEvent>` +
			`<task id="task1" name="Receive order from customer"><incoming>start1-task1</incoming><outgoing>task1-exclusive1</outgoing></task>` +
			`<exclusiveGateway id="exclusive1" name="Product in stock?"><incoming>task1-exclusive1</incoming><outgoing>exclusive1-task2</outgoing><outgoing>exclusive1-exclusive2</outgoing></exclusiveGateway>` +
			`<task id="task2" name="Notify customer that order cannot be fulfilled"><incoming>exclusive1-task2</incoming><outgoing>task2-end1</outgoing></task>` +
			`<exclusiveGateway id="exclusive2" name="Payment succeeds?"><incoming>exclusive1-exclusive2</incoming><outgoing>exclusive2-task3</outgoing><outgoing>exclusive2-task5</outgoing></exclusiveGateway>` +
			`<task id="task3" name="Process order"><incoming>exclusive2-task3</incoming><outgoing>task3-task4</outgoing></task>` +
			`<task id="task4" name="Notify customer that order has been processed"><incoming>task3-task4</incoming><outgoing>task4-end1</outgoing></task>` +
			`<task id="task5" name="Notify customer that order cannot be processed"><incoming>exclusive2-task5</incoming><outgoing>task5-end1</outgoing></task>` +
			`<endEvent id="end1"><incoming>task2-end1</incoming><incoming>task4-end1</incoming><incoming>task5-end1</incoming></endEvent>` +
			`<sequenceFlow id="start1-task1" sourceRef="start1" targetRef="task1" />` +
			`<sequenceFlow id="task1-exclusive1" sourceRef="task1" targetRef="exclusive1" />` +
			`<sequenceFlow id="task2-end1" sourceRef="task2" targetRef="end1" />` +
			`<sequenceFlow id="exclusive1-task2" sourceRef="exclusive1" targetRef="task2" name="Product is out of stock" />` +
			`<sequenceFlow id="task3-task4" sourceRef="task3" targetRef="task4" />` +
			`<sequenceFlow id="task4-end1" sourceRef="task4" targetRef="end1" />` +
			`<sequenceFlow id="exclusive2-task3" sourceRef="exclusive2" targetRef="task3" name="Payment succeeds" />` +
			`<sequenceFlow id="task5-end1" sourceRef="task5" targetRef="end1" />` +
			`<sequenceFlow id="exclusive2-task5" sourceRef="exclusive2" targetRef="task5" name="Payment fails" />` +
			`<sequenceFlow id="exclusive1-exclusive2" sourceRef="exclusive1" targetRef="exclusive2" name="Product is in stock" />` +
			footer,
	},
	{
		name: "parallel inside exclusive",
		process: schema.Sequence{
			ev(schema.ElementStartEvent, "start1", ""),
			&schema.ExclusiveGateway{ID: "exclusive1", Label: "Exclusive Decision", HasJoin: true, Branches: []schema.Branch{
				{Condition: "Condition A", Path: schema.Sequence{tk(schema.ElementTask, "task2", "Task A")}},
				{Condition: "Condition B", Path: schema.Sequence{
					&schema.ParallelGateway{ID: "parallel1", Branches: []schema.Sequence{
						{tk(schema.ElementTask, "task3", "Parallel Task 1")},
						{tk(schema.ElementTask, "task4", "Parallel Task 2")},
					}},
				}},
			}},
			ev(schema.ElementEndEvent, "end1", ""),
		},
		xml: header +
			`<startEvent id="start1"><outgoing>start1-exclusive1</outgoing></startEvent>` +
			`<exclusiveGateway id="exclusive1" name="Exclusive Decision"><incoming>start1-exclusive1</incoming><outgoing>exclusive1-task2</outgoing><outgoing>exclusive1-parallel1</outgoing></exclusiveGateway>` +
			`<exclusiveGateway id="exclusive1-join"><incoming>task2-exclusive1-join</incoming><incoming>parallel1-join-exclusive1-join</incoming><outgoing>exclusive1-join-end1</outgoing></exclusiveGateway>` +
			`<task id="task2" name="Task A"><incoming>exclusive1-task2</incoming><outgoing>task2-exclusive1-join</outgoing></task>` +
			`<parallelGateway id="parallel1"><incoming>exclusive1-parallel1</incoming><outgoing>parallel1-task3</outgoing><outgoing>parallel1-task4</outgoing></parallelGateway>` +
			`<parallelGateway id="parallel1-join"><incoming>task3-parallel1-join</incoming><incoming>task4-parallel1-join</incoming><outgoing>parallel1-join-exclusive1-join</outgoing></parallelGateway>` +
			`<task id="task3" name="Parallel Task 1"><incoming>parallel1-task3</incoming><outgoing>task3-parallel1-join</outgoing></task>` +
			`<task id="task4" name="Parallel Task 2"><incoming>parallel1-task4</incoming><outgoing>task4-parallel1-join</outgoing></task>` +
			`<endEvent id="end1"><incoming>exclusive1-join-end1</incoming></endEvent>` +
			`<sequenceFlow id="start1-exclusive1" sourceRef="start1" targetRef="exclusive1" />` +
			`<sequenceFlow id="task2-exclusive1-join" sourceRef="task2" targetRef="exclusive1-join" />` +
			`<sequenceFlow id="exclusive1-task2" sourceRef="exclusive1" targetRef="task2" name="Condition A" />` +
			`<sequenceFlow id="parallel1-task3" sourceRef="parallel1" targetRef="task3" />` +
			`<sequenceFlow id="task3-parallel1-join" sourceRef="task3" targetRef="parallel1-join" />` +
			`<sequenceFlow id="parallel1-task4" sourceRef="parallel1" targetRef="task4" />` +
			`<sequenceFlow id="task4-parallel1-join" sourceRef="task4" targetRef="parallel1-join" />` +
			`<sequenceFlow id="parallel1-join-exclusive1-join" sourceRef="parallel1-join" targetRef="exclusive1-join" />` +
			`<sequenceFlow id="exclusive1-parallel1" sourceRef="exclusive1" targetRef="parallel1" name="Condition B" />` +
			`<sequenceFlow id="exclusive1-join-end1" sourceRef="exclusive1-join" targetRef="end1" />` +
			footer,
	},
	{
		name: "empty gateway path",
		process: schema.Sequence{
			ev(schema.ElementStartEvent, "start", ""),
			tk(schema.ElementTask, "task1", "Perform a simple task"),
			tk(schema.ElementTask, "task2", "Perform a second task"),
			&schema.ExclusiveGateway{ID: "exclusive1", Label: "Decision Point", Branches: []schema.Branch{
				{Condition: "Condition A", Path: schema.Sequence{tk(schema.ElementTask, "task3", "Perform a third task")}},
				{Condition: "Condition B", Path: schema.Sequence{}},
			}},
			ev(schema.ElementEndEvent, "end", ""),
		},
		xml: header +
			`<startEvent id="start"><outgoing>start-task1</outgoing></startEvent>` +
			`<task id="task1" name="Perform a simple task"><incoming>start-task1</incoming><outgoing>task1-task2</outgoing></task>` +
			`<task id="task2" name="Perform a second task"><incoming>task1-task2</incoming><outgoing>task2-exclusive1</outgoing></task>` +
			`<exclusiveGateway id="exclusive1" name="Decision Point"><incoming>task2-exclusive1</incoming><outgoing>exclusive1-task3</outgoing><outgoing>exclusive1-end</outgoing></exclusiveGateway>` +
			`<task id="task3" name="Perform a third task"><incoming>exclusive1-task3</incoming><outgoing>task3-end</outgoing></task>` +
			`<endEvent id="end"><incoming>task3-end</incoming><incoming>exclusive1-end</incoming></endEvent>` +
			`<sequenceFlow id="start-task1" sourceRef="start" targetRef="task1" />` +
			`<sequenceFlow id="task1-task2" sourceRef="task1" targetRef="task2" />` +
			`<sequenceFlow id="task2-exclusive1" sourceRef="task2" targetRef="exclusive1" />` +
			`<sequenceFlow id="task3-end" sourceRef="task3" targetRef="end" />` +
			`<sequenceFlow id="exclusive1-task3" sourceRef="exclusive1" targetRef="task3" name="Condition A" />` +
			`<sequenceFlow id="exclusive1-end" sourceRef="exclusive1" targetRef="end" name="Condition B" />` +
			footer,
	},
	{
		name: "labeled events",
		process: schema.Sequence{
			ev(schema.ElementStartEvent, "start1", "Order received"),
			tk(schema.ElementTask, "task1", "Process order"),
			ev(schema.ElementEndEvent, "end1", "Order completed"),
		},
		xml: header +
			`<startEvent id="start1" name="Order received"><outgoing>start1-task1</outgoing></startEvent>` +
			`<task id="task1" name="Process order"><incoming>start1-task1</incoming><outgoing>task1-end1</outgoing></task>` +
			`<endEvent id="end1" name="Order completed"><incoming>task1-end1</incoming></endEvent>` +
			`<sequenceFlow id="start1-task1" sourceRef="start1" targetRef="task1" />` +
			`<sequenceFlow id="task1-end1" sourceRef="task1" targetRef="end1" />` +
			footer,
	},
}

func TestMarshal_Fixtures(t *testing.T) {
	for _, tt := range fixtures {
		t.Run(tt.name, func(t *testing.T) {
			g, err := transform.Flatten(tt.process)
			require.NoError(t, err)

			out, err := Marshal(g)
			require.NoError(t, err)
			requireXMLEquivalent(t, tt.xml, string(out))
		})
	}
}

func TestUnmarshal_FixturesBuildBack(t *testing.T) {
	for _, tt := range fixtures {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Unmarshal([]byte(tt.xml))
			require.NoError(t, err)

			got, err := transform.Build(g)
			require.NoError(t, err)

			want, err := json.Marshal(tt.process)
			require.NoError(t, err)
			have, err := json.Marshal(got)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(have))
		})
	}
}

func TestRoundTrip_GraphPreserved(t *testing.T) {
	for _, tt := range fixtures {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Unmarshal([]byte(tt.xml))
			require.NoError(t, err)

			out, err := Marshal(g)
			require.NoError(t, err)

			back, err := Unmarshal(out)
			require.NoError(t, err)
			assert.Equal(t, g.Elements(), back.Elements())
			assert.Equal(t, g.Flows(), back.Flows())
		})
	}
}

func TestUnmarshal_LinearScenario(t *testing.T) {
	xmlText := header +
		`<startEvent id="start1"><outgoing>f1</outgoing></startEvent>` +
		`<task id="task1" name="Work"><incoming>f1</incoming><outgoing>f2</outgoing></task>` +
		`<endEvent id="end1"><incoming>f2</incoming></endEvent>` +
		`<sequenceFlow id="f1" sourceRef="start1" targetRef="task1" />` +
		`<sequenceFlow id="f2" sourceRef="task1" targetRef="end1" />` +
		footer

	g, err := Unmarshal([]byte(xmlText))
	require.NoError(t, err)
	ne, nf := g.Len()
	assert.Equal(t, 3, ne)
	assert.Equal(t, 2, nf)

	got, err := transform.Build(g)
	require.NoError(t, err)
	assert.Equal(t, schema.Sequence{
		ev(schema.ElementStartEvent, "start1", ""),
		tk(schema.ElementTask, "task1", "Work"),
		ev(schema.ElementEndEvent, "end1", ""),
	}, got)
}

func TestUnmarshal_PrefixedNamespacesAndUnknownTags(t *testing.T) {
	xmlText := `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" xmlns:bpmndi="http://www.omg.org/spec/BPMN/20100524/DI" id="Definitions_1">
  <bpmn:process id="Process_1" isExecutable="false">
    <bpmn:startEvent id="start1" name="">
      <bpmn:outgoing>f1</bpmn:outgoing>
    </bpmn:startEvent>
    <bpmn:intermediateThrowEvent id="throw1" />
    <bpmn:textAnnotation id="note1"><bpmn:text>ignored</bpmn:text></bpmn:textAnnotation>
    <bpmn:parallelGateway id="pg1" name="Fork" />
    <bpmn:exclusiveGateway id="eg1" name="Decide" />
    <bpmn:sequenceFlow id="f1" sourceRef="start1" targetRef="pg1" name="go" />
  </bpmn:process>
  <bpmndi:BPMNDiagram id="BPMNDiagram_1" />
</bpmn:definitions>`

	g, err := Unmarshal([]byte(xmlText))
	require.NoError(t, err)

	ids := []string{}
	for _, e := range g.Elements() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"start1", "pg1", "eg1"}, ids)

	pg, _ := g.Element("pg1")
	assert.Empty(t, pg.Label, "parallel gateways carry no label")
	eg, _ := g.Element("eg1")
	assert.Equal(t, "Decide", eg.Label)
	st, _ := g.Element("start1")
	assert.Empty(t, st.Label)

	flows := g.Flows()
	require.Len(t, flows, 1)
	assert.Equal(t, "go", flows[0].Condition)
}

func TestUnmarshal_Errors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		msg  string
	}{
		{"no process", `<definitions><collaboration id="c"/></definitions>`, "No process element found in the BPMN XML"},
		{"empty input", ``, "No process element found in the BPMN XML"},
		{"unterminated", `<definitions><process id="p"><task id="t1">`, "Malformed BPMN XML"},
		{"duplicate id", `<definitions><process><task id="t1"/><task id="t1"/></process></definitions>`, "Duplicate element ID found: t1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Unmarshal([]byte(tt.xml))
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, schema.IsCode(err, schema.ErrCodeStructural))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMarshal_RootShape(t *testing.T) {
	g, err := transform.Flatten(fixtures[0].process)
	require.NoError(t, err)
	out, err := Marshal(g)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `<definitions xmlns="http://www.omg.org/spec/BPMN/20100524/MODEL" xmlns:bpmndi="http://www.omg.org/spec/BPMN/20100524/DI" xmlns:dc="http://www.omg.org/spec/DD/20100524/DC" xmlns:di="http://www.omg.org/spec/DD/20100524/DI" id="definitions_1">`)
	assert.Contains(t, s, `<process id="Process_1" isExecutable="false">`)
	assert.Contains(t, s, `<incoming>start1-task1</incoming>`)
}
