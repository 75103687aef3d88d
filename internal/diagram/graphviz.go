package diagram

import (
	"bytes"
	"context"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/bpmnflow/pkg/schema"
)

// RenderImage renders a DiagramModel as a PNG image using graphviz.
// Returns the PNG bytes.
func RenderImage(ctx context.Context, model *DiagramModel) ([]byte, error) {
	return renderGraphviz(ctx, model, graphviz.PNG)
}

// RenderSVG renders a DiagramModel as an SVG document using graphviz.
func RenderSVG(ctx context.Context, model *DiagramModel) ([]byte, error) {
	return renderGraphviz(ctx, model, graphviz.SVG)
}

func renderGraphviz(ctx context.Context, model *DiagramModel, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, renderError("create graphviz", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, renderError("create graph", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.Nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, renderError("create node "+node.ID, nErr)
		}
		gvNode.SetLabel(node.Label)
		applyNodeStyle(gvNode, node)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range model.Edges {
		fromGV, toGV := gvNodes[edge.From], gvNodes[edge.To]
		if fromGV != nil && toGV != nil {
			e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
			if eErr == nil && edge.Label != "" {
				e.SetLabel(edge.Label)
			}
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, renderError("render "+string(format), err)
	}

	return buf.Bytes(), nil
}

func renderError(op string, err error) error {
	return schema.NewErrorf(schema.ErrCodeRender, "diagram: %s: %v", op, err).WithCause(err)
}

// applyNodeStyle sets graphviz attributes based on node kind and issues.
func applyNodeStyle(gvNode *cgraph.Node, node *Node) {
	switch node.Kind {
	case NodeKindTask, NodeKindUserTask, NodeKindServiceTask:
		gvNode.SetShape(cgraph.BoxShape)
	case NodeKindExclusive, NodeKindParallel:
		gvNode.SetShape(cgraph.DiamondShape)
	case NodeKindStart:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetWidth(0.5)
		gvNode.SetHeight(0.5)
	case NodeKindEnd:
		gvNode.SetShape(cgraph.DoubleCircleShape)
		gvNode.SetWidth(0.5)
		gvNode.SetHeight(0.5)
	}

	if node.Issue != nil {
		applyIssueColor(gvNode, node.Issue.Severity)
	}
}

func applyIssueColor(gvNode *cgraph.Node, severity schema.ValidationSeverity) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch severity {
	case schema.SeverityError:
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case schema.SeverityWarning:
		gvNode.SetFillColor("#b7791a")
		gvNode.SetFontColor("white")
	}
}
