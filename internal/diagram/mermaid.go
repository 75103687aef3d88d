package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/bpmnflow/pkg/schema"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph LR\n")

	// Title as comment.
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|\"%s\"|", mermaidEscapeLabel(edge.Label))
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n",
			mermaidSafeID(edge.From), label, mermaidSafeID(edge.To)))
	}

	b.WriteString("\n")
	b.WriteString("    classDef error fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef warning fill:#b7791a,stroke:#8a5c14,color:#fff\n")

	for _, node := range model.Nodes {
		if cls := mermaidIssueClass(node.Issue); cls != "" {
			b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(node.ID), cls))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(node.Label)

	switch node.Kind {
	case NodeKindStart:
		return fmt.Sprintf("%s((\"%s\"))", id, label)
	case NodeKindEnd:
		return fmt.Sprintf("%s(((\"%s\")))", id, label)
	case NodeKindExclusive:
		return fmt.Sprintf("%s{\"%s\"}", id, label)
	case NodeKindParallel:
		return fmt.Sprintf("%s{{\"%s\"}}", id, label)
	case NodeKindUserTask:
		return fmt.Sprintf("%s(\"%s\")", id, label)
	case NodeKindServiceTask:
		return fmt.Sprintf("%s[[\"%s\"]]", id, label)
	default: // task
		return fmt.Sprintf("%s[\"%s\"]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
// Replaces dots, dashes and spaces with underscores.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidEscapeLabel escapes characters that end a quoted Mermaid label.
func mermaidEscapeLabel(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "\n", " ")
	return r.Replace(s)
}

func mermaidIssueClass(issue *IssueOverlay) string {
	if issue == nil {
		return ""
	}
	switch issue.Severity {
	case schema.SeverityError:
		return "error"
	case schema.SeverityWarning:
		return "warning"
	default:
		return ""
	}
}
