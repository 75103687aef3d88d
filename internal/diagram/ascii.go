package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rendis/bpmnflow/pkg/schema"
)

// issueTag returns a short ASCII indicator for a validation finding.
func issueTag(issue *IssueOverlay) string {
	if issue == nil {
		return ""
	}
	switch issue.Severity {
	case schema.SeverityError:
		return "[ERR]"
	case schema.SeverityWarning:
		return "[WARN]"
	default:
		return ""
	}
}

// kindTag marks the element kind inside an ASCII box.
func kindTag(kind NodeKind) string {
	switch kind {
	case NodeKindStart:
		return "(start)"
	case NodeKindEnd:
		return "(end)"
	case NodeKindUserTask:
		return "<user>"
	case NodeKindServiceTask:
		return "<service>"
	case NodeKindExclusive:
		return "<X>"
	case NodeKindParallel:
		return "<+>"
	default:
		return ""
	}
}

// RenderASCII renders a DiagramModel as a text-based ASCII diagram.
// It uses a level-based layout with box-drawing characters, followed by
// the list of flows that carry a condition.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n\n", model.Title))
	}

	for levelIdx, level := range model.Levels {
		var boxes []asciiBox
		for _, nodeID := range level {
			node := model.Node(nodeID)
			if node == nil {
				continue
			}
			boxes = append(boxes, makeBox(node))
		}

		renderBoxRow(&b, boxes)

		if levelIdx < len(model.Levels)-1 {
			renderConnector(&b, len(boxes))
		}
	}

	var conditional []Edge
	for _, edge := range model.Edges {
		if edge.Label != "" {
			conditional = append(conditional, edge)
		}
	}
	if len(conditional) > 0 {
		b.WriteString("\n--- conditions ---\n")
		for _, edge := range conditional {
			b.WriteString(fmt.Sprintf("  %s ─→ %s [%s]\n", edge.From, edge.To, edge.Label))
		}
	}

	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox creates an ASCII box for a node.
func makeBox(node *Node) asciiBox {
	contentLines := []string{node.Label}
	if tag := kindTag(node.Kind); tag != "" {
		contentLines = append(contentLines, tag)
	}
	if tag := issueTag(node.Issue); tag != "" {
		contentLines = append(contentLines, tag)
	}

	maxLen := 0
	for _, line := range contentLines {
		if n := utf8.RuneCountInString(line); n > maxLen {
			maxLen = n
		}
	}
	width := maxLen + 4 // 2 border + 2 padding

	var lines []string
	top := "┌" + strings.Repeat("─", width-2) + "┐"
	bot := "└" + strings.Repeat("─", width-2) + "┘"
	lines = append(lines, top)
	for _, content := range contentLines {
		padded := content + strings.Repeat(" ", maxLen-utf8.RuneCountInString(content))
		lines = append(lines, "│ "+padded+" │")
	}
	lines = append(lines, bot)

	return asciiBox{lines: lines, width: width}
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	maxHeight := 0
	for _, box := range boxes {
		if len(box.lines) > maxHeight {
			maxHeight = len(box.lines)
		}
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ") // gap between boxes
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder, boxCount int) {
	if boxCount == 0 {
		return
	}
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}
