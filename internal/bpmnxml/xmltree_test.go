package bpmnxml

import (
	"encoding/xml"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// xmlNode is a generic element used to compare documents ignoring the
// order of siblings.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func (n xmlNode) canonical() string {
	attrs := make([]string, 0, len(n.Attrs))
	for _, a := range n.Attrs {
		attrs = append(attrs, a.Name.Space+":"+a.Name.Local+"="+a.Value)
	}
	sort.Strings(attrs)

	children := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, c.canonical())
	}
	sort.Strings(children)

	var sb strings.Builder
	sb.WriteString("<" + n.XMLName.Space + " " + n.XMLName.Local)
	sb.WriteString(" [" + strings.Join(attrs, " ") + "]")
	sb.WriteString(" {" + strings.TrimSpace(n.Text) + "}")
	for _, c := range children {
		sb.WriteString(c)
	}
	sb.WriteString(">")
	return sb.String()
}

func requireXMLEquivalent(t *testing.T, expected, actual string) {
	t.Helper()
	var e, a xmlNode
	require.NoError(t, xml.Unmarshal([]byte(expected), &e))
	require.NoError(t, xml.Unmarshal([]byte(actual), &a), actual)
	require.Equal(t, e.canonical(), a.canonical(), actual)
}
