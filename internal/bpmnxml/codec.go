// Package bpmnxml reads and writes the BPMN 2.0 XML form of a flow graph.
package bpmnxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"

	"github.com/rendis/bpmnflow/internal/flowgraph"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// Namespaces written on the definitions root.
const (
	NamespaceModel  = "http://www.omg.org/spec/BPMN/20100524/MODEL"
	NamespaceBPMNDI = "http://www.omg.org/spec/BPMN/20100524/DI"
	NamespaceDC     = "http://www.omg.org/spec/DD/20100524/DC"
	NamespaceDI     = "http://www.omg.org/spec/DD/20100524/DI"

	DefinitionsID = "definitions_1"
	ProcessID     = "Process_1"
)

const (
	tagProcess      = "process"
	tagSequenceFlow = "sequenceFlow"
)

// Unmarshal parses BPMN XML into a flow graph. Only the first process element
// is read; children with unsupported tags are skipped.
func Unmarshal(data []byte) (*flowgraph.Graph, error) {
	return Decode(bytes.NewReader(data))
}

// Decode parses BPMN XML from r. See Unmarshal.
func Decode(r io.Reader) (*flowgraph.Graph, error) {
	d := xml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil, schema.NewError(schema.ErrCodeStructural, "No process element found in the BPMN XML")
		}
		if err != nil {
			return nil, malformed(err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == tagProcess {
			return decodeProcess(d)
		}
	}
}

func decodeProcess(d *xml.Decoder) (*flowgraph.Graph, error) {
	g := flowgraph.New()
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, malformed(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return g, nil
		case xml.StartElement:
			if err := decodeChild(g, t); err != nil {
				return nil, err
			}
			if err := d.Skip(); err != nil {
				return nil, malformed(err)
			}
		}
	}
}

func decodeChild(g *flowgraph.Graph, se xml.StartElement) error {
	attrs := attrMap(se.Attr)

	if se.Name.Local == tagSequenceFlow {
		id := attrs["id"]
		if id == "" {
			id = attrs["sourceRef"] + "-" + attrs["targetRef"]
		}
		return g.AddFlow(flowgraph.Flow{
			ID:        id,
			Source:    attrs["sourceRef"],
			Target:    attrs["targetRef"],
			Condition: attrs["name"],
		})
	}

	typ := schema.ElementType(se.Name.Local)
	if !typ.Valid() {
		return nil
	}
	el := flowgraph.Element{ID: attrs["id"], Type: typ}
	if typ.Labeled() {
		el.Label = attrs["name"]
	}
	return g.AddElement(el)
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Name.Space == "" || a.Name.Space == NamespaceModel {
			m[a.Name.Local] = a.Value
		}
	}
	return m
}

func malformed(err error) error {
	return schema.NewErrorf(schema.ErrCodeStructural, "Malformed BPMN XML: %v", err).WithCause(err)
}

// Marshal serializes g as a BPMN definitions document.
func Marshal(g *flowgraph.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes g as a BPMN definitions document to w. Every element lists the
// ids of its incoming flows, then its outgoing flows, in flow insertion order.
func Encode(w io.Writer, g *flowgraph.Graph) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	definitions := start("definitions",
		"xmlns", NamespaceModel,
		"xmlns:bpmndi", NamespaceBPMNDI,
		"xmlns:dc", NamespaceDC,
		"xmlns:di", NamespaceDI,
		"id", DefinitionsID,
	)
	process := start(tagProcess, "id", ProcessID, "isExecutable", "false")

	if err := enc.EncodeToken(definitions); err != nil {
		return err
	}
	if err := enc.EncodeToken(process); err != nil {
		return err
	}

	for _, el := range g.Elements() {
		if err := encodeElement(enc, g, el); err != nil {
			return err
		}
	}
	for _, f := range g.Flows() {
		kv := []string{"id", f.ID, "sourceRef", f.Source, "targetRef", f.Target}
		if f.Condition != "" {
			kv = append(kv, "name", f.Condition)
		}
		se := start(tagSequenceFlow, kv...)
		if err := enc.EncodeToken(se); err != nil {
			return err
		}
		if err := enc.EncodeToken(se.End()); err != nil {
			return err
		}
	}

	if err := enc.EncodeToken(process.End()); err != nil {
		return err
	}
	if err := enc.EncodeToken(definitions.End()); err != nil {
		return err
	}
	return enc.Flush()
}

func encodeElement(enc *xml.Encoder, g *flowgraph.Graph, el *flowgraph.Element) error {
	kv := []string{"id", el.ID}
	if el.Label != "" {
		kv = append(kv, "name", el.Label)
	}
	se := start(string(el.Type), kv...)
	if err := enc.EncodeToken(se); err != nil {
		return err
	}
	for _, f := range g.Incoming(el.ID) {
		if err := textElement(enc, "incoming", f.ID); err != nil {
			return err
		}
	}
	for _, f := range g.Outgoing(el.ID) {
		if err := textElement(enc, "outgoing", f.ID); err != nil {
			return err
		}
	}
	return enc.EncodeToken(se.End())
}

func textElement(enc *xml.Encoder, name, text string) error {
	se := start(name)
	if err := enc.EncodeToken(se); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return enc.EncodeToken(se.End())
}

// start builds an unqualified start element from alternating attribute
// names and values. Attribute names are written verbatim.
func start(name string, kv ...string) xml.StartElement {
	se := xml.StartElement{Name: xml.Name{Local: name}}
	for i := 0; i+1 < len(kv); i += 2 {
		se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: kv[i]}, Value: kv[i+1]})
	}
	return se
}
