package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// NormalizeDocument accepts a process document as JSON or YAML, either a bare
// array of elements or an object wrapping it under "process", and returns the
// element array as compact JSON.
func NormalizeDocument(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, NewError(ErrCodeValidation, "process document is empty")
	}

	var doc any
	if json.Valid(trimmed) {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, NewError(ErrCodeValidation, "invalid JSON process document").WithCause(err)
		}
	} else if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, NewErrorf(ErrCodeValidation, "invalid process document: %v", err).WithCause(err)
	}

	if obj, ok := doc.(map[string]any); ok {
		inner, found := obj["process"]
		if !found {
			return nil, NewError(ErrCodeValidation, "process document object has no \"process\" key")
		}
		doc = inner
	}
	if _, ok := doc.([]any); !ok {
		return nil, NewErrorf(ErrCodeValidation, "process must be a list of elements, got %T", doc)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, NewError(ErrCodeValidation, "process document is not JSON-compatible").WithCause(err)
	}
	return out, nil
}

// DecodeDocument normalizes data and decodes it into a Sequence.
// The result is not validated.
func DecodeDocument(data []byte) (Sequence, error) {
	raw, err := NormalizeDocument(data)
	if err != nil {
		return nil, err
	}
	var seq Sequence
	if err := json.Unmarshal(raw, &seq); err != nil {
		if _, ok := err.(*Error); ok {
			return nil, err
		}
		return nil, NewErrorf(ErrCodeValidation, "invalid process document: %v", err).WithCause(err)
	}
	return seq, nil
}

// EncodeYAML renders v through its JSON form as block-style YAML, so field
// names and ordering match the JSON encoding.
func EncodeYAML(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	clearStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func clearStyle(n *yaml.Node) {
	if n.Kind != yaml.ScalarNode {
		n.Style = 0
	} else if n.Style == yaml.DoubleQuotedStyle && n.Tag == "!!str" {
		n.Style = 0
	}
	for _, c := range n.Content {
		clearStyle(c)
	}
}
