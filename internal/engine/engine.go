// Package engine wires the codec, the transformations and the validator into
// the conversions exposed to callers.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/rendis/bpmnflow/internal/bpmnxml"
	"github.com/rendis/bpmnflow/internal/flowgraph"
	"github.com/rendis/bpmnflow/internal/logging"
	"github.com/rendis/bpmnflow/internal/transform"
	"github.com/rendis/bpmnflow/internal/validation"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// Engine converts between BPMN XML and structured processes. Every call is a
// pure function of its input; an Engine is safe for concurrent use.
type Engine struct {
	validator *validation.ProcessValidator
	logger    *slog.Logger
}

// New creates an Engine. A nil logger logs at info level to stderr.
func New(logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	v, err := validation.NewProcessValidator()
	if err != nil {
		return nil, err
	}
	return &Engine{validator: v, logger: logger}, nil
}

// Validator returns the validator used by the engine.
func (e *Engine) Validator() *validation.ProcessValidator {
	return e.validator
}

// ParseXML parses BPMN XML into a flow graph.
func (e *Engine) ParseXML(ctx context.Context, data []byte) (*flowgraph.Graph, error) {
	g, err := bpmnxml.Unmarshal(data)
	if err != nil {
		logging.LogWith(ctx, e.logger).Debug("parse bpmn xml failed", "error", err)
		return nil, err
	}
	ne, nf := g.Len()
	logging.LogWith(ctx, e.logger).Debug("parsed bpmn xml", "elements", ne, "flows", nf)
	return g, nil
}

// ToProcess converts BPMN XML into a validated structured process.
func (e *Engine) ToProcess(ctx context.Context, data []byte) (schema.Sequence, error) {
	ctx = logging.StartConversion(ctx, logging.DirectionXMLToJSON)

	g, err := e.ParseXML(ctx, data)
	if err != nil {
		return nil, err
	}
	process, err := transform.Build(g)
	if err != nil {
		logging.LogWith(ctx, e.logger).Debug("build process failed", "error", err)
		return nil, err
	}
	if err := e.check(ctx, e.validator.Validate(process)); err != nil {
		return nil, err
	}

	logging.LogWith(ctx, e.logger).Debug("converted xml to process", "nodes", len(process.IDs()))
	return process, nil
}

// ToXML validates a structured process and serializes it as BPMN XML.
func (e *Engine) ToXML(ctx context.Context, process schema.Sequence) ([]byte, error) {
	ctx = logging.StartConversion(ctx, logging.DirectionJSONToXML)

	if err := e.check(ctx, e.validator.Validate(process)); err != nil {
		return nil, err
	}
	return e.serialize(ctx, process)
}

// DocumentToXML is ToXML for a JSON or YAML process document.
func (e *Engine) DocumentToXML(ctx context.Context, doc []byte) ([]byte, error) {
	ctx = logging.StartConversion(ctx, logging.DirectionJSONToXML)

	process, result := e.validator.ValidateDocument(doc)
	if err := e.check(ctx, result); err != nil {
		return nil, err
	}
	return e.serialize(ctx, process)
}

func (e *Engine) serialize(ctx context.Context, process schema.Sequence) ([]byte, error) {
	g, err := transform.Flatten(process)
	if err != nil {
		return nil, err
	}
	out, err := bpmnxml.Marshal(g)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStructural, "failed to serialize BPMN XML").WithCause(err)
	}
	ne, nf := g.Len()
	logging.LogWith(ctx, e.logger).Debug("converted process to xml", "elements", ne, "flows", nf)
	return out, nil
}

// Validate runs the validation pipeline on a structured process.
func (e *Engine) Validate(ctx context.Context, process schema.Sequence) *schema.ValidationResult {
	ctx = logging.StartConversion(ctx, logging.DirectionValidate)
	result := e.validator.Validate(process)
	e.logResult(ctx, result)
	return result
}

// ValidateDocument runs the validation pipeline on a JSON or YAML process
// document. The decoded process is nil when the result is invalid.
func (e *Engine) ValidateDocument(ctx context.Context, doc []byte) (schema.Sequence, *schema.ValidationResult) {
	ctx = logging.StartConversion(ctx, logging.DirectionValidate)
	process, result := e.validator.ValidateDocument(doc)
	e.logResult(ctx, result)
	return process, result
}

// Graph returns the flow graph of a structured process after validating it.
func (e *Engine) Graph(ctx context.Context, process schema.Sequence) (*flowgraph.Graph, error) {
	if err := e.check(ctx, e.validator.Validate(process)); err != nil {
		return nil, err
	}
	return transform.Flatten(process)
}

// RoundTripReport describes an XML -> process -> XML -> process cycle.
type RoundTripReport struct {
	Stable  bool            `json:"stable"`
	Process schema.Sequence `json:"process"`
	XML     string          `json:"xml"`
	Diff    string          `json:"diff,omitempty"`
}

// RoundTrip converts XML to a process, back to XML and to a process again,
// and reports whether both processes are identical. Diff is a unified diff of
// their indented JSON forms when they differ.
func (e *Engine) RoundTrip(ctx context.Context, data []byte) (*RoundTripReport, error) {
	ctx = logging.StartConversion(ctx, logging.DirectionRoundTrip)

	first, err := e.ToProcess(ctx, data)
	if err != nil {
		return nil, err
	}
	out, err := e.ToXML(ctx, first)
	if err != nil {
		return nil, err
	}
	second, err := e.ToProcess(ctx, out)
	if err != nil {
		return nil, err
	}

	a, err := json.MarshalIndent(first, "", "  ")
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(second, "", "  ")
	if err != nil {
		return nil, err
	}

	report := &RoundTripReport{Stable: string(a) == string(b), Process: second, XML: string(out)}
	if !report.Stable {
		report.Diff, err = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(a)),
			B:        difflib.SplitLines(string(b)),
			FromFile: "input",
			ToFile:   "roundtrip",
			Context:  3,
		})
		if err != nil {
			return nil, err
		}
		logging.LogWith(ctx, e.logger).Warn("round trip changed the process")
	}
	return report, nil
}

// check logs warnings and converts an invalid result into its error.
func (e *Engine) check(ctx context.Context, result *schema.ValidationResult) error {
	e.logResult(ctx, result)
	return result.ToError()
}

func (e *Engine) logResult(ctx context.Context, result *schema.ValidationResult) {
	log := logging.LogWith(ctx, e.logger)
	for _, w := range result.Warnings {
		log.Warn("validation warning", "path", w.Path, "message", w.Message)
	}
	if !result.Valid() {
		log.Debug("validation failed", "errors", len(result.Errors), "first", result.Errors[0].Message)
	}
}
