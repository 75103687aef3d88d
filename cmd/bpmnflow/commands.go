package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rendis/bpmnflow/internal/diagram"
	"github.com/rendis/bpmnflow/internal/logging"
	"github.com/rendis/bpmnflow/pkg/mcp"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// ToJSONCmd converts BPMN XML to a structured process.
type ToJSONCmd struct {
	Input        string `arg:"" default:"-" help:"BPMN XML file, or - for stdin."`
	Output       string `short:"o" help:"Write to FILE instead of stdout." placeholder:"FILE"`
	OutputFormat string `short:"f" help:"Output format: json or yaml (default from settings)." placeholder:"FORMAT"`
}

func (c *ToJSONCmd) Run(a *app) error {
	data, err := a.read(c.Input)
	if err != nil {
		return err
	}
	process, err := a.engine.ToProcess(a.ctx, data)
	if err != nil {
		return err
	}

	format := a.cfg.OutputFormat
	if c.OutputFormat != "" {
		format = c.OutputFormat
	}
	out, err := encodeValue(process, format)
	if err != nil {
		return err
	}
	return a.write(c.Output, out)
}

// ToXMLCmd converts a structured process to BPMN XML.
type ToXMLCmd struct {
	Input  string `arg:"" default:"-" help:"JSON or YAML process file, or - for stdin."`
	Output string `short:"o" help:"Write to FILE instead of stdout." placeholder:"FILE"`
}

func (c *ToXMLCmd) Run(a *app) error {
	data, err := a.read(c.Input)
	if err != nil {
		return err
	}
	out, err := a.engine.DocumentToXML(a.ctx, data)
	if err != nil {
		return err
	}
	return a.write(c.Output, append(out, '\n'))
}

// ValidateCmd reports the errors and warnings of a process.
type ValidateCmd struct {
	Input string `arg:"" default:"-" help:"Process file (JSON, YAML or BPMN XML), or - for stdin."`
}

func (c *ValidateCmd) Run(a *app) error {
	data, err := a.read(c.Input)
	if err != nil {
		return err
	}

	var result *schema.ValidationResult
	if isXML(data) {
		process, convErr := a.engine.ToProcess(a.ctx, data)
		if convErr != nil {
			return convErr
		}
		result = a.engine.Validate(a.ctx, process)
	} else {
		_, result = a.engine.ValidateDocument(a.ctx, data)
	}

	out, err := encodeValue(map[string]any{
		"valid":    result.Valid(),
		"errors":   issuesOrEmpty(result.Errors),
		"warnings": issuesOrEmpty(result.Warnings),
	}, "json")
	if err != nil {
		return err
	}
	if err := a.write("", out); err != nil {
		return err
	}
	if !result.Valid() {
		return errReported
	}
	return nil
}

// DiagramCmd renders a process diagram.
type DiagramCmd struct {
	Input  string `arg:"" default:"-" help:"Process file (JSON, YAML or BPMN XML), or - for stdin."`
	Format string `help:"Diagram format: mermaid, ascii, svg or png (default from settings)." placeholder:"FORMAT"`
	Title  string `help:"Diagram title."`
	Output string `short:"o" help:"Write to FILE instead of stdout." placeholder:"FILE"`
}

func (c *DiagramCmd) Run(a *app) error {
	format, err := diagram.ParseFormat(orDefault(c.Format, a.cfg.DiagramFormat))
	if err != nil {
		return err
	}
	process, err := a.process(c.Input)
	if err != nil {
		return err
	}
	g, err := a.engine.Graph(a.ctx, process)
	if err != nil {
		return err
	}
	model, err := diagram.Build(g, c.Title, a.engine.Validate(a.ctx, process).Warnings...)
	if err != nil {
		return err
	}
	out, err := diagram.Render(a.ctx, model, format)
	if err != nil {
		return err
	}
	ctx := logging.StartConversion(a.ctx, logging.DirectionDiagram)
	a.logger.DebugContext(ctx, "rendered diagram", "format", format, "bytes", len(out))
	return a.write(c.Output, out)
}

// QueryCmd runs a jq expression against a process.
type QueryCmd struct {
	Expression string `arg:"" help:"jq expression. $elements holds every element, nested ones included."`
	Input      string `arg:"" default:"-" help:"Process file (JSON, YAML or BPMN XML), or - for stdin."`
}

func (c *QueryCmd) Run(a *app) error {
	process, err := a.process(c.Input)
	if err != nil {
		return err
	}
	results, err := a.query.Evaluate(a.ctx, c.Expression, process)
	if err != nil {
		return err
	}
	ctx := logging.StartConversion(a.ctx, logging.DirectionQuery)
	a.logger.DebugContext(ctx, "evaluated query", "expression", c.Expression, "results", len(results))

	var buf bytes.Buffer
	for _, r := range results {
		line, err := json.Marshal(r)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return a.write("", buf.Bytes())
}

// RoundTripCmd converts BPMN XML to a process and back, reporting changes.
type RoundTripCmd struct {
	Input string `arg:"" default:"-" help:"BPMN XML file, or - for stdin."`
}

func (c *RoundTripCmd) Run(a *app) error {
	data, err := a.read(c.Input)
	if err != nil {
		return err
	}
	report, err := a.engine.RoundTrip(a.ctx, data)
	if err != nil {
		return err
	}
	if report.Stable {
		return a.write("", []byte("stable\n"))
	}
	if err := a.write("", []byte(report.Diff)); err != nil {
		return err
	}
	return errReported
}

// ServeCmd serves the MCP tools over stdio.
type ServeCmd struct{}

func (c *ServeCmd) Run(a *app) error {
	srv, err := mcp.NewBPMNServer(mcp.BPMNServerDeps{
		Engine:        a.engine,
		Query:         a.query,
		Logger:        a.logger,
		DiagramFormat: diagram.Format(a.cfg.DiagramFormat),
	})
	if err != nil {
		return err
	}
	a.logger.InfoContext(logging.WithSource(a.ctx, "cli"), "serving MCP over stdio", "version", version)
	return srv.Serve(a.ctx)
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	printVersion(a.stdout)
	return nil
}

// --- Helpers ---

// read returns the content of path, or of stdin when path is "-".
func (a *app) read(path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(path)
}

// write sends data to path, or to stdout when path is empty.
func (a *app) write(path string, data []byte) error {
	if path == "" {
		_, err := a.stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// process loads a validated process from BPMN XML or a JSON/YAML document.
func (a *app) process(path string) (schema.Sequence, error) {
	data, err := a.read(path)
	if err != nil {
		return nil, err
	}
	if isXML(data) {
		return a.engine.ToProcess(a.ctx, data)
	}
	process, result := a.engine.ValidateDocument(a.ctx, data)
	if err := result.ToError(); err != nil {
		return nil, err
	}
	return process, nil
}

// isXML reports whether data starts with a markup character.
func isXML(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func encodeValue(v any, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return schema.EncodeYAML(v)
	case "json", "":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	default:
		return nil, fmt.Errorf("invalid output format %q (want json or yaml)", format)
	}
}

func issuesOrEmpty(issues []schema.ValidationIssue) []schema.ValidationIssue {
	if issues == nil {
		return []schema.ValidationIssue{}
	}
	return issues
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
