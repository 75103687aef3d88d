package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/bpmnflow/internal/diagram"
	"github.com/rendis/bpmnflow/internal/logging"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// handleToJSON converts BPMN XML to a structured process.
func (s *BPMNServer) handleToJSON(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.toolContext(ctx, req)
	xmlDoc, err := req.RequireString("xml")
	if err != nil {
		return mcp.NewToolResultError("xml is required"), nil
	}

	process, convErr := s.engine.ToProcess(ctx, []byte(xmlDoc))
	if convErr != nil {
		return toolError(convErr), nil
	}
	result := s.engine.Validate(ctx, process)

	return marshalResult(map[string]any{
		"process":  process,
		"warnings": nonNil(result.Warnings),
	})
}

// handleToXML converts a structured process to BPMN XML.
func (s *BPMNServer) handleToXML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.toolContext(ctx, req)
	doc, ok := documentArg(req, "process")
	if !ok {
		return mcp.NewToolResultError("process is required"), nil
	}

	out, convErr := s.engine.DocumentToXML(ctx, doc)
	if convErr != nil {
		return toolError(convErr), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleValidate reports every error and warning of a structured process.
func (s *BPMNServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.toolContext(ctx, req)
	doc, ok := documentArg(req, "process")
	if !ok {
		return mcp.NewToolResultError("process is required"), nil
	}

	_, result := s.engine.ValidateDocument(ctx, doc)
	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   nonNil(result.Errors),
		"warnings": nonNil(result.Warnings),
	})
}

// handleDiagram renders a process given as XML or as a structured document.
// XML input is drawn even when it cannot be converted; the conversion error
// is then overlaid on the offending element.
func (s *BPMNServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.toolContext(ctx, req)

	format := s.diagramFormat
	if f := req.GetString("format", ""); f != "" {
		parsed, err := diagram.ParseFormat(f)
		if err != nil {
			return toolError(err), nil
		}
		format = parsed
	}
	title := req.GetString("title", "")

	var model *diagram.DiagramModel
	if xmlDoc := req.GetString("xml", ""); xmlDoc != "" {
		g, err := s.engine.ParseXML(ctx, []byte(xmlDoc))
		if err != nil {
			return toolError(err), nil
		}
		var issues []schema.ValidationIssue
		process, convErr := s.engine.ToProcess(ctx, []byte(xmlDoc))
		if convErr != nil {
			issues = append(issues, errorIssue(convErr))
		} else {
			issues = s.engine.Validate(ctx, process).Warnings
		}
		if model, err = diagram.Build(g, title, issues...); err != nil {
			return toolError(err), nil
		}
	} else if doc, ok := documentArg(req, "process"); ok {
		process, result := s.engine.ValidateDocument(ctx, doc)
		if err := result.ToError(); err != nil {
			return toolError(err), nil
		}
		g, err := s.engine.Graph(ctx, process)
		if err != nil {
			return toolError(err), nil
		}
		if model, err = diagram.Build(g, title, result.Warnings...); err != nil {
			return toolError(err), nil
		}
	} else {
		return mcp.NewToolResultError("one of xml or process is required"), nil
	}

	out, err := diagram.Render(ctx, model, format)
	if err != nil {
		return toolError(err), nil
	}
	logging.LogWith(logging.StartConversion(ctx, logging.DirectionDiagram), s.logger).
		Debug("rendered diagram", "format", format, "bytes", len(out))
	if format == diagram.FormatPNG {
		encoded := base64.StdEncoding.EncodeToString(out)
		return mcp.NewToolResultImage(model.Title, encoded, "image/png"), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleQuery evaluates a jq expression against a process.
func (s *BPMNServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.toolContext(ctx, req)
	expression, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError("expression is required"), nil
	}

	var process schema.Sequence
	if xmlDoc := req.GetString("xml", ""); xmlDoc != "" {
		if process, err = s.engine.ToProcess(ctx, []byte(xmlDoc)); err != nil {
			return toolError(err), nil
		}
	} else if doc, ok := documentArg(req, "process"); ok {
		var result *schema.ValidationResult
		process, result = s.engine.ValidateDocument(ctx, doc)
		if err := result.ToError(); err != nil {
			return toolError(err), nil
		}
	} else {
		return mcp.NewToolResultError("one of xml or process is required"), nil
	}

	results, qErr := s.query.Evaluate(ctx, expression, process)
	if qErr != nil {
		return toolError(qErr), nil
	}
	logging.LogWith(logging.StartConversion(ctx, logging.DirectionQuery), s.logger).
		Debug("evaluated query", "results", len(results))
	return marshalResult(map[string]any{"results": results})
}

// handleRoundTrip checks that XML survives a full conversion cycle.
func (s *BPMNServer) handleRoundTrip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = s.toolContext(ctx, req)
	xmlDoc, err := req.RequireString("xml")
	if err != nil {
		return mcp.NewToolResultError("xml is required"), nil
	}

	report, rtErr := s.engine.RoundTrip(ctx, []byte(xmlDoc))
	if rtErr != nil {
		return toolError(rtErr), nil
	}
	return marshalResult(report)
}

// --- Helpers ---

// toolContext tags the context with the calling tool for log correlation.
func (s *BPMNServer) toolContext(ctx context.Context, req mcp.CallToolRequest) context.Context {
	ctx = logging.WithSource(ctx, "mcp:"+req.Params.Name)
	logging.LogWith(ctx, s.logger).Debug("tool call")
	return ctx
}

// documentArg returns a process argument as bytes. Agents may send the
// process as a JSON/YAML string or as an already decoded value.
func documentArg(req mcp.CallToolRequest, key string) ([]byte, bool) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil, false
	}
	if str, isStr := v.(string); isStr {
		if str == "" {
			return nil, false
		}
		return []byte(str), true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return data, true
}

// errorIssue turns a conversion error into a diagram overlay issue.
func errorIssue(err error) schema.ValidationIssue {
	issue := schema.ValidationIssue{Path: "/", Message: err.Error(), Severity: schema.SeverityError}
	var se *schema.Error
	if errors.As(err, &se) {
		issue.Code = se.Code
		if se.ElementID != "" {
			issue.Path = se.ElementID
		}
	}
	return issue
}

// toolError reports err to the client. Structured errors are sent as JSON so
// agents can read the code and the offending element.
func toolError(err error) *mcp.CallToolResult {
	var se *schema.Error
	if errors.As(err, &se) {
		if data, mErr := json.Marshal(se); mErr == nil {
			return mcp.NewToolResultError(string(data))
		}
	}
	return mcp.NewToolResultError(err.Error())
}

func nonNil(issues []schema.ValidationIssue) []schema.ValidationIssue {
	if issues == nil {
		return []schema.ValidationIssue{}
	}
	return issues
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
