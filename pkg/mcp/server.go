package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/bpmnflow/internal/diagram"
	"github.com/rendis/bpmnflow/internal/engine"
	"github.com/rendis/bpmnflow/internal/query"
)

// ServerName and ServerVersion identify the MCP server to clients.
const (
	ServerName    = "bpmnflow"
	ServerVersion = "1.0.0"
)

// BPMNServerDeps holds the dependencies for creating a BPMNServer.
type BPMNServerDeps struct {
	Engine *engine.Engine
	Query  *query.Engine
	Logger *slog.Logger
	// DiagramFormat is used when a diagram request names no format.
	DiagramFormat diagram.Format
}

// BPMNServer wraps an MCP server with conversion tool handlers.
type BPMNServer struct {
	engine        *engine.Engine
	query         *query.Engine
	diagramFormat diagram.Format
	logger        *slog.Logger
	mcpServer     *server.MCPServer
}

// NewBPMNServer creates a new BPMNServer with all 6 tools registered.
// Missing dependencies are created with their defaults.
func NewBPMNServer(deps BPMNServerDeps) (*BPMNServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	eng := deps.Engine
	if eng == nil {
		var err error
		if eng, err = engine.New(logger); err != nil {
			return nil, err
		}
	}
	q := deps.Query
	if q == nil {
		q = query.New()
	}
	format := deps.DiagramFormat
	if format == "" {
		format = diagram.FormatMermaid
	}

	s := &BPMNServer{
		engine:        eng,
		query:         q,
		diagramFormat: format,
		logger:        logger,
	}

	mcpSrv := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("bpmnflow converts BPMN 2.0 XML to a structured JSON process tree and back. Use bpmn.to_json to read BPMN XML, bpmn.to_xml to produce it, bpmn.validate to check a process before converting, bpmn.diagram to visualize a process, bpmn.query to inspect a process with jq, and bpmn.roundtrip to check that a diagram survives conversion unchanged."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *BPMNServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *BPMNServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 6 registered MCP tools as ServerTool entries.
func (s *BPMNServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: toJSONTool(), Handler: s.handleToJSON},
		{Tool: toXMLTool(), Handler: s.handleToXML},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: roundTripTool(), Handler: s.handleRoundTrip},
	}
}

// --- Tool definitions ---

func toJSONTool() mcp.Tool {
	return mcp.NewTool("bpmn.to_json",
		mcp.WithDescription("Convert BPMN 2.0 XML into a structured JSON process"),
		mcp.WithString("xml", mcp.Required(), mcp.Description("BPMN 2.0 XML document")),
	)
}

func toXMLTool() mcp.Tool {
	return mcp.NewTool("bpmn.to_xml",
		mcp.WithDescription("Convert a structured JSON or YAML process into BPMN 2.0 XML"),
		mcp.WithString("process", mcp.Required(), mcp.Description("Process as a JSON array, a {\"process\": [...]} object, or YAML")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("bpmn.validate",
		mcp.WithDescription("Validate a structured process and report errors and warnings"),
		mcp.WithString("process", mcp.Required(), mcp.Description("Process as a JSON array, a {\"process\": [...]} object, or YAML")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("bpmn.diagram",
		mcp.WithDescription("Generate a visual diagram of a process. Returns Mermaid flowchart syntax, ASCII art, SVG, or a PNG image"),
		mcp.WithString("xml", mcp.Description("BPMN 2.0 XML document (use this or process)")),
		mcp.WithString("process", mcp.Description("Structured process as JSON or YAML (use this or xml)")),
		mcp.WithString("format",
			mcp.Enum(string(diagram.FormatMermaid), string(diagram.FormatASCII), string(diagram.FormatSVG), string(diagram.FormatPNG)),
			mcp.Description("Output format (default: server setting, usually mermaid)"),
		),
		mcp.WithString("title", mcp.Description("Diagram title")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("bpmn.query",
		mcp.WithDescription("Run a jq expression against a structured process. $elements holds every element including nested branch elements"),
		mcp.WithString("expression", mcp.Required(), mcp.Description("jq expression")),
		mcp.WithString("xml", mcp.Description("BPMN 2.0 XML document (use this or process)")),
		mcp.WithString("process", mcp.Description("Structured process as JSON or YAML (use this or xml)")),
	)
}

func roundTripTool() mcp.Tool {
	return mcp.NewTool("bpmn.roundtrip",
		mcp.WithDescription("Convert BPMN XML to JSON, back to XML and to JSON again, and report any difference"),
		mcp.WithString("xml", mcp.Required(), mcp.Description("BPMN 2.0 XML document")),
	)
}
