package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/rendis/bpmnflow/internal/engine"
	"github.com/rendis/bpmnflow/internal/query"
	"github.com/rendis/bpmnflow/pkg/schema"
)

// CLI is the command-line grammar.
type CLI struct {
	Config    string `help:"Settings file (default ~/.bpmnflow/settings.yaml)." type:"path" placeholder:"FILE"`
	LogLevel  string `help:"Log level: debug, info, warn or error." placeholder:"LEVEL"`
	LogFormat string `help:"Log format: text or json." placeholder:"FORMAT"`

	ToJSON    ToJSONCmd    `cmd:"" name:"to-json" help:"Convert BPMN XML to a structured process."`
	ToXML     ToXMLCmd     `cmd:"" name:"to-xml" help:"Convert a structured JSON or YAML process to BPMN XML."`
	Validate  ValidateCmd  `cmd:"" help:"Validate a structured process or BPMN XML."`
	Diagram   DiagramCmd   `cmd:"" help:"Render a process diagram."`
	Query     QueryCmd     `cmd:"" help:"Run a jq expression against a process."`
	RoundTrip RoundTripCmd `cmd:"" name:"roundtrip" help:"Check that BPMN XML survives a conversion cycle unchanged."`
	Serve     ServeCmd     `cmd:"" help:"Serve the conversion tools over MCP stdio."`
	Version   VersionCmd   `cmd:"" help:"Print the version."`
}

// app carries the wired dependencies into command Run methods.
type app struct {
	ctx    context.Context
	cfg    Config
	engine *engine.Engine
	query  *query.Engine
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
}

// errReported signals a failure whose details were already written.
var errReported = errors.New("reported")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args and executes the selected command. It returns the process
// exit code: 0 on success, 1 on a command failure, 2 on a usage error.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name("bpmnflow"),
		kong.Description("Convert BPMN 2.0 XML to structured processes and back."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "bpmnflow: %v\n", err)
		return 2
	}

	kctx, err := parser.Parse(args)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(stderr, "bpmnflow: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(stderr, "bpmnflow: %v\n", err)
		return 2
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.LogFormat = cli.LogFormat
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(stderr, "bpmnflow: %v\n", err)
		return 2
	}

	logger := newLogger(cfg, stderr)
	eng, err := engine.New(logger)
	if err != nil {
		fmt.Fprintf(stderr, "bpmnflow: %v\n", err)
		return 1
	}

	a := &app{
		ctx:    ctx,
		cfg:    cfg,
		engine: eng,
		query:  query.New(),
		logger: logger,
		stdin:  stdin,
		stdout: stdout,
	}
	if err := kctx.Run(a); err != nil {
		reportError(stderr, err)
		return 1
	}
	return 0
}

// reportError prints err, adding the code and element of structured errors.
func reportError(w io.Writer, err error) {
	if errors.Is(err, errReported) {
		return
	}
	var se *schema.Error
	if errors.As(err, &se) {
		if se.ElementID != "" {
			fmt.Fprintf(w, "bpmnflow: %s: %s (element %s)\n", se.Code, se.Message, se.ElementID)
			return
		}
		fmt.Fprintf(w, "bpmnflow: %s: %s\n", se.Code, se.Message)
		return
	}
	fmt.Fprintf(w, "bpmnflow: %v\n", err)
}
