// gen-diagrams renders every example process for the README documentation.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/bpmnflow/internal/diagram"
	"github.com/rendis/bpmnflow/internal/engine"
	"github.com/rendis/bpmnflow/pkg/schema"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	eng, err := engine.New(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine error: %v\n", err)
		os.Exit(1)
	}

	outDir := filepath.Join("docs", "assets")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir error: %v\n", err)
		os.Exit(1)
	}

	files, _ := filepath.Glob(filepath.Join("examples", "*"))
	failed := false
	for _, path := range files {
		if err := generate(ctx, eng, path, outDir, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// generate writes the ASCII, Mermaid and PNG renderings of one example.
func generate(ctx context.Context, eng *engine.Engine, path, outDir string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var process schema.Sequence
	switch filepath.Ext(path) {
	case ".bpmn", ".xml":
		process, err = eng.ToProcess(ctx, data)
	case ".yaml", ".yml", ".json":
		var result *schema.ValidationResult
		process, result = eng.ValidateDocument(ctx, data)
		err = result.ToError()
	default:
		return nil
	}
	if err != nil {
		return err
	}

	g, err := eng.Graph(ctx, process)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	model, err := diagram.Build(g, name)
	if err != nil {
		return err
	}

	ascii := diagram.RenderASCII(model)
	if err := os.WriteFile(filepath.Join(outDir, name+"-ascii.txt"), []byte(ascii), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "=== %s (ASCII) ===\n%s\n", name, ascii)

	mermaid := diagram.RenderMermaid(model)
	if err := os.WriteFile(filepath.Join(outDir, name+"-mermaid.md"), []byte("```mermaid\n"+mermaid+"```\n"), 0o644); err != nil {
		return err
	}

	png, err := diagram.RenderImage(ctx, model)
	if err != nil {
		return err
	}
	pngPath := filepath.Join(outDir, name+".png")
	if err := os.WriteFile(pngPath, png, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "Written: %s (%d bytes)\n", pngPath, len(png))
	return nil
}
