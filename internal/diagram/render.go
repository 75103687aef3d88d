package diagram

import (
	"context"
	"strings"

	"github.com/rendis/bpmnflow/pkg/schema"
)

// Format names an output format accepted by Render.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
	FormatPNG     Format = "png"
	FormatSVG     Format = "svg"
)

// Formats lists every supported output format.
var Formats = []Format{FormatMermaid, FormatASCII, FormatPNG, FormatSVG}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", schema.NewErrorf(schema.ErrCodeRender, "unsupported diagram format %q", s)
}

// Binary reports whether the format produces non-text output.
func (f Format) Binary() bool {
	return f == FormatPNG
}

// Render renders model in the given format.
func Render(ctx context.Context, model *DiagramModel, format Format) ([]byte, error) {
	switch format {
	case FormatMermaid:
		return []byte(RenderMermaid(model)), nil
	case FormatASCII:
		return []byte(RenderASCII(model)), nil
	case FormatPNG:
		return RenderImage(ctx, model)
	case FormatSVG:
		return RenderSVG(ctx, model)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeRender, "unsupported diagram format %q", format)
	}
}
