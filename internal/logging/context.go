package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey int

const (
	conversionIDKey ctxKey = iota
	directionKey
	sourceKey
)

// Conversion directions recorded on the context.
const (
	DirectionXMLToJSON = "xml_to_json"
	DirectionJSONToXML = "json_to_xml"
	DirectionValidate  = "validate"
	DirectionRoundTrip = "roundtrip"
	DirectionDiagram   = "diagram"
	DirectionQuery     = "query"
)

// WithConversionID returns a context with the conversion ID set.
func WithConversionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversionIDKey, id)
}

// WithDirection returns a context with the conversion direction set.
func WithDirection(ctx context.Context, direction string) context.Context {
	return context.WithValue(ctx, directionKey, direction)
}

// WithSource returns a context with the request source set (a file path,
// an MCP tool name, "stdin").
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// ConversionID extracts the conversion ID from the context, or "" if absent.
func ConversionID(ctx context.Context) string {
	v, _ := ctx.Value(conversionIDKey).(string)
	return v
}

// Direction extracts the conversion direction from the context, or "" if absent.
func Direction(ctx context.Context) string {
	v, _ := ctx.Value(directionKey).(string)
	return v
}

// Source extracts the request source from the context, or "" if absent.
func Source(ctx context.Context) string {
	v, _ := ctx.Value(sourceKey).(string)
	return v
}

// StartConversion tags ctx with a fresh conversion ID and the given direction.
// An existing conversion ID is kept so nested calls share one correlation ID.
func StartConversion(ctx context.Context, direction string) context.Context {
	if ConversionID(ctx) == "" {
		ctx = WithConversionID(ctx, uuid.NewString())
	}
	return WithDirection(ctx, direction)
}

// LogWith returns a logger enriched with correlation values from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := ConversionID(ctx); id != "" {
		logger = logger.With(slog.String("conversion_id", id))
	}
	if d := Direction(ctx); d != "" {
		logger = logger.With(slog.String("direction", d))
	}
	if s := Source(ctx); s != "" {
		logger = logger.With(slog.String("source", s))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation values from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and the values appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := ConversionID(ctx); v != "" {
		r.AddAttrs(slog.String("conversion_id", v))
	}
	if v := Direction(ctx); v != "" {
		r.AddAttrs(slog.String("direction", v))
	}
	if v := Source(ctx); v != "" {
		r.AddAttrs(slog.String("source", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
