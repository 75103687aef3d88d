// Package query evaluates jq expressions against structured processes.
package query

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/rendis/bpmnflow/pkg/schema"
)

// ElementsVariable is bound to the flat list of every element of the process,
// nested branch elements included, in depth-first order. Gateway entries keep
// their branches.
const ElementsVariable = "$elements"

// DefaultCacheSize bounds the number of compiled programs kept by New.
const DefaultCacheSize = 256

// Engine evaluates jq expressions against a process encoded as JSON.
// Thread-safe: compiled *Code objects are cached and reused across goroutines.
// Once the cache is full the oldest program is evicted.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
	order []string
	limit int
}

// New creates a query engine caching up to DefaultCacheSize programs.
func New() *Engine {
	return NewWithCacheSize(DefaultCacheSize)
}

// NewWithCacheSize creates a query engine caching up to size programs.
// A size below one disables caching.
func NewWithCacheSize(size int) *Engine {
	return &Engine{cache: make(map[string]*gojq.Code), limit: size}
}

// Evaluate runs expression with the process as input and returns every output.
func (e *Engine) Evaluate(ctx context.Context, expression string, process schema.Sequence) ([]any, error) {
	input, err := toJQ(process)
	if err != nil {
		return nil, err
	}

	var nodes []schema.Node
	_ = schema.Walk(process, func(n schema.Node) error {
		nodes = append(nodes, n)
		return nil
	})
	elements, err := toJQ(nodes)
	if err != nil {
		return nil, err
	}
	if elements == nil {
		elements = []any{}
	}

	return e.run(ctx, expression, input, elements)
}

// EvaluateValue runs expression against an arbitrary JSON-compatible value.
// ElementsVariable is bound to an empty list.
func (e *Engine) EvaluateValue(ctx context.Context, expression string, input any) ([]any, error) {
	v, err := toJQ(input)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, v, []any{})
}

func (e *Engine) run(ctx context.Context, expression string, input any, elements any) ([]any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeQuery, "empty jq expression")
	}

	code, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	iter := code.RunWithContext(ctx, input, elements)

	results := []any{}
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeQuery,
				"jq evaluation failed for %q: %s", expression, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"expression": expression})
		}
		results = append(results, val)
	}
	return results, nil
}

// getOrCompile returns a cached compiled code or compiles and caches a new one.
func (e *Engine) getOrCompile(expression string) (*gojq.Code, error) {
	e.mu.RLock()
	if code, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return code, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if code, ok := e.cache[expression]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(expression)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeQuery,
			"jq parse error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	code, err := gojq.Compile(parsed,
		gojq.WithVariables([]string{ElementsVariable}),
		// Sandbox: return empty env to block $ENV and env access.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeQuery,
			"jq compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	if e.limit < 1 {
		return code, nil
	}
	if len(e.order) >= e.limit {
		delete(e.cache, e.order[0])
		e.order = e.order[1:]
	}
	e.cache[expression] = code
	e.order = append(e.order, expression)
	return code, nil
}

// toJQ converts v to the generic JSON form gojq operates on
// (map[string]any, []any, float64, string, bool, nil).
func toJQ(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeQuery, "failed to encode query input").WithCause(err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, schema.NewError(schema.ErrCodeQuery, "failed to encode query input").WithCause(err)
	}
	return out, nil
}
