// Package tools routes function calls from the conversational AI session to
// their handlers and packages the result for the session protocol.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vango-go/callbridge/pkg/gateway/realtime"
)

const (
	ToolSearch          = "search"
	ToolReportGrounding = "report_grounding"
)

// Executor implements one tool. Execute returns a JSON-serializable result;
// executors must be safe for concurrent use, since multiple function calls
// may be in flight at once.
type Executor interface {
	Name() string
	Definition() realtime.Tool
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

type Registry struct {
	byName map[string]Executor
}

func NewRegistry(executors ...Executor) *Registry {
	registry := &Registry{byName: make(map[string]Executor, len(executors))}
	for _, ex := range executors {
		if ex == nil {
			continue
		}
		registry.byName[ex.Name()] = ex
	}
	return registry
}

func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.byName[strings.TrimSpace(name)]
	return ok
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool declarations for the session configuration,
// in stable name order.
func (r *Registry) Definitions() []realtime.Tool {
	if r == nil {
		return nil
	}
	defs := make([]realtime.Tool, 0, len(r.byName))
	for _, name := range r.Names() {
		defs = append(defs, r.byName[name].Definition())
	}
	return defs
}

// Execute invokes the named tool. An unrecognized tool name is an error; the
// caller must still answer the correlation identifier rather than leaving the
// conversational turn stalled.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("tool registry is not configured")
	}
	ex, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return ex.Execute(ctx, args)
}
