package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/vango-go/callbridge/pkg/gateway/realtime"
)

type staticExecutor struct {
	name   string
	result any
	err    error

	gotArgs json.RawMessage
}

func (s *staticExecutor) Name() string { return s.name }

func (s *staticExecutor) Definition() realtime.Tool {
	return realtime.Tool{Type: "function", Name: s.name}
}

func (s *staticExecutor) Execute(_ context.Context, args json.RawMessage) (any, error) {
	s.gotArgs = args
	return s.result, s.err
}

func TestRegistryExecuteDispatches(t *testing.T) {
	ex := &staticExecutor{name: "echo", result: "ok"}
	reg := NewRegistry(ex)

	out, err := reg.Execute(context.Background(), "echo", json.RawMessage(`{"q":1}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "ok" {
		t.Fatalf("result = %v, want ok", out)
	}
	if string(ex.gotArgs) != `{"q":1}` {
		t.Fatalf("args = %s", ex.gotArgs)
	}
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry(&staticExecutor{name: "echo"})

	_, err := reg.Execute(context.Background(), "nope", nil)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Fatalf("error should name the tool: %v", err)
	}
}

func TestRegistryHasAndNames(t *testing.T) {
	reg := NewRegistry(&staticExecutor{name: "b"}, &staticExecutor{name: "a"}, nil)

	if !reg.Has("a") || !reg.Has("b") {
		t.Fatal("registered tools should be present")
	}
	if reg.Has("c") {
		t.Fatal("unregistered tool should be absent")
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("Names() = %v, want [a b]", names)
	}
}

func TestRegistryDefinitionsStableOrder(t *testing.T) {
	reg := NewRegistry(&staticExecutor{name: "zeta"}, &staticExecutor{name: "alpha"})

	defs := reg.Definitions()
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Name != "alpha" || defs[1].Name != "zeta" {
		t.Fatalf("definitions out of order: %s, %s", defs[0].Name, defs[1].Name)
	}
}

func TestNilRegistry(t *testing.T) {
	var reg *Registry
	if reg.Has("x") {
		t.Fatal("nil registry should have no tools")
	}
	if _, err := reg.Execute(context.Background(), "x", nil); err == nil {
		t.Fatal("nil registry Execute should error")
	}
}
