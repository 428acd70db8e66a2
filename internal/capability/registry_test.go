package capability

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubExecutor is a minimal executor for registry tests.
type stubExecutor struct {
	meta Metadata
	run  func(ctx context.Context, args map[string]any) Result
}

func (s *stubExecutor) Metadata() Metadata { return s.meta }

func (s *stubExecutor) Run(ctx context.Context, args map[string]any) Result {
	if s.run == nil {
		return Ok("stub")
	}
	return s.run(ctx, args)
}

func newStub(name string) *stubExecutor {
	return &stubExecutor{meta: Metadata{Name: name, Category: "general"}}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry(nil)
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d capabilities", reg.Count())
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry(nil)

	if err := reg.Register(newStub("echo")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	exec, ok := reg.Get("echo")
	if !ok {
		t.Fatal("Get returned false for registered capability")
	}
	if exec.Metadata().Name != "echo" {
		t.Errorf("got name %q, want %q", exec.Metadata().Name, "echo")
	}

	if _, ok := reg.Get("missing"); ok {
		t.Error("Get returned true for unregistered capability")
	}
}

func TestRegisterEmptyName(t *testing.T) {
	reg := NewRegistry(nil)
	err := reg.Register(newStub(""))
	if !errors.Is(err, ErrNameEmpty) {
		t.Fatalf("got %v, want ErrNameEmpty", err)
	}
}

func TestReRegisterOverwrites(t *testing.T) {
	reg := NewRegistry(nil)

	first := newStub("calc")
	first.run = func(ctx context.Context, args map[string]any) Result { return Ok("first") }
	second := newStub("calc")
	second.run = func(ctx context.Context, args map[string]any) Result { return Ok("second") }

	if err := reg.Register(first); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register(second); err != nil {
		t.Fatalf("re-Register failed: %v", err)
	}

	if reg.Count() != 1 {
		t.Errorf("expected 1 capability after overwrite, got %d", reg.Count())
	}

	res := reg.Execute(context.Background(), "calc", nil)
	if res.Output != "second" {
		t.Errorf("expected last-write-wins, got output %v", res.Output)
	}
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	reg := NewRegistry(nil)
	for _, name := range []string{"web_search", "calculator", "echo"} {
		if err := reg.Register(newStub(name)); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	// Overwriting must not move an entry to the back.
	if err := reg.Register(newStub("web_search")); err != nil {
		t.Fatalf("re-Register failed: %v", err)
	}

	metas := reg.List()
	want := []string{"web_search", "calculator", "echo"}
	if len(metas) != len(want) {
		t.Fatalf("List returned %d entries, want %d", len(metas), len(want))
	}
	for i, name := range want {
		if metas[i].Name != name {
			t.Errorf("List[%d] = %q, want %q", i, metas[i].Name, name)
		}
	}
}

func TestExecuteUnknownCapability(t *testing.T) {
	reg := NewRegistry(nil)
	res := reg.Execute(context.Background(), "nope", nil)
	if res.Success {
		t.Fatal("expected failure for unknown capability")
	}
	if !strings.Contains(res.Error, "capability not found") {
		t.Errorf("error %q should mention capability not found", res.Error)
	}
	if !strings.Contains(res.Error, "nope") {
		t.Errorf("error %q should name the missing capability", res.Error)
	}
}

func TestExecuteMissingRequiredParameter(t *testing.T) {
	reg := NewRegistry(nil)
	exec := &stubExecutor{
		meta: Metadata{
			Name: "greet",
			Parameters: []Parameter{
				{Name: "who", Type: "string", Required: true},
				{Name: "tone", Type: "string", Required: false},
			},
		},
	}
	if err := reg.Register(exec); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	res := reg.Execute(context.Background(), "greet", map[string]any{"tone": "warm"})
	if res.Success {
		t.Fatal("expected failure for missing required parameter")
	}
	if !strings.Contains(res.Error, "who") {
		t.Errorf("error %q should name the missing parameter", res.Error)
	}

	res = reg.Execute(context.Background(), "greet", map[string]any{"who": "alice"})
	if !res.Success {
		t.Fatalf("expected success with required parameter supplied, got %q", res.Error)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	reg := NewRegistry(nil)
	exec := newStub("boom")
	exec.run = func(ctx context.Context, args map[string]any) Result {
		panic("executor bug")
	}
	if err := reg.Register(exec); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	res := reg.Execute(context.Background(), "boom", nil)
	if res.Success {
		t.Fatal("expected failure from panicking executor")
	}
	if !strings.Contains(res.Error, "executor bug") {
		t.Errorf("error %q should carry the panic message", res.Error)
	}
}
