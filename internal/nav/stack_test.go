package nav_test

import (
	"testing"

	"watchdeck/internal/nav"
)

func TestPushPopCurrent(t *testing.T) {
	stack := nav.NewStack(nav.Screen{Name: "home"})

	if stack.Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", stack.Depth())
	}
	if stack.Current().Name != "home" {
		t.Fatalf("expected home on top, got %q", stack.Current().Name)
	}

	stack.Push(nav.Screen{Name: "details", Params: map[string]string{"id": "550"}})
	if stack.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", stack.Depth())
	}
	if got := stack.Current(); got.Name != "details" || got.Params["id"] != "550" {
		t.Fatalf("expected details screen with params, got %+v", got)
	}

	popped, ok := stack.Pop()
	if !ok {
		t.Fatal("expected pop to succeed")
	}
	if popped.Name != "details" {
		t.Fatalf("expected to pop details, got %q", popped.Name)
	}
	if stack.Current().Name != "home" {
		t.Fatalf("expected home after pop, got %q", stack.Current().Name)
	}
}

func TestPopRootFails(t *testing.T) {
	stack := nav.NewStack(nav.Screen{Name: "home"})

	if _, ok := stack.Pop(); ok {
		t.Fatal("expected pop of root to fail")
	}
	if stack.Depth() != 1 {
		t.Fatalf("expected root to survive, depth %d", stack.Depth())
	}
}

func TestReplaceKeepsDepth(t *testing.T) {
	stack := nav.NewStack(nav.Screen{Name: "home"})
	stack.Push(nav.Screen{Name: "search"})

	stack.Replace(nav.Screen{Name: "details"})
	if stack.Depth() != 2 {
		t.Fatalf("expected depth to stay 2, got %d", stack.Depth())
	}
	if stack.Current().Name != "details" {
		t.Fatalf("expected details on top, got %q", stack.Current().Name)
	}

	if _, ok := stack.Pop(); !ok {
		t.Fatal("expected pop to succeed")
	}
	if stack.Current().Name != "home" {
		t.Fatalf("expected home under replaced screen, got %q", stack.Current().Name)
	}
}

func TestResetInstallsNewRoot(t *testing.T) {
	stack := nav.NewStack(nav.Screen{Name: "home"})
	stack.Push(nav.Screen{Name: "search"})
	stack.Push(nav.Screen{Name: "details"})

	stack.Reset(nav.Screen{Name: "login"})
	if stack.Depth() != 1 {
		t.Fatalf("expected depth 1 after reset, got %d", stack.Depth())
	}
	if stack.Current().Name != "login" {
		t.Fatalf("expected login root, got %q", stack.Current().Name)
	}
	if _, ok := stack.Pop(); ok {
		t.Fatal("expected new root to be unpoppable")
	}
}

func TestOnChangeSeesEveryMutation(t *testing.T) {
	stack := nav.NewStack(nav.Screen{Name: "home"})

	type change struct {
		name  string
		depth int
	}
	var changes []change
	stack.OnChange(func(current nav.Screen, depth int) {
		changes = append(changes, change{current.Name, depth})
	})

	stack.Push(nav.Screen{Name: "search"})
	stack.Replace(nav.Screen{Name: "details"})
	stack.Pop()
	stack.Reset(nav.Screen{Name: "home"})

	want := []change{
		{"search", 2},
		{"details", 2},
		{"home", 1},
		{"home", 1},
	}
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %d: %+v", len(want), len(changes), changes)
	}
	for i, w := range want {
		if changes[i] != w {
			t.Errorf("change %d: expected %+v, got %+v", i, w, changes[i])
		}
	}
}

func TestCallbackMayUseStack(t *testing.T) {
	stack := nav.NewStack(nav.Screen{Name: "home"})

	var observedDepth int
	stack.OnChange(func(current nav.Screen, depth int) {
		// Re-entrant reads must not deadlock.
		observedDepth = stack.Depth()
	})

	stack.Push(nav.Screen{Name: "search"})
	if observedDepth != 2 {
		t.Fatalf("expected callback to read depth 2, got %d", observedDepth)
	}
}
