package command

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type greetInput struct {
	Name string `json:"name" desc:"Name of the person to greet." default:"Guest"`
}

type searchInput struct {
	Directory string `json:"directory" desc:"Directory to search."`
	Pattern   string `json:"pattern" desc:"Glob pattern for file names."`
	Recursive bool   `json:"recursive" desc:"Include subdirectories." default:"true"`
	Limit     int    `json:"limit" desc:"Maximum results." default:"50"`
}

func greetSpec() Spec {
	return New("greet", "Greets a user by name.",
		func(_ context.Context, in greetInput) (any, error) {
			return map[string]any{"message": "Hello, " + in.Name + "!"}, nil
		})
}

func TestNew_SchemaFromStruct(t *testing.T) {
	spec := New("fs_search_files", "Searches for files.",
		func(_ context.Context, in searchInput) (any, error) { return in, nil })

	want := map[string]struct {
		typ      string
		required bool
	}{
		"directory": {TypeString, true},
		"pattern":   {TypeString, true},
		"recursive": {TypeBoolean, false},
		"limit":     {TypeInteger, false},
	}
	if len(spec.Params) != len(want) {
		t.Fatalf("param count = %d, want %d", len(spec.Params), len(want))
	}
	for _, p := range spec.Params {
		w, ok := want[p.Name]
		if !ok {
			t.Fatalf("unexpected param %q", p.Name)
		}
		if p.Type != w.typ {
			t.Errorf("param %q type = %q, want %q", p.Name, p.Type, w.typ)
		}
		if p.Required != w.required {
			t.Errorf("param %q required = %v, want %v", p.Name, p.Required, w.required)
		}
		if p.Description == "" {
			t.Errorf("param %q has no description", p.Name)
		}
	}
}

func TestNew_DefaultValues(t *testing.T) {
	spec := New("x", "", func(_ context.Context, in searchInput) (any, error) { return in, nil })

	defaults := map[string]any{}
	for _, p := range spec.Params {
		if !p.Required {
			defaults[p.Name] = p.Default
		}
	}
	if got := defaults["recursive"]; got != true {
		t.Errorf("recursive default = %v, want true", got)
	}
	if got := defaults["limit"]; got != int64(50) {
		t.Errorf("limit default = %v (%T), want 50", got, got)
	}
}

func TestInvoke_AppliesDefaults(t *testing.T) {
	spec := greetSpec()

	result, err := spec.Invoke(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	msg := result.(map[string]any)["message"]
	if msg != "Hello, Guest!" {
		t.Fatalf("message = %q, want %q", msg, "Hello, Guest!")
	}
}

func TestInvoke_ExplicitParamWins(t *testing.T) {
	spec := greetSpec()

	result, err := spec.Invoke(context.Background(), map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	msg := result.(map[string]any)["message"]
	if msg != "Hello, Ada!" {
		t.Fatalf("message = %q, want %q", msg, "Hello, Ada!")
	}
}

func TestInvoke_RejectsWrongType(t *testing.T) {
	spec := greetSpec()

	_, err := spec.Invoke(context.Background(), map[string]any{"name": 42})
	if !IsInvalidParams(err) {
		t.Fatalf("err = %v, want InvalidParamsError", err)
	}
}

func TestInvoke_RejectsUnknownParam(t *testing.T) {
	spec := greetSpec()

	_, err := spec.Invoke(context.Background(), map[string]any{"naem": "typo"})
	if !IsInvalidParams(err) {
		t.Fatalf("err = %v, want InvalidParamsError", err)
	}
}

func TestInvoke_MissingRequiredParam(t *testing.T) {
	spec := New("fs_read_file", "Reads a file.",
		func(_ context.Context, in struct {
			Path string `json:"path" desc:"File path."`
		}) (any, error) {
			return in.Path, nil
		})

	_, err := spec.Invoke(context.Background(), map[string]any{})
	if !IsInvalidParams(err) {
		t.Fatalf("err = %v, want InvalidParamsError", err)
	}
}

func TestInvoke_RecoversPanic(t *testing.T) {
	spec := New("boom", "Always panics.",
		func(_ context.Context, in struct {
			Value string `json:"value" default:""`
		}) (any, error) {
			panic("handler bug")
		})

	_, err := spec.Invoke(context.Background(), map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("err = %v, want recovered panic", err)
	}
}

func TestInvoke_IntegerAcceptsWholeFloat(t *testing.T) {
	// LLM-produced JSON carries integers as floating point numbers.
	spec := New("sys_set_volume", "Sets the volume.",
		func(_ context.Context, in struct {
			Level int `json:"level" desc:"Volume level 0-100."`
		}) (any, error) {
			return in.Level, nil
		})

	result, err := spec.Invoke(context.Background(), map[string]any{"level": float64(70)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.(int) != 70 {
		t.Fatalf("level = %v, want 70", result)
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(greetSpec())

	result, err := r.Dispatch(context.Background(), "greet", map[string]any{"name": "Bo"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result.(map[string]any)["message"] != "Hello, Bo!" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestRegistry_UnknownCommand(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Dispatch(context.Background(), "nope", nil)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestRegistry_CollisionFirstWins(t *testing.T) {
	r := NewRegistry(nil)
	first := New("dup", "first", func(_ context.Context, in struct {
		X string `json:"x" default:""`
	}) (any, error) {
		return "first", nil
	})
	second := New("dup", "second", func(_ context.Context, in struct {
		X string `json:"x" default:""`
	}) (any, error) {
		return "second", nil
	})
	r.Register(first, second)

	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}
	result, err := r.Dispatch(context.Background(), "dup", nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if result != "first" {
		t.Fatalf("result = %v, want first registration", result)
	}
}

func TestWireSchema(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(greetSpec())

	schema := r.WireSchema()
	if len(schema.Commands) != 1 {
		t.Fatalf("command count = %d, want 1", len(schema.Commands))
	}
	cs := schema.Commands[0]
	if cs.Name != "greet" {
		t.Fatalf("name = %q, want greet", cs.Name)
	}
	ps, ok := cs.Params["name"]
	if !ok {
		t.Fatal("missing param schema for name")
	}
	if ps.Type != TypeString || !ps.Optional || ps.Default != "Guest" {
		t.Fatalf("param schema = %+v", ps)
	}
}
