package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/genai"

	"github.com/MockingJay1710/buddyai/internal/command"
)

func testSchema() command.Schema {
	return command.Schema{
		Commands: []command.CommandSchema{
			{
				Name:        "greet",
				Description: "Greets a user by name.",
				Params: map[string]command.ParamSchema{
					"name": {Type: command.TypeString, Description: "Name of the person.", Optional: true, Default: "Guest"},
				},
			},
			{
				Name:        "sys_set_volume",
				Description: "Sets the output volume.",
				Params: map[string]command.ParamSchema{
					"level": {Type: command.TypeInteger, Description: "Volume level 0-100."},
				},
			},
			{
				Name:        "tell_time",
				Description: "Returns the current time.",
				Params:      map[string]command.ParamSchema{},
			},
		},
	}
}

func TestDeclarationsFromSchema(t *testing.T) {
	decls := DeclarationsFromSchema(testSchema())
	if len(decls) != 3 {
		t.Fatalf("decls = %d, want 3", len(decls))
	}

	greet := decls[0]
	if greet.Name != "greet" || greet.Parameters == nil {
		t.Fatalf("greet decl = %+v", greet)
	}
	if greet.Parameters.Type != genai.TypeObject {
		t.Fatalf("greet params type = %v", greet.Parameters.Type)
	}
	if prop := greet.Parameters.Properties["name"]; prop == nil || prop.Type != genai.TypeString {
		t.Fatalf("greet name prop = %+v", prop)
	}
	// Optional params are not required.
	if len(greet.Parameters.Required) != 0 {
		t.Fatalf("greet required = %v", greet.Parameters.Required)
	}

	vol := decls[1]
	if vol.Parameters.Properties["level"].Type != genai.TypeInteger {
		t.Fatalf("level type = %v", vol.Parameters.Properties["level"].Type)
	}
	if len(vol.Parameters.Required) != 1 || vol.Parameters.Required[0] != "level" {
		t.Fatalf("vol required = %v", vol.Parameters.Required)
	}

	// Parameterless commands omit the schema entirely.
	if decls[2].Parameters != nil {
		t.Fatalf("tell_time params = %+v", decls[2].Parameters)
	}
}

func TestGenaiTypeFallback(t *testing.T) {
	if got := genaiType("mystery"); got != genai.TypeString {
		t.Fatalf("genaiType(mystery) = %v", got)
	}
	if got := genaiType(command.TypeBoolean); got != genai.TypeBoolean {
		t.Fatalf("genaiType(boolean) = %v", got)
	}
}

func fakeTranslator(t *testing.T, resp *genai.GenerateContentResponse, err error) *Translator {
	t.Helper()
	tr := newTranslator(Config{
		Model:        "test-model",
		HistoryTurns: 2,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, testSchema())
	tr.generate = func(context.Context, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return resp, err
	}
	return tr
}

func functionCallResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{Name: name, Args: args}},
				},
			},
		}},
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func TestTranslateFunctionCall(t *testing.T) {
	tr := fakeTranslator(t, functionCallResponse("sys_set_volume", map[string]any{"level": float64(40)}), nil)

	result, err := tr.Translate(context.Background(), "turn it down to 40")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if result.Invocation == nil {
		t.Fatalf("result = %+v, want invocation", result)
	}
	if result.Invocation.Command != "sys_set_volume" {
		t.Fatalf("command = %q", result.Invocation.Command)
	}
	if result.Invocation.Params["level"] != float64(40) {
		t.Fatalf("params = %v", result.Invocation.Params)
	}
}

func TestTranslateText(t *testing.T) {
	tr := fakeTranslator(t, textResponse("I cannot do that."), nil)

	result, err := tr.Translate(context.Background(), "write me a novel")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if result.Invocation != nil || result.Text != "I cannot do that." {
		t.Fatalf("result = %+v", result)
	}
}

func TestTranslateNilArgs(t *testing.T) {
	tr := fakeTranslator(t, functionCallResponse("tell_time", nil), nil)

	result, err := tr.Translate(context.Background(), "what time is it")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if result.Invocation == nil || result.Invocation.Params == nil {
		t.Fatalf("nil args not normalized: %+v", result)
	}
}

func TestTranslateErrors(t *testing.T) {
	tr := fakeTranslator(t, nil, fmt.Errorf("quota exceeded"))
	if _, err := tr.Translate(context.Background(), "hi"); err == nil {
		t.Fatal("transport error swallowed")
	}

	tr = fakeTranslator(t, &genai.GenerateContentResponse{}, nil)
	if _, err := tr.Translate(context.Background(), "hi"); err == nil {
		t.Fatal("empty response accepted")
	}
}

func TestHistoryBounded(t *testing.T) {
	tr := fakeTranslator(t, textResponse("ok"), nil)

	for i := 0; i < 10; i++ {
		if _, err := tr.Translate(context.Background(), "again"); err != nil {
			t.Fatalf("Translate: %v", err)
		}
	}
	// 2 turns means at most 4 retained entries.
	if got := tr.HistoryLen(); got != 4 {
		t.Fatalf("HistoryLen = %d, want 4", got)
	}

	tr.Reset()
	if tr.HistoryLen() != 0 {
		t.Fatal("Reset did not clear history")
	}
}
