// Package llm translates natural language into command invocations
// using Gemini function calling.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/MockingJay1710/buddyai/internal/command"
)

const systemInstruction = `You are the translation layer of a local desktop assistant.
The user speaks in natural language; your job is to pick the single best
command from the provided function declarations and fill in its
parameters. Prefer calling a function over answering in text. Only
answer in text when no available command fits the request, and keep
such answers to one or two sentences.`

// Invocation is a resolved command call.
type Invocation struct {
	Command string
	Params  map[string]any
}

// Result is the outcome of one translation: either an invocation to
// forward to the agent, or plain text for the user.
type Result struct {
	Invocation *Invocation
	Text       string
}

type Config struct {
	APIKey string
	Model  string

	// HistoryTurns bounds how many past exchanges are replayed to the
	// model. Zero uses the default of 5.
	HistoryTurns int

	Logger *slog.Logger
}

// generateFunc matches the Models.GenerateContent call, split out so
// tests can substitute a canned model.
type generateFunc func(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Translator holds the Gemini session state for one controller.
type Translator struct {
	model        string
	decls        []*genai.FunctionDeclaration
	generate     generateFunc
	logger       *slog.Logger
	historyTurns int
	history      []*genai.Content
}

// New builds a Translator for the given command schema.
func New(ctx context.Context, cfg Config, schema command.Schema) (*Translator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing Gemini API key (set GEMINI_API_KEY or gemini.api_key)")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	t := newTranslator(cfg, schema)
	t.model = model
	t.generate = func(ctx context.Context, contents []*genai.Content, gcfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, contents, gcfg)
	}
	return t, nil
}

func newTranslator(cfg Config, schema command.Schema) *Translator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	turns := cfg.HistoryTurns
	if turns <= 0 {
		turns = 5
	}
	return &Translator{
		model:        cfg.Model,
		decls:        DeclarationsFromSchema(schema),
		logger:       logger,
		historyTurns: turns,
	}
}

// Translate maps one user utterance to a Result. The exchange is
// appended to the bounded history so follow-ups can refer back.
func (t *Translator) Translate(ctx context.Context, text string) (*Result, error) {
	userTurn := genai.NewContentFromText(text, genai.RoleUser)
	contents := append(append([]*genai.Content{}, t.history...), userTurn)

	gcfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.1),
		Tools: []*genai.Tool{
			{FunctionDeclarations: t.decls},
		},
	}

	resp, err := t.generate(ctx, contents, gcfg)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	result, modelTurn, err := parseResponse(resp)
	if err != nil {
		return nil, err
	}

	t.remember(userTurn, modelTurn)

	if result.Invocation != nil {
		t.logger.Debug("translated to command",
			"command", result.Invocation.Command,
			"params", result.Invocation.Params)
	}
	return result, nil
}

// parseResponse extracts the first function call, falling back to the
// concatenated text parts.
func parseResponse(resp *genai.GenerateContentResponse) (*Result, *genai.Content, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil, fmt.Errorf("empty response from model")
	}
	content := resp.Candidates[0].Content

	var texts []string
	for _, part := range content.Parts {
		if part.FunctionCall != nil {
			fc := part.FunctionCall
			params := fc.Args
			if params == nil {
				params = map[string]any{}
			}
			return &Result{
				Invocation: &Invocation{Command: fc.Name, Params: params},
			}, content, nil
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	text := strings.TrimSpace(strings.Join(texts, "\n"))
	if text == "" {
		return nil, nil, fmt.Errorf("model returned neither a function call nor text")
	}
	return &Result{Text: text}, content, nil
}

// remember appends an exchange and trims history to the configured
// number of turns. A turn is one user content plus one model content.
func (t *Translator) remember(userTurn, modelTurn *genai.Content) {
	t.history = append(t.history, userTurn)
	if modelTurn != nil {
		t.history = append(t.history, modelTurn)
	}
	maxEntries := t.historyTurns * 2
	if len(t.history) > maxEntries {
		t.history = t.history[len(t.history)-maxEntries:]
	}
}

// HistoryLen reports the number of content entries currently retained.
func (t *Translator) HistoryLen() int { return len(t.history) }

// Reset clears the conversation history.
func (t *Translator) Reset() { t.history = nil }
