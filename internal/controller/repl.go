package controller

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/MockingJay1710/buddyai/internal/llm"
)

// Translator is the slice of the LLM layer the REPL needs.
type Translator interface {
	Translate(ctx context.Context, text string) (*llm.Result, error)
}

// REPL reads natural-language requests, translates them and forwards
// the resulting invocations to the agent.
type REPL struct {
	Client     *Client
	Translator Translator
	Logger     *slog.Logger

	// Prompt is printed before each read when interactive.
	Prompt      string
	Interactive bool
}

// Run processes lines from in until EOF or an exit command.
func (r *REPL) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prompt := r.Prompt
	if prompt == "" {
		prompt = "you> "
	}

	scanner := bufio.NewScanner(in)
	for {
		if r.Interactive {
			fmt.Fprint(out, prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Fprintln(out, "Bye.")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.handle(ctx, line, out); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			logger.Warn("request failed", "input", line, "error", err)
		}
	}
}

// HandleOnce translates and executes a single request, for one-shot use.
func (r *REPL) HandleOnce(ctx context.Context, text string, out io.Writer) error {
	return r.handle(ctx, strings.TrimSpace(text), out)
}

func (r *REPL) handle(ctx context.Context, line string, out io.Writer) error {
	result, err := r.Translator.Translate(ctx, line)
	if err != nil {
		return err
	}

	if result.Invocation == nil {
		fmt.Fprintln(out, result.Text)
		return nil
	}

	inv := result.Invocation
	raw, err := r.Client.Execute(ctx, inv.Command, inv.Params)
	if err != nil {
		var agentErr *AgentError
		if errors.As(err, &agentErr) {
			fmt.Fprintf(out, "[%s] %s\n", inv.Command, agentErr.Message)
			return nil
		}
		return err
	}

	fmt.Fprintf(out, "[%s]\n%s\n", inv.Command, indentJSON(raw))
	return nil
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return strings.TrimSpace(buf.String())
}

// PrintEvent renders one agent event for the terminal. Reminder events
// get a friendly line, everything else is dumped as JSON.
func PrintEvent(out io.Writer, ev Event) {
	if strings.HasPrefix(ev.Topic, "reminder.") {
		var payload struct {
			Message   string `json:"message"`
			FiredAt   string `json:"fired_at"`
			Recurring bool   `json:"recurring"`
		}
		if json.Unmarshal(ev.Payload, &payload) == nil && payload.Message != "" {
			fmt.Fprintf(out, "\n*** REMINDER: %s (%s)\n", payload.Message, payload.FiredAt)
			return
		}
	}
	fmt.Fprintf(out, "\n[event %s] %s\n", ev.Topic, indentJSON(ev.Payload))
}
