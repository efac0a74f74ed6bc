// Command buddyctl is the natural-language controller: it translates
// what you type into agent commands via Gemini and forwards them.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/MockingJay1710/buddyai/internal/config"
	"github.com/MockingJay1710/buddyai/internal/controller"
	"github.com/MockingJay1710/buddyai/internal/llm"
	"github.com/MockingJay1710/buddyai/internal/telemetry"
)

func main() {
	loadDotEnv(".env")
	loadDotEnv(filepath.Join(config.HomeDir(), ".env"))

	agentURL := flag.String("agent", "", "agent base URL override, e.g. http://127.0.0.1:8765")
	oneshot := flag.String("oneshot", "", "translate and run a single request, then exit")
	noEvents := flag.Bool("no-events", false, "skip the reminder event stream")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fatal("config load", err)
	}
	if *agentURL != "" {
		cfg.AgentURL = *agentURL
	}

	// File-only logs keep the conversation readable.
	logger, _, closer, err := telemetry.NewLogger(cfg.HomeDir, "controller", cfg.LogLevel, true)
	if err != nil {
		fatal("logger init", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	client := controller.NewClient(cfg.AgentURL)

	schema, err := client.FetchSchema(ctx)
	if err != nil {
		fatal("fetch command schema", fmt.Errorf("%w\n\n  Is the agent running? Start it with: buddyd", err))
	}
	logger.Info("schema fetched", "commands", len(schema.Commands), "agent", cfg.AgentURL)

	translator, err := llm.New(ctx, llm.Config{
		APIKey:       cfg.Gemini.APIKey,
		Model:        cfg.Gemini.Model,
		HistoryTurns: cfg.HistoryTurns,
		Logger:       logger,
	}, schema)
	if err != nil {
		fatal("gemini init", err)
	}

	repl := &controller.REPL{
		Client:      client,
		Translator:  translator,
		Logger:      logger,
		Interactive: isatty.IsTerminal(os.Stdout.Fd()),
	}

	if *oneshot != "" {
		if err := repl.HandleOnce(ctx, *oneshot, os.Stdout); err != nil {
			fatal("request", err)
		}
		return
	}

	if !*noEvents {
		go streamEvents(ctx, client, logger)
	}

	if repl.Interactive {
		fmt.Printf("buddyai controller. %d commands available. Type 'exit' to quit.\n", len(schema.Commands))
	}
	if err := repl.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fatal("repl", err)
	}
}

// streamEvents keeps a reminder subscription open, reconnecting with
// backoff when the agent drops the connection.
func streamEvents(ctx context.Context, client *controller.Client, logger *slog.Logger) {
	backoff := time.Second
	for ctx.Err() == nil {
		err := client.Events(ctx, "reminder", func(ev controller.Event) {
			controller.PrintEvent(os.Stdout, ev)
			backoff = time.Second
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("event stream dropped", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func fatal(phase string, err error) {
	fmt.Fprintf(os.Stderr, "buddyctl: %s: %v\n", phase, err)
	os.Exit(1)
}

// loadDotEnv applies KEY=VALUE lines from path without overriding
// variables already present in the environment.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		_ = os.Setenv(key, val)
	}
}
