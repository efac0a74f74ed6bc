package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 2*time.Second)
}

func TestLoadFrom_Defaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := LoadFrom(home)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if !cfg.NeedsGenesis {
		t.Fatal("NeedsGenesis = false for missing config.yaml")
	}
	if cfg.BindAddr != "127.0.0.1:8765" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.AgentURL != "http://127.0.0.1:8765" {
		t.Fatalf("AgentURL = %q", cfg.AgentURL)
	}
	if cfg.HistoryTurns != 5 {
		t.Fatalf("HistoryTurns = %d", cfg.HistoryTurns)
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("Gemini.Model = %q", cfg.Gemini.Model)
	}
}

func TestLoadFrom_File(t *testing.T) {
	home := t.TempDir()
	yaml := `
bind_addr: "0.0.0.0:9001"
log_level: "debug"
history_turns: 8
gemini:
  model: "gemini-2.5-pro"
modules:
  web: false
app_aliases:
  editor: "code"
`
	if err := os.WriteFile(ConfigPath(home), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(home)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.NeedsGenesis {
		t.Fatal("NeedsGenesis = true with config.yaml present")
	}
	if cfg.BindAddr != "0.0.0.0:9001" || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.HistoryTurns != 8 {
		t.Fatalf("HistoryTurns = %d", cfg.HistoryTurns)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Fatalf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if enabled, ok := cfg.Modules["web"]; !ok || enabled {
		t.Fatalf("Modules = %v", cfg.Modules)
	}
	if cfg.AppAliases["editor"] != "code" {
		t.Fatalf("AppAliases = %v", cfg.AppAliases)
	}
	// AgentURL falls back to the bind address when unset.
	if cfg.AgentURL != "http://0.0.0.0:9001" {
		t.Fatalf("AgentURL = %q", cfg.AgentURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("BUDDYAI_BIND_ADDR", "127.0.0.1:7000")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_MODEL", "gemini-env-model")

	cfg, err := LoadFrom(home)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.BindAddr != "127.0.0.1:7000" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.Gemini.APIKey != "test-key" {
		t.Fatalf("Gemini.APIKey = %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.Model != "gemini-env-model" {
		t.Fatalf("Gemini.Model = %q", cfg.Gemini.Model)
	}
}

func TestHomeDirOverride(t *testing.T) {
	t.Setenv("BUDDYAI_HOME", "/tmp/buddy-home")
	if got := HomeDir(); got != "/tmp/buddy-home" {
		t.Fatalf("HomeDir() = %q", got)
	}
}

func TestWriteDefault(t *testing.T) {
	home := t.TempDir()
	if err := WriteDefault(home); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	cfg, err := LoadFrom(home)
	if err != nil {
		t.Fatalf("LoadFrom after WriteDefault: %v", err)
	}
	if cfg.NeedsGenesis {
		t.Fatal("NeedsGenesis = true after WriteDefault")
	}
	if cfg.BindAddr != "127.0.0.1:8765" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}

	// Does not clobber an existing file.
	path := ConfigPath(home)
	if err := os.WriteFile(path, []byte("bind_addr: \"127.0.0.1:1234\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefault(home); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	cfg, _ = LoadFrom(home)
	if cfg.BindAddr != "127.0.0.1:1234" {
		t.Fatal("WriteDefault overwrote an existing config")
	}
}

func TestFingerprintChangesWithConfig(t *testing.T) {
	a := defaultConfig()
	b := defaultConfig()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical configs disagree on fingerprint")
	}
	b.LogLevel = "debug"
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("fingerprint did not change with log level")
	}

	c := defaultConfig()
	c.AppAliases = map[string]string{"editor": "code"}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("fingerprint did not change with app aliases")
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(home, nil)
	ctx, cancel := testContext(t)
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		if filepath.Base(ev.Path) != "config.yaml" {
			t.Fatalf("event path = %q", ev.Path)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for reload event")
	}
}
