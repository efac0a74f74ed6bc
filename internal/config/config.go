package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GeminiConfig holds settings for the Gemini translation backend.
type GeminiConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// OtelConfig controls trace and metric export.
type OtelConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter names the span exporter: "stdout" or "otlp".
	Exporter string `yaml:"exporter"`
	// Endpoint is the OTLP HTTP collector address, e.g. "localhost:4318".
	Endpoint string `yaml:"endpoint"`
}

type Config struct {
	HomeDir string `yaml:"-"`

	// BindAddr is the address the agent's HTTP server listens on.
	BindAddr string `yaml:"bind_addr"`
	LogLevel string `yaml:"log_level"`

	// AgentURL is the base URL the controller talks to.
	AgentURL string `yaml:"agent_url"`

	// HistoryTurns bounds the conversation history kept by the controller.
	HistoryTurns int `yaml:"history_turns"`

	Gemini GeminiConfig `yaml:"gemini"`

	// Modules toggles command modules by name. Absent means enabled;
	// an explicit false disables the module.
	Modules map[string]bool `yaml:"modules"`

	// AppAliases maps friendly application names to the command that
	// launches them, merged over the built-in table.
	AppAliases map[string]string `yaml:"app_aliases"`

	// ReminderTickSeconds is the due-reminder poll interval.
	ReminderTickSeconds int `yaml:"reminder_tick_seconds"`

	Otel OtelConfig `yaml:"otel"`

	// NeedsGenesis is set when no config.yaml existed and defaults were used.
	NeedsGenesis bool `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		BindAddr:            "127.0.0.1:8765",
		LogLevel:            "info",
		HistoryTurns:        5,
		ReminderTickSeconds: 1,
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Otel: OtelConfig{Exporter: "stdout"},
	}
}

// HomeDir resolves the buddyai home directory. BUDDYAI_HOME overrides
// the default ~/.buddyai.
func HomeDir() string {
	if override := os.Getenv("BUDDYAI_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".buddyai")
}

// ConfigPath returns the path to config.yaml within the given home directory.
func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}

// Load reads config.yaml from the buddyai home, creating the home
// directory if needed. Missing file yields defaults with NeedsGenesis set.
func Load() (Config, error) {
	return LoadFrom(HomeDir())
}

// LoadFrom is Load with an explicit home directory.
func LoadFrom(homeDir string) (Config, error) {
	cfg := defaultConfig()
	cfg.HomeDir = homeDir

	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create buddyai home: %w", err)
	}

	data, err := os.ReadFile(ConfigPath(cfg.HomeDir))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.NeedsGenesis = true
		} else {
			return cfg, fmt.Errorf("read config.yaml: %w", err)
		}
	} else if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:8765"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	// AgentURL stays empty in the defaults so a custom bind_addr with no
	// explicit agent_url still lands here.
	if cfg.AgentURL == "" {
		cfg.AgentURL = "http://" + cfg.BindAddr
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 5
	}
	if cfg.ReminderTickSeconds <= 0 {
		cfg.ReminderTickSeconds = 1
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Otel.Exporter == "" {
		cfg.Otel.Exporter = "stdout"
	}
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("BUDDYAI_BIND_ADDR"); raw != "" {
		cfg.BindAddr = raw
	}
	if raw := os.Getenv("BUDDYAI_LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("BUDDYAI_AGENT_URL"); raw != "" {
		cfg.AgentURL = raw
	}
	if raw := os.Getenv("GEMINI_API_KEY"); raw != "" {
		cfg.Gemini.APIKey = raw
	}
	if raw := os.Getenv("GEMINI_MODEL"); raw != "" {
		cfg.Gemini.Model = raw
	}
}

// Fingerprint returns a stable hash of the settings that matter for
// live reload comparisons.
func (c Config) Fingerprint() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "bind=%s|log=%s|agent=%s|model=%s|turns=%d|tick=%d|modules=%v|aliases=%v",
		c.BindAddr, c.LogLevel, c.AgentURL, c.Gemini.Model, c.HistoryTurns, c.ReminderTickSeconds, c.Modules, c.AppAliases)
	return fmt.Sprintf("cfg-%x", h.Sum64())
}

const defaultConfigYAML = `# buddyai configuration.
#
# bind_addr: address the agent's HTTP server listens on.
# agent_url: base URL the controller talks to; defaults to http://<bind_addr>.
# gemini.api_key: leave empty to use the GEMINI_API_KEY environment variable.
bind_addr: "127.0.0.1:8765"
log_level: "info"
# agent_url: "http://127.0.0.1:8765"
history_turns: 5
reminder_tick_seconds: 1

gemini:
  model: "gemini-2.5-flash"
  api_key: ""

# Disable command modules by name, e.g.:
# modules:
#   web: false
modules: {}

# Extra application aliases for app_open, merged over the built-ins:
# app_aliases:
#   editor: "code"
app_aliases: {}

otel:
  enabled: false
  exporter: "stdout"
  endpoint: ""
`

// WriteDefault writes a commented starter config.yaml. Existing files
// are left untouched.
func WriteDefault(homeDir string) error {
	path := ConfigPath(homeDir)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
