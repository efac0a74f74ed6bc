package modules

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/MockingJay1710/buddyai/internal/command"
)

// builtinAppAliases maps friendly application names to the command that
// launches them on each OS. Config app_aliases entries override these.
var builtinAppAliases = map[string]map[string]string{
	"windows": {
		"notepad":    "notepad.exe",
		"calculator": "calc.exe",
		"explorer":   "explorer.exe",
		"chrome":     "chrome.exe",
		"firefox":    "firefox.exe",
		"vscode":     "code.exe",
	},
	"linux": {
		"text editor": "gedit",
		"calculator":  "gnome-calculator",
		"files":       "nautilus",
		"terminal":    "gnome-terminal",
		"chrome":      "google-chrome",
		"firefox":     "firefox",
		"vscode":      "code",
	},
	"darwin": {
		"textedit":   "TextEdit",
		"calculator": "Calculator",
		"finder":     "Finder",
		"terminal":   "Terminal",
		"chrome":     "Google Chrome",
		"firefox":    "Firefox",
		"vscode":     "Visual Studio Code",
	},
}

// Apps provides application open/close commands.
type Apps struct {
	mu      sync.RWMutex
	aliases map[string]string
	logger  *slog.Logger
}

// NewApps builds the module with the built-in alias table for the
// current OS merged with config overrides (overrides win).
func NewApps(overrides map[string]string, logger *slog.Logger) *Apps {
	if logger == nil {
		logger = slog.Default()
	}
	return &Apps{aliases: mergeAliases(overrides), logger: logger}
}

// SetAliases replaces the config overrides, rebuilding the merged table.
// Called on config reload; safe for concurrent use with command dispatch.
func (a *Apps) SetAliases(overrides map[string]string) {
	merged := mergeAliases(overrides)
	a.mu.Lock()
	a.aliases = merged
	a.mu.Unlock()
}

func (a *Apps) alias(name string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cmd, ok := a.aliases[name]
	return cmd, ok
}

func mergeAliases(overrides map[string]string) map[string]string {
	aliases := make(map[string]string)
	for name, cmd := range builtinAppAliases[runtime.GOOS] {
		aliases[name] = cmd
	}
	for name, cmd := range overrides {
		aliases[strings.ToLower(name)] = cmd
	}
	return aliases
}

func (*Apps) Name() string { return "apps" }

type appOpenInput struct {
	App string `json:"app" desc:"Friendly name of the application (e.g. \"calculator\") or the full path to its executable."`
}

type appCloseInput struct {
	App string `json:"app" desc:"Name of the application to close. The match is case-insensitive and may be partial."`
}

type appOpenResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Command string `json:"command"`
}

type appCloseResult struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Terminated int    `json:"terminated"`
}

func (a *Apps) Commands() []command.Spec {
	return []command.Spec{
		command.New("app_open", "Opens an application by friendly name or executable path.", a.openApp),
		command.New("app_close", "Closes all running processes matching an application name.", a.closeApp),
	}
}

// resolveLaunch maps the request to the argv that launches it. Existing
// paths run directly; known friendly names go through the alias table;
// anything else is tried verbatim as a command.
func (a *Apps) resolveLaunch(raw string) []string {
	if info, err := os.Stat(raw); err == nil && (!info.IsDir() || strings.HasSuffix(raw, ".app")) {
		if runtime.GOOS == "darwin" && strings.HasSuffix(raw, ".app") {
			return []string{"open", raw}
		}
		return []string{raw}
	}
	if mapped, ok := a.alias(strings.ToLower(raw)); ok {
		if runtime.GOOS == "darwin" && !filepath.IsAbs(mapped) {
			return []string{"open", "-a", mapped}
		}
		return []string{mapped}
	}
	return []string{raw}
}

func (a *Apps) openApp(_ context.Context, in appOpenInput) (any, error) {
	argv := a.resolveLaunch(in.App)

	// Deliberately not CommandContext: the launched application must
	// outlive the request.
	cmd := exec.Command(argv[0], argv[1:]...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("open application %q (command %q): %w", in.App, strings.Join(argv, " "), err)
	}
	// Reap the child in the background so it doesn't linger as a zombie.
	go func() { _ = cmd.Wait() }()

	a.logger.Info("application launched", "app", in.App, "command", argv[0])
	return appOpenResult{
		Status:  "success",
		Message: fmt.Sprintf("Attempted to open %q.", in.App),
		Command: strings.Join(argv, " "),
	}, nil
}

func (a *Apps) closeApp(ctx context.Context, in appCloseInput) (any, error) {
	target := strings.ToLower(strings.TrimSpace(in.App))
	if target == "" {
		return nil, fmt.Errorf("empty application name")
	}
	// Include the mapped executable name so "vscode" also matches "code".
	mapped := ""
	if m, ok := a.alias(target); ok {
		mapped = strings.ToLower(filepath.Base(m))
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	self := int32(os.Getpid())
	var matched []*process.Process
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		lower := strings.ToLower(name)
		if strings.Contains(lower, target) || (mapped != "" && strings.Contains(lower, mapped)) {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("no running process matching %q", in.App)
	}

	terminated := 0
	for _, p := range matched {
		if err := terminateProcess(ctx, p); err != nil {
			a.logger.Warn("failed to terminate process", "pid", p.Pid, "error", err)
			continue
		}
		terminated++
	}
	if terminated == 0 {
		return nil, fmt.Errorf("found %d process(es) matching %q but none could be terminated", len(matched), in.App)
	}

	return appCloseResult{
		Status:     "success",
		Message:    fmt.Sprintf("Terminated %d process(es) matching %q.", terminated, in.App),
		Terminated: terminated,
	}, nil
}

// terminateProcess asks nicely first, then kills.
func terminateProcess(ctx context.Context, p *process.Process) error {
	if err := p.TerminateWithContext(ctx); err != nil {
		return err
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		running, err := p.IsRunningWithContext(ctx)
		if err != nil || !running {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return p.KillWithContext(ctx)
}
