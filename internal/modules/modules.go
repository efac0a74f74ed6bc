// Package modules contains the agent's command modules. Each module
// contributes a named set of command specs; the daemon merges the
// enabled modules into the command registry at startup.
package modules

import (
	"log/slog"

	"github.com/MockingJay1710/buddyai/internal/command"
	"github.com/MockingJay1710/buddyai/internal/store"
)

// Module is one plugin-style command set.
type Module interface {
	// Name is the module's identifier, used in the config enable map.
	Name() string
	// Commands returns the module's command specs.
	Commands() []command.Spec
}

// Deps holds shared dependencies injected into modules that need them.
type Deps struct {
	Store      *store.Store      // reminders module
	AppAliases map[string]string // apps module: merged friendly-name table
	Logger     *slog.Logger
}

// All returns every built-in module in registration order.
func All(deps Deps) []Module {
	return []Module{
		NewBasic(),
		NewFS(),
		NewApps(deps.AppAliases, deps.Logger),
		NewSystem(),
		NewReminders(deps.Store),
		NewClipboard(),
		NewWeb(),
	}
}

// Enabled filters mods by the config enable map. A module absent from
// the map is enabled; an explicit false disables it.
func Enabled(mods []Module, enabled map[string]bool) []Module {
	out := make([]Module, 0, len(mods))
	for _, m := range mods {
		if on, ok := enabled[m.Name()]; ok && !on {
			continue
		}
		out = append(out, m)
	}
	return out
}
