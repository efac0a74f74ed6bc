package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry maps command names to their specs. It is populated once at
// startup from the enabled modules and is safe for concurrent reads.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Spec
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		commands: make(map[string]*Spec),
		logger:   logger,
	}
}

// Register adds specs to the registry. On a name collision the first
// registration wins and the duplicate is logged and skipped.
func (r *Registry) Register(specs ...Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range specs {
		spec := specs[i]
		if spec.Name == "" {
			r.logger.Warn("skipping command with empty name")
			continue
		}
		if _, ok := r.commands[spec.Name]; ok {
			r.logger.Warn("command collision: keeping first registration",
				"command", spec.Name,
			)
			continue
		}
		r.commands[spec.Name] = &spec
	}
}

// Lookup returns the spec for a command name.
func (r *Registry) Lookup(name string) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.commands[name]
	return spec, ok
}

// Names returns all registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch routes a named command with keyword parameters to its handler.
// Unknown names return ErrUnknownCommand; parameter mismatches return an
// InvalidParamsError; anything else is a handler failure.
func (r *Registry) Dispatch(ctx context.Context, name string, params map[string]any) (any, error) {
	spec, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return spec.Invoke(ctx, params)
}
