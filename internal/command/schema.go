package command

import "sort"

// Wire schema served on /commands_schema and consumed by the controller
// when it builds LLM function declarations.

// ParamSchema describes one parameter in the wire schema.
type ParamSchema struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Optional    bool   `json:"optional,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// CommandSchema describes one command in the wire schema.
type CommandSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Params      map[string]ParamSchema `json:"params_schema_for_prompt"`
}

// Schema is the full wire schema.
type Schema struct {
	Commands []CommandSchema `json:"commands"`
}

// WireSchema builds the wire schema for all registered commands, ordered
// by name.
func (r *Registry) WireSchema() Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema := Schema{Commands: make([]CommandSchema, 0, len(r.commands))}
	for _, name := range r.namesLocked() {
		spec := r.commands[name]
		cs := CommandSchema{
			Name:        spec.Name,
			Description: spec.Description,
			Params:      make(map[string]ParamSchema, len(spec.Params)),
		}
		for _, p := range spec.Params {
			cs.Params[p.Name] = ParamSchema{
				Type:        p.Type,
				Description: p.Description,
				Optional:    !p.Required,
				Default:     p.Default,
			}
		}
		schema.Commands = append(schema.Commands, cs)
	}
	return schema
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
