package llm

import (
	"sort"

	"google.golang.org/genai"

	"github.com/MockingJay1710/buddyai/internal/command"
)

// genaiType maps wire parameter types to Gemini schema types. Unknown
// types fall back to string, which the model handles gracefully.
func genaiType(t string) genai.Type {
	switch t {
	case command.TypeString:
		return genai.TypeString
	case command.TypeInteger:
		return genai.TypeInteger
	case command.TypeNumber:
		return genai.TypeNumber
	case command.TypeBoolean:
		return genai.TypeBoolean
	case command.TypeArray:
		return genai.TypeArray
	case command.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// DeclarationsFromSchema converts the agent's command schema into Gemini
// function declarations for function calling.
func DeclarationsFromSchema(schema command.Schema) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(schema.Commands))
	for _, cmd := range schema.Commands {
		properties := make(map[string]*genai.Schema, len(cmd.Params))
		var required []string
		for name, param := range cmd.Params {
			properties[name] = &genai.Schema{
				Type:        genaiType(param.Type),
				Description: param.Description,
			}
			if !param.Optional {
				required = append(required, name)
			}
		}

		sort.Strings(required)

		decl := &genai.FunctionDeclaration{
			Name:        cmd.Name,
			Description: cmd.Description,
		}
		if len(properties) > 0 {
			decl.Parameters = &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			}
		}
		decls = append(decls, decl)
	}
	return decls
}
