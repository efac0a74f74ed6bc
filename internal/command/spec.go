// Package command implements the agent's command registry: runtime
// parameter schemas derived from typed handler signatures, JSON Schema
// validation of incoming parameters, and name-based dispatch with
// per-call error isolation.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// JSON type names used in the wire schema.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Param describes one parameter of a command.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     any // non-nil only when Required is false
}

// Spec is a registered command: its wire schema plus the handler that
// executes it.
type Spec struct {
	Name        string
	Description string
	Params      []Param

	handler func(ctx context.Context, args map[string]any) (any, error)
	schema  *jsonschema.Schema
}

// New builds a Spec whose parameter schema is derived by reflection over
// the input struct type In. Struct tags drive the schema:
//
//	json:"path"        parameter name (required)
//	desc:"..."         parameter description
//	default:"..."      marks the parameter optional and supplies its default
//
// The raw parameter map is validated against the derived JSON Schema and
// decoded into In before fn is invoked.
func New[In any](name, description string, fn func(ctx context.Context, in In) (any, error)) Spec {
	var zero In
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("command %q: input type must be a struct, got %T", name, zero))
	}

	params, err := paramsOf(t)
	if err != nil {
		panic(fmt.Sprintf("command %q: %v", name, err))
	}
	schema, err := compileParamSchema(params)
	if err != nil {
		panic(fmt.Sprintf("command %q: compile schema: %v", name, err))
	}

	return Spec{
		Name:        name,
		Description: description,
		Params:      params,
		schema:      schema,
		handler: func(ctx context.Context, args map[string]any) (any, error) {
			// Round-trip through JSON to coerce the validated map into
			// the typed input struct.
			raw, err := json.Marshal(args)
			if err != nil {
				return nil, &InvalidParamsError{Command: name, Reason: err.Error()}
			}
			var in In
			dec := json.NewDecoder(strings.NewReader(string(raw)))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&in); err != nil {
				return nil, &InvalidParamsError{Command: name, Reason: err.Error()}
			}
			return fn(ctx, in)
		},
	}
}

// Invoke validates params against the command's schema, applies defaults
// for absent optional parameters, and runs the handler. A panicking
// handler is recovered and reported as an ordinary error so one bad call
// cannot take the agent down.
func (s *Spec) Invoke(ctx context.Context, params map[string]any) (result any, err error) {
	args := make(map[string]any, len(s.Params))
	for k, v := range params {
		args[k] = v
	}
	for _, p := range s.Params {
		if _, ok := args[p.Name]; !ok && !p.Required {
			args[p.Name] = p.Default
		}
	}

	if err := s.validate(args); err != nil {
		return nil, &InvalidParamsError{Command: s.Name, Reason: err.Error()}
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("command %q panicked: %v", s.Name, r)
		}
	}()
	return s.handler(ctx, args)
}

func (s *Spec) validate(args map[string]any) error {
	if s.schema == nil {
		return nil
	}
	// Round-trip through jsonschema's decoder for correct number
	// handling during validation.
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return err
	}
	return s.schema.Validate(doc)
}

// paramsOf derives the parameter list from a handler input struct type.
func paramsOf(t reflect.Type) ([]Param, error) {
	var params []Param
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("field %s: missing json tag", field.Name)
		}

		typ, err := jsonTypeOf(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		p := Param{
			Name:        name,
			Type:        typ,
			Description: field.Tag.Get("desc"),
			Required:    true,
		}
		if dflt, ok := field.Tag.Lookup("default"); ok {
			value, err := parseDefault(dflt, typ)
			if err != nil {
				return nil, fmt.Errorf("field %s: bad default %q: %w", field.Name, dflt, err)
			}
			p.Required = false
			p.Default = value
		}
		params = append(params, p)
	}
	return params, nil
}

func jsonTypeOf(t reflect.Type) (string, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return TypeString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger, nil
	case reflect.Float32, reflect.Float64:
		return TypeNumber, nil
	case reflect.Bool:
		return TypeBoolean, nil
	case reflect.Slice, reflect.Array:
		return TypeArray, nil
	case reflect.Map, reflect.Struct:
		return TypeObject, nil
	default:
		return "", fmt.Errorf("unsupported parameter kind %s", t.Kind())
	}
}

func parseDefault(raw, typ string) (any, error) {
	switch typ {
	case TypeString:
		return raw, nil
	case TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case TypeNumber:
		return strconv.ParseFloat(raw, 64)
	case TypeBoolean:
		return strconv.ParseBool(raw)
	default:
		return nil, fmt.Errorf("defaults are not supported for %s parameters", typ)
	}
}

// compileParamSchema builds and compiles the JSON Schema for a command's
// parameter object. Unknown parameters are rejected, matching the
// keyword-argument semantics of the dispatch contract.
func compileParamSchema(params []Param) (*jsonschema.Schema, error) {
	properties := make(map[string]any, len(params))
	var required []any
	for _, p := range params {
		properties[p.Name] = map[string]any{"type": p.Type}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	doc := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("params.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("params.json")
}
