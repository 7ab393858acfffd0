package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handler implements a tool's behavior. It receives validated, type-coerced
// arguments (numeric fields are always float64) and returns a plain structured
// value that the dispatch layer serializes into wire content. Handlers never
// touch the wire format.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type registration struct {
	tool     Tool
	handler  Handler
	schema   *jsonschema.Schema
	required []string
}

// Registry is the server-side tool catalog: an ordered mapping from tool name
// to descriptor and handler. Registration happens once, before the serving
// loop starts; afterward the registry is read-only and dispatch needs no
// locking.
type Registry struct {
	order   []string
	entries map[string]*registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registration)}
}

// Register adds a tool. The descriptor's input schema is compiled here so
// dispatch can validate arguments before the handler runs. Registering a name
// twice fails with DuplicateToolError.
func (r *Registry) Register(t Tool, h Handler) error {
	if t.Name == "" {
		return fmt.Errorf("mcp: tool name required")
	}
	if h == nil {
		return fmt.Errorf("mcp: tool %q: handler required", t.Name)
	}
	if _, exists := r.entries[t.Name]; exists {
		return &DuplicateToolError{Name: t.Name}
	}

	reg := &registration{tool: t, handler: h}
	if t.InputSchema != nil {
		raw, err := json.Marshal(t.InputSchema)
		if err != nil {
			return fmt.Errorf("mcp: tool %q: encode schema: %w", t.Name, err)
		}
		schema, err := jsonschema.CompileString(t.Name+".schema.json", string(raw))
		if err != nil {
			return fmt.Errorf("mcp: tool %q: compile schema: %w", t.Name, err)
		}
		reg.schema = schema
		reg.required = requiredFields(t.InputSchema)
	}

	r.entries[t.Name] = reg
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister is Register that panics on error, for static startup catalogs.
func (r *Registry) MustRegister(t Tool, h Handler) {
	if err := r.Register(t, h); err != nil {
		panic(err)
	}
}

// List returns all descriptors in registration order. The returned slice is a
// copy; repeated calls without intervening registration are identical.
func (r *Registry) List() []Tool {
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.entries[name].tool)
	}
	return tools
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Dispatch validates args against the named tool's schema and invokes its
// handler. Handler failures of any kind, panics included, come back as
// RemoteToolError so the serving session survives the call.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	reg, ok := r.entries[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}

	args, err := normalizeArgs(args)
	if err != nil {
		return nil, &InvalidArgumentsError{Tool: name, Err: err}
	}

	if missing := missingRequired(reg.required, args); len(missing) > 0 {
		return nil, &InvalidArgumentsError{Tool: name, Missing: missing}
	}
	if reg.schema != nil {
		if err := reg.schema.Validate(args); err != nil {
			return nil, &InvalidArgumentsError{Tool: name, Err: err}
		}
	}

	value, err := invoke(ctx, reg.handler, args)
	if err != nil {
		return nil, &RemoteToolError{Tool: name, Message: err.Error(), Err: err}
	}

	result, err := TextResult(value)
	if err != nil {
		return nil, &RemoteToolError{Tool: name, Message: fmt.Sprintf("serialize result: %v", err), Err: err}
	}
	return result, nil
}

func invoke(ctx context.Context, h Handler, args map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, args)
}

// normalizeArgs round-trips args through JSON so every value is a plain JSON
// type: all numbers become float64 regardless of how the caller spelled them.
func normalizeArgs(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func missingRequired(required []string, args map[string]any) []string {
	var missing []string
	for _, field := range required {
		if _, ok := args[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

func requiredFields(schema map[string]any) []string {
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	var fields []string
	switch req := raw.(type) {
	case []string:
		fields = append(fields, req...)
	case []any:
		for _, f := range req {
			if s, ok := f.(string); ok {
				fields = append(fields, s)
			}
		}
	}
	return fields
}
