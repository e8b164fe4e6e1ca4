package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/soyeahso/proxychat/internal/llm"
)

// Tool is a capability the agent can invoke during a conversation.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Description returns a human-readable description for the model.
	Description() string

	// Parameters returns the JSON Schema of the tool's arguments object.
	Parameters() map[string]any

	// Invoke runs the tool with the model-supplied JSON arguments and
	// returns the text handed back to the model.
	Invoke(ctx context.Context, arguments string) (string, error)
}

// ToolRegistry holds available tools.
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry creates a registry holding the given tools.
func NewToolRegistry(tools ...Tool) *ToolRegistry {
	r := &ToolRegistry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any tool with the same name.
func (r *ToolRegistry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Definitions returns model-ready tool definitions sorted by name.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	names := r.Names()
	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// ToolFunc handles a validated arguments object.
type ToolFunc func(ctx context.Context, args json.RawMessage) (string, error)

// FunctionTool is a Tool backed by a Go function. Arguments are checked
// against the parameter schema before the function runs.
type FunctionTool struct {
	name        string
	description string
	params      map[string]any
	schema      *jsonschema.Schema
	fn          ToolFunc
}

// NewFunctionTool compiles the parameter schema and returns the tool.
func NewFunctionTool(name, description string, params map[string]any, fn ToolFunc) (*FunctionTool, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %s: handler is required", name)
	}
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	schema, err := compileSchema(name, params)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return &FunctionTool{
		name:        name,
		description: description,
		params:      params,
		schema:      schema,
		fn:          fn,
	}, nil
}

// MustFunctionTool is like NewFunctionTool but panics on error. It is meant
// for package-level tool definitions with static schemas.
func MustFunctionTool(name, description string, params map[string]any, fn ToolFunc) *FunctionTool {
	t, err := NewFunctionTool(name, description, params, fn)
	if err != nil {
		panic(err)
	}
	return t
}

func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	url := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func (t *FunctionTool) Name() string               { return t.name }
func (t *FunctionTool) Description() string        { return t.description }
func (t *FunctionTool) Parameters() map[string]any { return t.params }

// Invoke validates the arguments and calls the handler. Empty arguments are
// treated as an empty object.
func (t *FunctionTool) Invoke(ctx context.Context, arguments string) (string, error) {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	value, err := jsonschema.UnmarshalJSON(strings.NewReader(arguments))
	if err != nil {
		return "", fmt.Errorf("invalid JSON arguments: %w", err)
	}
	if err := t.schema.Validate(value); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	return t.fn(ctx, json.RawMessage(arguments))
}

// ToolError records a failed tool invocation. The runner hands its text to
// the model instead of aborting the run.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// toolErrorOutput is the text the model sees when a tool fails.
func toolErrorOutput(err error) string {
	return "An error occurred while running the tool. Please try again. Error: " + err.Error()
}
