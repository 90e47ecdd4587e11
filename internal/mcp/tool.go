package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/oshokin/device-core/internal/logger"
)

// Handler executes a tool with bound arguments.
type Handler func(ctx context.Context, args Arguments) (Value, error)

// Tool is a registered, invocable action.
type Tool struct {
	// name is the unique catalog key.
	name string
	// description is shown to the agent.
	description string
	// properties are the declared parameters in order.
	properties []Property
	// handler runs on a worker goroutine.
	handler Handler
}

// NewTool declares a tool. Property names must be unique within the tool.
func NewTool(name, description string, properties []Property, handler Handler) (*Tool, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidTool)
	}

	if handler == nil {
		return nil, fmt.Errorf("%w: %s has no handler", ErrInvalidTool, name)
	}

	seen := make(map[string]struct{}, len(properties))
	for _, p := range properties {
		if _, ok := seen[p.name]; ok {
			return nil, fmt.Errorf("%w: %s declares %s twice", ErrInvalidTool, name, p.name)
		}

		seen[p.name] = struct{}{}
	}

	return &Tool{
		name:        name,
		description: description,
		properties:  append([]Property(nil), properties...),
		handler:     handler,
	}, nil
}

// MustTool is NewTool for static catalogs; it panics on error.
func MustTool(name, description string, properties []Property, handler Handler) *Tool {
	t, err := NewTool(name, description, properties, handler)
	if err != nil {
		panic(err)
	}

	return t
}

// Name returns the catalog key.
func (t *Tool) Name() string { return t.name }

// Description returns the agent-facing description.
func (t *Tool) Description() string { return t.description }

// Descriptor renders the tool for tools/list.
func (t *Tool) Descriptor() mcpgo.Tool {
	properties := make(map[string]any, len(t.properties))

	var required []string

	for _, p := range t.properties {
		properties[p.name] = p.schema()
		if p.Required() {
			required = append(required, p.name)
		}
	}

	return mcpgo.Tool{
		Name:        t.name,
		Description: t.description,
		InputSchema: mcpgo.ToolInputSchema{
			Type:       "object",
			Properties: properties,
			Required:   required,
		},
	}
}

// Bind resolves every declared property from raw arguments.
// The returned Invocation owns a private copy of the bound values.
func (t *Tool) Bind(raw map[string]json.RawMessage) (*Invocation, error) {
	args := Arguments{values: make(map[string]Value, len(t.properties))}

	for _, p := range t.properties {
		value, present := raw[p.name]

		v, ok := p.bind(value, present)
		if !ok {
			return nil, replyErrorf(ErrMissingArgument, "Missing valid argument: %s", p.name)
		}

		args.values[p.name] = v
	}

	return &Invocation{tool: t, args: args}, nil
}

// Arguments are the bound parameters of one invocation.
type Arguments struct {
	// values maps property names to bound values.
	values map[string]Value
}

// Lookup returns a bound value by name.
func (a Arguments) Lookup(name string) (Value, bool) {
	v, ok := a.values[name]

	return v, ok
}

// Bool returns a bound boolean, false when absent.
func (a Arguments) Bool(name string) bool { return a.values[name].AsBool() }

// Int returns a bound integer, 0 when absent.
func (a Arguments) Int(name string) int { return a.values[name].AsInt() }

// String returns a bound string, empty when absent.
func (a Arguments) String(name string) string { return a.values[name].AsString() }

// Invocation is a bound call ready to run.
type Invocation struct {
	// tool is the target.
	tool *Tool
	// args are the bound arguments.
	args Arguments
}

// Tool returns the name of the invoked tool.
func (inv *Invocation) Tool() string { return inv.tool.name }

// Arguments returns the bound arguments.
func (inv *Invocation) Arguments() Arguments { return inv.args }

// Run executes the handler. A panic becomes an error.
func (inv *Invocation) Run(ctx context.Context) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "tool handler panicked",
				"tool", inv.tool.name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)

			result = Value{}
			err = replyErrorf(ErrToolFailed, "%v", r)
		}
	}()

	return inv.tool.handler(ctx, inv.args)
}
