package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/oshokin/device-core/internal/logger"
)

const (
	// DefaultListBudget is the byte budget of one tools/list page.
	DefaultListBudget = 8000
	// listEntrySlack is reserved per entry for separators and the cursor field.
	listEntrySlack = 30
	// listEnvelope is the fixed part of a page: {"tools":[]}.
	listEnvelope = len(`{"tools":[]}`)
)

// Registry is the ordered tool catalog. Names are unique for its lifetime.
type Registry struct {
	// mu guards tools and byName.
	mu sync.RWMutex
	// tools keeps catalog order.
	tools []*Tool
	// byName indexes tools.
	byName map[string]*Tool
}

// NewRegistry returns an empty catalog.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Tool)}
}

// Register appends tools. A duplicate name is logged and skipped; the first registration wins.
// It returns how many tools were added.
func (r *Registry) Register(ctx context.Context, tools ...*Tool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := r.accept(ctx, tools)
	r.tools = append(r.tools, added...)

	return len(added)
}

// Prepend inserts tools ahead of everything registered so far, keeping their relative order.
// Duplicates are skipped the same way as in Register.
func (r *Registry) Prepend(ctx context.Context, tools ...*Tool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := r.accept(ctx, tools)
	r.tools = append(added, r.tools...)

	return len(added)
}

func (r *Registry) accept(ctx context.Context, tools []*Tool) []*Tool {
	added := make([]*Tool, 0, len(tools))

	for _, t := range tools {
		if t == nil {
			continue
		}

		if _, exists := r.byName[t.name]; exists {
			logger.WarnKV(ctx, "tool already registered, keeping the first one", "tool", t.name)

			continue
		}

		r.byName[t.name] = t
		added = append(added, t)
		logger.DebugKV(ctx, "tool registered", "tool", t.name)
	}

	return added
}

// Lookup returns a tool by exact name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byName[name]

	return t, ok
}

// Names returns tool names in catalog order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.name
	}

	return names
}

// Len returns the catalog size.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Page is one tools/list result.
type Page struct {
	// Tools are the descriptors of this page.
	Tools []mcpgo.Tool
	// NextCursor names the first tool left out, empty on the last page.
	NextCursor string
}

// Result renders the page as a tools/list result.
func (p Page) Result() mcpgo.ListToolsResult {
	res := mcpgo.ListToolsResult{Tools: p.Tools}
	res.NextCursor = mcpgo.Cursor(p.NextCursor)

	return res
}

// List returns the page starting at the tool named cursor (empty for the
// first page) that fits budget bytes.
func (r *Registry) List(cursor string, budget int) (Page, error) {
	if budget <= 0 {
		budget = DefaultListBudget
	}

	r.mu.RLock()
	tools := slices.Clone(r.tools)
	r.mu.RUnlock()

	start := 0

	// A cursor naming no tool yields an empty last page.
	if cursor != "" {
		start = slices.IndexFunc(tools, func(t *Tool) bool { return t.name == cursor })
		if start < 0 {
			return Page{Tools: []mcpgo.Tool{}}, nil
		}
	}

	page := Page{Tools: make([]mcpgo.Tool, 0, len(tools)-start)}
	size := listEnvelope

	for _, t := range tools[start:] {
		descriptor := t.Descriptor()

		data, err := json.Marshal(descriptor)
		if err != nil {
			return Page{}, fmt.Errorf("marshal tool %s: %w", t.name, err)
		}

		separator := 0
		if len(page.Tools) > 0 {
			separator = 1
		}

		if size+separator+len(data)+listEntrySlack > budget {
			if len(page.Tools) == 0 {
				return Page{}, replyErrorf(ErrPayloadLimit,
					"Failed to add tool %s because of payload size limit", t.name)
			}

			page.NextCursor = t.name

			break
		}

		size += separator + len(data)
		page.Tools = append(page.Tools, descriptor)
	}

	return page, nil
}

// Bind looks a tool up and binds raw arguments to it.
func (r *Registry) Bind(name string, raw map[string]json.RawMessage) (*Invocation, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, replyErrorf(ErrUnknownTool, "Unknown tool: %s", name)
	}

	return t.Bind(raw)
}
