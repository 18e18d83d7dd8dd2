// Package registry is the single source of truth for the tool surface:
// every tool registers its schema, required tier, and handler here, and
// both tools/list and tools/call are served from the same table.
package registry

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calbridge/calbridge/internal/auth"
	"github.com/calbridge/calbridge/internal/tier"
)

// Handler executes one tool call for an authenticated user. Argument
// validation happens inside the handler; a validation failure returns a
// typed error the dispatcher maps to -32602.
type Handler func(ctx context.Context, user *auth.UserContext, args map[string]any) (*mcp.CallToolResult, error)

// Definition binds a tool schema to its tier gate and handler.
type Definition struct {
	Tool         mcp.Tool
	RequiredTier tier.Tier
	Handler      Handler
}

// Registry holds the registered tools in registration order.
type Registry struct {
	order  []string
	byName map[string]Definition
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]Definition)}
}

// Register adds def to the registry. Registering the same name twice is
// a programming error.
func (r *Registry) Register(def Definition) error {
	name := def.Tool.Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s has no handler", name)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %s registered twice", name)
	}
	r.byName[name] = def
	r.order = append(r.order, name)
	return nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Tools returns every registered tool schema in registration order.
func (r *Registry) Tools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.byName[name].Tool)
	}
	return tools
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}
