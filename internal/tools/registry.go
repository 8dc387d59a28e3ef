package tools

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/coursechat/coursechat/internal/log"
)

// Registry holds the registered tools and dispatches executions by name.
// Registration order is preserved: Refs() advertises tools to the model
// in the order they were registered.
//
// Registry is safe for concurrent Execute and source access; Register is
// expected at startup only.
type Registry struct {
	g      *genkit.Genkit
	logger log.Logger

	order []string
	tools map[string]Tool
	refs  map[string]ai.ToolRef
}

// NewRegistry creates an empty tool registry bound to a Genkit instance.
func NewRegistry(g *genkit.Genkit, logger log.Logger) *Registry {
	return &Registry{
		g:      g,
		logger: logger,
		tools:  make(map[string]Tool),
		refs:   make(map[string]ai.ToolRef),
	}
}

// Register adds a tool and declares its schema. Registering two tools
// with the same name is a startup bug and fails hard.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.refs[name] = t.Attach(r.g)
	r.order = append(r.order, name)
	return nil
}

// Refs returns the tool references to advertise to the model, in
// registration order.
func (r *Registry) Refs() []ai.ToolRef {
	out := make([]ai.ToolRef, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.refs[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Execute dispatches a tool call by name. An unknown name is a
// recoverable condition reported as response text, mirroring how tool
// failures reach the model.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) string {
	t, ok := r.tools[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Tool '%s' not found", name)
	}
	return t.Execute(ctx, args)
}

// CollectSources gathers the citations tracked by all tools, in
// registration order. Tools that produced none contribute nothing.
func (r *Registry) CollectSources() []Source {
	var out []Source
	for _, name := range r.order {
		out = append(out, r.tools[name].LastSources()...)
	}
	return out
}

// ClearSources drops the tracked citations of every tool. Safe to call
// repeatedly; clearing an empty registry is a no-op.
func (r *Registry) ClearSources() {
	for _, t := range r.tools {
		t.ClearSources()
	}
}
