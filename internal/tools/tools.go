package tools

import (
	"context"

	"github.com/rs/zerolog/log"

	"policybot/internal/models"
)

// Tool is a capability the agent can invoke mid-pipeline. Dispatch is by
// name through the registry, not by type.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Registry maps tool names to capabilities.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Execute runs the named tool. An unknown name fails this invocation with
// ToolNotFoundError; the caller degrades to answering without the result.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &models.ToolNotFoundError{Name: name}
	}
	log.Debug().Str("tool", name).Msg("executing tool")
	return t.Execute(ctx, args)
}

// Names lists the registered tools.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
