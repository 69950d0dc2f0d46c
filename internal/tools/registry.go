package tools

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry maintains the ordered collection of tools available to one
// process run. Registration order defines enumeration order and the
// order tools appear in the selection prompt.
type Registry struct {
	mu     sync.RWMutex
	order  []Tool
	byName map[string]Tool
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		byName: make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool to the registry. Names must be unique; the first
// registration wins and a duplicate is rejected.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.order = append(r.order, tool)
	r.byName[name] = tool
	r.logger.Debug("tool registered", "name", name)
	return nil
}

// Find looks up a tool by exact name.
func (r *Registry) Find(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
