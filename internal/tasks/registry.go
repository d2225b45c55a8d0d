package tasks

import (
	"fmt"
	"sort"

	"go.uber.org/fx"
)

// RegistryParams collects every handler provided into the "tasks" group.
type RegistryParams struct {
	fx.In

	Handlers []Handler `group:"tasks"`
}

// Registry maps task names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds the registry. Two handlers with the same name are an error.
func NewRegistry(p RegistryParams) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(p.Handlers))}
	for _, h := range p.Handlers {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a handler.
func (r *Registry) Register(h Handler) error {
	name := h.Name()
	if name == "" {
		return fmt.Errorf("task handler %T has no name", h)
	}
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("task %q registered twice", name)
	}
	r.handlers[name] = h
	return nil
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
