package scene

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

// ComponentFactory builds one component for the entity in ctx.
type ComponentFactory func(ctx *BuildContext, params Params) (ecs.Component, error)

// SystemFactory builds a system declared by a scene document.
type SystemFactory func(params Params) (systems.System, error)

// Registry maps identifiers to factories. It must be populated before loading.
type Registry struct {
	mu    sync.RWMutex
	comps map[string]ComponentFactory
	syss  map[string]SystemFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		comps: make(map[string]ComponentFactory),
		syss:  make(map[string]SystemFactory),
	}
}

// RegisterComponent binds identifier to factory, replacing any earlier binding.
func (r *Registry) RegisterComponent(identifier string, factory ComponentFactory) {
	r.mu.Lock()
	r.comps[identifier] = factory
	r.mu.Unlock()
}

// RegisterSystem binds identifier to a system factory.
func (r *Registry) RegisterSystem(identifier string, factory SystemFactory) {
	r.mu.Lock()
	r.syss[identifier] = factory
	r.mu.Unlock()
}

// ComponentFactory looks up the factory for identifier.
func (r *Registry) ComponentFactory(identifier string) (ComponentFactory, bool) {
	r.mu.RLock()
	f, ok := r.comps[identifier]
	r.mu.RUnlock()
	return f, ok && f != nil
}

// NewSystem builds the system registered under identifier.
func (r *Registry) NewSystem(identifier string, params Params) (systems.System, error) {
	r.mu.RLock()
	f := r.syss[identifier]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSystem, identifier)
	}
	if params == nil {
		params = Params{}
	}
	return f(params)
}

// Components lists registered component identifiers, sorted.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.comps)
}

// Systems lists registered system identifiers, sorted.
func (r *Registry) Systems() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.syss)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
