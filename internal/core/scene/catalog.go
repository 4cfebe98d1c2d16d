package scene

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/zeusync/zeusengine/internal/core/ecs"
)

// Initializer is implemented by dynamically constructed components that need
// to finish construction against the scene, e.g. to resolve entity references.
type Initializer interface {
	Init(ctx *BuildContext) error
}

// Catalog backs the dynamic load policy: exposed Go types are addressable by
// their fully qualified name ("github.com/org/pkg.Type") and built by decoding
// the parameter document into a fresh value. Any exposed type is accepted, so
// the catalog is only consulted when the loader opts into PolicyDynamic.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]reflect.Type)}
}

// Expose makes T constructible by name and returns that name.
func Expose[T any](c *Catalog) string {
	return c.ExposeType(reflect.TypeOf((*T)(nil)).Elem())
}

// ExposeType registers t (pointer types are stripped) under its qualified name.
func (c *Catalog) ExposeType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := ecs.TypeName(t)
	c.mu.Lock()
	c.types[name] = t
	c.mu.Unlock()
	return name
}

// Lookup returns the type exposed under name.
func (c *Catalog) Lookup(name string) (reflect.Type, bool) {
	c.mu.RLock()
	t, ok := c.types[name]
	c.mu.RUnlock()
	return t, ok
}

// Names lists exposed type names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.types))
	for n := range c.types {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Construct builds a *T for the type exposed under name.
func (c *Catalog) Construct(name string, ctx *BuildContext, params Params) (ecs.Component, error) {
	t, ok := c.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	return build(t, ctx, params)
}

// Decoded returns a factory that decodes the parameters into a fresh *T and
// runs its Init, the same way the dynamic policy builds exposed types.
func Decoded[T any]() ComponentFactory {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return func(ctx *BuildContext, params Params) (ecs.Component, error) {
		return build(t, ctx, params)
	}
}

func build(t reflect.Type, ctx *BuildContext, params Params) (ecs.Component, error) {
	v := reflect.New(t)
	if params == nil {
		params = Params{}
	}
	if err := params.Decode(v.Interface()); err != nil {
		return nil, err
	}
	if init, ok := v.Interface().(Initializer); ok {
		if err := init.Init(ctx); err != nil {
			return nil, err
		}
	}
	return v.Interface(), nil
}
