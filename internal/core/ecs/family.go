package ecs

import (
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Component is any value stored against an entity.
type Component any

// Family is the storage identity of a component type. Several concrete types
// may share one family; an entity holds at most one component per family.
type Family struct {
	id   uint64
	name string
}

// NewFamily interns a family key by name.
func NewFamily(name string) Family {
	return Family{id: xxhash.Sum64String(name), name: name}
}

func (f Family) ID() uint64     { return f.id }
func (f Family) Name() string   { return f.name }
func (f Family) String() string { return f.name }
func (f Family) IsZero() bool   { return f.name == "" }

// Member is implemented by component types that declare their family. Embedding
// a struct that implements Member places the outer type in the same family:
//
//	type Renderable struct{ Layer int }
//	func (Renderable) Family() ecs.Family { return RenderableFamily }
//	type Sprite struct{ Renderable; Image string } // family "renderable"
//
// Family must not depend on field values; it is called on a zero value.
type Member interface {
	Family() Family
}

var memberType = reflect.TypeOf((*Member)(nil)).Elem()

// Resolver maps concrete component types to families. Resolution is cached, so
// repeated calls for a type always agree regardless of call order.
type Resolver struct {
	mu    sync.RWMutex
	bound map[reflect.Type]Family
	cache sync.Map // reflect.Type -> Family
}

func NewResolver() *Resolver {
	return &Resolver{bound: make(map[reflect.Type]Family)}
}

// DefaultResolver is used by stores created without an explicit resolver.
var DefaultResolver = NewResolver()

// Bind assigns family f to type t ahead of use. Binding a type that already
// resolved to a different family fails with ErrFamilyRebind.
func (r *Resolver) Bind(t reflect.Type, f Family) error {
	if t == nil || f.IsZero() {
		return ErrInvalidFamily
	}
	base := baseType(t)

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.bound[base]; ok && prev != f {
		return ErrFamilyRebind
	}
	// A concurrent Resolve may publish first; the cache entry is never replaced.
	if actual, loaded := r.cache.LoadOrStore(base, f); loaded && actual.(Family) != f {
		return ErrFamilyRebind
	}
	r.bound[base] = f
	return nil
}

// Resolve returns the family of t: an explicit binding, else the family
// declared through Member, else t itself.
func (r *Resolver) Resolve(t reflect.Type) Family {
	if t == nil {
		return Family{}
	}
	base := baseType(t)
	if f, ok := r.cache.Load(base); ok {
		return f.(Family)
	}

	r.mu.RLock()
	f, ok := r.bound[base]
	r.mu.RUnlock()
	if !ok {
		f = resolveStructural(base)
	}

	actual, _ := r.cache.LoadOrStore(base, f)
	return actual.(Family)
}

// FamilyOf resolves the family of a component value.
func (r *Resolver) FamilyOf(c Component) Family {
	if c == nil {
		return Family{}
	}
	return r.Resolve(reflect.TypeOf(c))
}

// FamilyOf resolves c through DefaultResolver.
func FamilyOf(c Component) Family {
	return DefaultResolver.FamilyOf(c)
}

// FamilyFor resolves the family of T through DefaultResolver.
func FamilyFor[T any]() Family {
	return DefaultResolver.Resolve(reflect.TypeOf((*T)(nil)).Elem())
}

// Bind binds T to f on r.
func Bind[T any](r *Resolver, f Family) error {
	return r.Bind(reflect.TypeOf((*T)(nil)).Elem(), f)
}

// TypeName is the fully qualified name used for a type's own family.
func TypeName(t reflect.Type) string {
	base := baseType(t)
	if base.PkgPath() == "" || base.Name() == "" {
		return base.String()
	}
	return base.PkgPath() + "." + base.Name()
}

func resolveStructural(base reflect.Type) Family {
	if reflect.PointerTo(base).Implements(memberType) {
		if m, ok := reflect.New(base).Interface().(Member); ok {
			if f := m.Family(); !f.IsZero() {
				return f
			}
		}
	}
	return NewFamily(TypeName(base))
}

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
