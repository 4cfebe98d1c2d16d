package ecs

import "strconv"

type EntityID uint64

// Entity is an opaque handle bound to the store that created it. It carries no
// data; the zero Entity is never returned by a store.
type Entity struct {
	id    EntityID
	store *Store
}

func (e Entity) ID() EntityID   { return e.id }
func (e Entity) IsZero() bool   { return e.store == nil }
func (e Entity) Store() *Store  { return e.store }
func (e Entity) String() string { return "entity#" + strconv.FormatUint(uint64(e.id), 10) }

// Component returns the entity's component in family f.
func (e Entity) Component(f Family) (Component, bool) {
	if e.store == nil {
		return nil, false
	}
	return e.store.Find(e, f)
}

// Add stores c on the entity, replacing any component of the same family.
func (e Entity) Add(c Component) Handle {
	if e.store == nil {
		return Handle{}
	}
	return e.store.Add(e, c)
}

// MarkForRemoval flags the entity's component in f; it disappears at the next reap.
func (e Entity) MarkForRemoval(f Family) bool {
	if e.store == nil {
		return false
	}
	return e.store.Mark(e, f)
}

// Destroy marks every component of the entity for removal.
func (e Entity) Destroy() int {
	if e.store == nil {
		return 0
	}
	return e.store.MarkEntity(e)
}

// Get is a typed convenience over Entity.Component.
func Get[T any](e Entity, f Family) (T, bool) {
	var zero T
	c, ok := e.Component(f)
	if !ok {
		return zero, false
	}
	v, ok := c.(T)
	return v, ok
}
