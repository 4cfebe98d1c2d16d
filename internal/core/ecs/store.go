package ecs

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Handle identifies one occupancy of a (entity, family) slot. A handle taken
// before the component was replaced no longer matches.
type Handle struct {
	Entity Entity
	Family Family
	Gen    uint32
}

func (h Handle) IsZero() bool { return h.Entity.IsZero() }

// Entry is one (entity, component) pair of a family snapshot.
type Entry struct {
	Entity    Entity
	Component Component
	Handle    Handle
	Marked    bool
}

type slot struct {
	entity    Entity
	component Component
	gen       uint32
	marked    bool
}

// table is the arena of one family. guard is held by the runner ticking the
// family and by the reaper; mu protects slots and index.
type table struct {
	family Family
	guard  sync.Mutex

	mu     sync.RWMutex
	index  map[Entity]int
	slots  []slot
	// nextGen only grows, so a handle minted before a reap never matches the
	// slot of a component added after it.
	nextGen uint32
	marked  int
}

func newTable(f Family) *table {
	return &table{
		family: f,
		index:  make(map[Entity]int),
	}
}

// Store maps family -> (entity -> component).
//
// Concurrency: every method is safe for concurrent use. Component values are
// shared by pointer; the system ticking a family is its single writer, and
// values read across families must guard their own fields.
type Store struct {
	resolver *Resolver

	mu       sync.RWMutex
	families map[Family]*table

	nextID atomic.Uint64
}

// NewStore creates an empty store resolving families through r; nil means DefaultResolver.
func NewStore(r *Resolver) *Store {
	if r == nil {
		r = DefaultResolver
	}
	return &Store{
		resolver: r,
		families: make(map[Family]*table),
	}
}

func (s *Store) Resolver() *Resolver { return s.resolver }

// CreateEntity allocates an entity bound to this store. Ids start at 1 and are
// never reused within a store.
func (s *Store) CreateEntity() Entity {
	return Entity{id: EntityID(s.nextID.Add(1)), store: s}
}

// EntityCount is the number of entities ever created in the store.
func (s *Store) EntityCount() int {
	return int(s.nextID.Load())
}

// Add inserts c under its family, replacing whatever the entity held in that
// family. It is a no-op for a zero entity, a foreign entity or a nil component.
func (s *Store) Add(e Entity, c Component) Handle {
	if e.store != s || c == nil {
		return Handle{}
	}
	f := s.resolver.FamilyOf(c)
	t := s.table(f, true)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextGen++
	gen := t.nextGen
	if i, ok := t.index[e]; ok {
		if t.slots[i].marked {
			t.marked--
		}
		t.slots[i] = slot{entity: e, component: c, gen: gen}
	} else {
		t.index[e] = len(t.slots)
		t.slots = append(t.slots, slot{entity: e, component: c, gen: gen})
	}
	return Handle{Entity: e, Family: f, Gen: gen}
}

// Find returns the component e holds in family f. Unknown families simply have
// no components.
func (s *Store) Find(e Entity, f Family) (Component, bool) {
	t := s.table(f, false)
	if t == nil {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[e]
	if !ok {
		return nil, false
	}
	return t.slots[i].component, true
}

// Has reports whether e holds a component in f.
func (s *Store) Has(e Entity, f Family) bool {
	_, ok := s.Find(e, f)
	return ok
}

// All snapshots family f in insertion order. The slice is the caller's; the
// components are the live values.
func (s *Store) All(f Family) []Entry {
	t := s.table(f, false)
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.slots))
	for i, sl := range t.slots {
		out[i] = Entry{
			Entity:    sl.entity,
			Component: sl.component,
			Handle:    Handle{Entity: sl.entity, Family: f, Gen: sl.gen},
			Marked:    sl.marked,
		}
	}
	return out
}

// Len is the number of components currently stored in f, marked ones included.
func (s *Store) Len(f Family) int {
	t := s.table(f, false)
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Families lists the families that have ever held a component, sorted by name.
func (s *Store) Families() []Family {
	s.mu.RLock()
	out := make([]Family, 0, len(s.families))
	for f := range s.families {
		out = append(out, f)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Components returns every component held by e, keyed by family.
func (s *Store) Components(e Entity) map[Family]Component {
	out := make(map[Family]Component)
	for _, t := range s.tables() {
		t.mu.RLock()
		if i, ok := t.index[e]; ok {
			out[t.family] = t.slots[i].component
		}
		t.mu.RUnlock()
	}
	return out
}

// Mark flags e's component in f for removal at the next reap.
func (s *Store) Mark(e Entity, f Family) bool {
	t := s.table(f, false)
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[e]
	if !ok {
		return false
	}
	return t.markLocked(i)
}

// MarkHandle flags the component h refers to, unless it has since been replaced.
func (s *Store) MarkHandle(h Handle) bool {
	t := s.table(h.Family, false)
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[h.Entity]
	if !ok || t.slots[i].gen != h.Gen {
		return false
	}
	return t.markLocked(i)
}

// MarkEntity flags every component of e and returns how many were newly marked.
func (s *Store) MarkEntity(e Entity) int {
	n := 0
	for _, t := range s.tables() {
		t.mu.Lock()
		if i, ok := t.index[e]; ok && t.markLocked(i) {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

// Marked reports whether e's component in f awaits removal.
func (s *Store) Marked(e Entity, f Family) bool {
	t := s.table(f, false)
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[e]
	return ok && t.slots[i].marked
}

// Acquire takes the tick guard of family f and returns its release func. A
// runner holds it for a whole tick; Reap takes it before compacting f.
func (s *Store) Acquire(f Family) func() {
	t := s.table(f, true)
	t.guard.Lock()
	return t.guard.Unlock
}

// Reap physically removes every marked component and returns how many went.
func (s *Store) Reap() int {
	removed := 0
	for _, t := range s.tables() {
		removed += t.reap()
	}
	return removed
}

func (t *table) markLocked(i int) bool {
	if t.slots[i].marked {
		return false
	}
	t.slots[i].marked = true
	t.marked++
	return true
}

func (t *table) reap() int {
	t.mu.RLock()
	pending := t.marked
	t.mu.RUnlock()
	if pending == 0 {
		return 0
	}

	t.guard.Lock()
	defer t.guard.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.slots[:0]
	removed := 0
	for _, sl := range t.slots {
		if sl.marked {
			delete(t.index, sl.entity)
			removed++
			continue
		}
		t.index[sl.entity] = len(kept)
		kept = append(kept, sl)
	}
	for i := len(kept); i < len(t.slots); i++ {
		t.slots[i] = slot{}
	}
	t.slots = kept
	t.marked = 0
	return removed
}

func (s *Store) table(f Family, create bool) *table {
	if f.IsZero() {
		if create {
			panic(ErrInvalidFamily)
		}
		return nil
	}
	s.mu.RLock()
	t := s.families[f]
	s.mu.RUnlock()
	if t != nil || !create {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t = s.families[f]; t == nil {
		t = newTable(f)
		s.families[f] = t
	}
	return t
}

func (s *Store) tables() []*table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*table, 0, len(s.families))
	for _, t := range s.families {
		out = append(out, t)
	}
	return out
}
