package ecs

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shapeFamily = NewFamily("test.shape")

type shapeBase struct{ Layer int }

func (shapeBase) Family() Family { return shapeFamily }

type circle struct {
	shapeBase
	Radius float64
}

type square struct {
	shapeBase
	Side float64
}

type health struct{ HP int }

func TestFamilyCollapse(t *testing.T) {
	s := NewStore(NewResolver())
	e := s.CreateEntity()

	a := &circle{Radius: 1}
	b := &square{Side: 2}
	s.Add(e, a)
	s.Add(e, b)

	assert.Equal(t, 1, s.Len(shapeFamily))
	got, ok := s.Find(e, shapeFamily)
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestFamilyResolution(t *testing.T) {
	r := NewResolver()

	assert.Equal(t, shapeFamily, r.FamilyOf(circle{}))
	assert.Equal(t, shapeFamily, r.FamilyOf(&square{}))

	own := r.FamilyOf(&health{})
	assert.Equal(t, TypeName(reflect.TypeOf(health{})), own.Name())
	assert.Equal(t, own, r.FamilyOf(health{}), "pointer and value share a family")
}

func TestFamilyResolutionIsIdempotent(t *testing.T) {
	r1 := NewResolver()
	r2 := NewResolver()

	first := r1.FamilyOf(&circle{})
	_ = r1.FamilyOf(&health{})
	second := r1.FamilyOf(&circle{})
	assert.Equal(t, first, second)

	// reverse order on a fresh resolver yields the same keys
	_ = r2.FamilyOf(&health{})
	assert.Equal(t, first, r2.FamilyOf(&circle{}))
	assert.Equal(t, first.ID(), r2.FamilyOf(circle{}).ID())

	var wg sync.WaitGroup
	results := make([]Family, 16)
	r3 := NewResolver()
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r3.FamilyOf(&square{})
		}(i)
	}
	wg.Wait()
	for _, f := range results {
		assert.Equal(t, shapeFamily, f)
	}
}

func TestBindOverridesAndRejectsRebind(t *testing.T) {
	r := NewResolver()
	stats := NewFamily("test.stats")
	require.NoError(t, Bind[health](r, stats))
	assert.Equal(t, stats, r.FamilyOf(&health{}))
	assert.NoError(t, Bind[*health](r, stats), "same binding again is fine")
	assert.ErrorIs(t, Bind[health](r, NewFamily("other")), ErrFamilyRebind)

	_ = r.FamilyOf(&circle{})
	assert.ErrorIs(t, Bind[circle](r, stats), ErrFamilyRebind)
	assert.ErrorIs(t, r.Bind(nil, stats), ErrInvalidFamily)
}

func TestRemovalIsDeferredUntilReap(t *testing.T) {
	s := NewStore(NewResolver())
	e := s.CreateEntity()
	hp := &health{HP: 3}
	s.Add(e, hp)
	f := s.Resolver().FamilyOf(hp)

	require.True(t, e.MarkForRemoval(f))
	assert.False(t, e.MarkForRemoval(f), "second mark is a no-op")

	got, ok := s.Find(e, f)
	require.True(t, ok, "marked component is still visible before reaping")
	assert.Same(t, hp, got)
	assert.True(t, s.Marked(e, f))

	assert.Equal(t, 1, s.Reap())
	_, ok = s.Find(e, f)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Reap())
}

func TestReapKeepsInsertionOrder(t *testing.T) {
	s := NewStore(NewResolver())
	var es []Entity
	for i := 0; i < 5; i++ {
		e := s.CreateEntity()
		s.Add(e, &health{HP: i})
		es = append(es, e)
	}
	f := FamilyOf(&health{})
	s.Mark(es[1], f)
	s.Mark(es[3], f)
	require.Equal(t, 2, s.Reap())

	all := s.All(f)
	require.Len(t, all, 3)
	assert.Equal(t, []Entity{es[0], es[2], es[4]}, []Entity{all[0].Entity, all[1].Entity, all[2].Entity})
	c, ok := s.Find(es[4], f)
	require.True(t, ok)
	assert.Equal(t, 4, c.(*health).HP)
}

func TestStaleHandleDoesNotMarkReplacement(t *testing.T) {
	s := NewStore(NewResolver())
	e := s.CreateEntity()
	old := s.Add(e, &circle{})
	s.Add(e, &square{})

	assert.False(t, s.MarkHandle(old))
	assert.Equal(t, 0, s.Reap())
	assert.True(t, s.Has(e, shapeFamily))
}

func TestReplacingMarkedComponentClearsMark(t *testing.T) {
	s := NewStore(NewResolver())
	e := s.CreateEntity()
	s.Add(e, &circle{})
	s.Mark(e, shapeFamily)
	s.Add(e, &square{})

	assert.False(t, s.Marked(e, shapeFamily))
	assert.Equal(t, 0, s.Reap())
}

func TestAddIgnoresAbsentArguments(t *testing.T) {
	s := NewStore(NewResolver())
	other := NewStore(NewResolver())

	assert.True(t, s.Add(Entity{}, &health{}).IsZero())
	assert.True(t, s.Add(s.CreateEntity(), nil).IsZero())
	assert.True(t, s.Add(other.CreateEntity(), &health{}).IsZero())
	assert.Empty(t, s.Families())
}

func TestFindUnknownFamily(t *testing.T) {
	s := NewStore(NewResolver())
	_, ok := s.Find(s.CreateEntity(), NewFamily("never.seen"))
	assert.False(t, ok)
	assert.Nil(t, s.All(NewFamily("never.seen")))
}

func TestEntityDestroyMarksEveryFamily(t *testing.T) {
	s := NewStore(NewResolver())
	e := s.CreateEntity()
	e.Add(&health{})
	e.Add(&circle{})

	assert.Equal(t, 2, e.Destroy())
	assert.Equal(t, 2, s.Reap())
	assert.Empty(t, s.Components(e))
}

func TestTypedGet(t *testing.T) {
	s := NewStore(NewResolver())
	e := s.CreateEntity()
	e.Add(&circle{Radius: 4})

	c, ok := Get[*circle](e, shapeFamily)
	require.True(t, ok)
	assert.Equal(t, 4.0, c.Radius)

	_, ok = Get[*square](e, shapeFamily)
	assert.False(t, ok)
}

func TestReapWaitsForTickGuard(t *testing.T) {
	s := NewStore(NewResolver())
	e := s.CreateEntity()
	s.Add(e, &health{})
	f := FamilyOf(&health{})
	s.Mark(e, f)

	release := s.Acquire(f)
	done := make(chan int)
	go func() { done <- s.Reap() }()

	select {
	case <-done:
		t.Fatal("reap must not run while the family is being ticked")
	case <-time.After(30 * time.Millisecond):
	}
	assert.True(t, s.Has(e, f))

	release()
	select {
	case n := <-done:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("reap did not finish after release")
	}
}

func TestEntitiesAreScopedToTheirStore(t *testing.T) {
	a := NewStore(nil)
	b := NewStore(nil)
	ea := a.CreateEntity()
	eb := b.CreateEntity()
	assert.Equal(t, ea.ID(), eb.ID())
	assert.False(t, ea == eb)
	assert.NotSame(t, ea.Store(), eb.Store())
	copied := ea
	assert.True(t, copied == ea)
	assert.False(t, ea == a.CreateEntity())
}

func TestReapLeavesNoPerEntityState(t *testing.T) {
	s := NewStore(NewResolver())
	for i := 0; i < 1000; i++ {
		e := s.CreateEntity()
		s.Add(e, &health{HP: i})
		s.Mark(e, s.resolver.FamilyOf(&health{}))
	}
	_ = s.Reap()

	tb := s.table(s.resolver.FamilyOf(&health{}), false)
	require.NotNil(t, tb)
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	assert.Empty(t, tb.index)
	assert.Empty(t, tb.slots)
}

func TestHandleFromBeforeReapDoesNotMarkReAdd(t *testing.T) {
	s := NewStore(NewResolver())
	e := s.CreateEntity()
	old := s.Add(e, &health{HP: 1})
	require.True(t, s.MarkHandle(old))
	require.Equal(t, 1, s.Reap())

	fresh := s.Add(e, &health{HP: 2})
	assert.NotEqual(t, old.Gen, fresh.Gen)
	assert.False(t, s.MarkHandle(old))
	assert.True(t, s.Has(e, old.Family))
	assert.True(t, s.MarkHandle(fresh))
}

func TestBindRacingResolveAgrees(t *testing.T) {
	type tagged struct{ N int }
	for i := 0; i < 200; i++ {
		r := NewResolver()
		bound := NewFamily("test.bound")
		var (
			wg       sync.WaitGroup
			bindErr  error
			resolved Family
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			bindErr = Bind[tagged](r, bound)
		}()
		go func() {
			defer wg.Done()
			resolved = r.Resolve(reflect.TypeOf(tagged{}))
		}()
		wg.Wait()

		final := r.Resolve(reflect.TypeOf(tagged{}))
		assert.Equal(t, resolved, final)
		if bindErr == nil {
			assert.Equal(t, bound, final)
		} else {
			assert.ErrorIs(t, bindErr, ErrFamilyRebind)
			assert.NotEqual(t, bound, final)
		}
	}
}
