package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/events"
	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/render"
	"github.com/zeusync/zeusengine/internal/core/scene"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

type score struct{ N int }

var scoreFamily = ecs.FamilyFor[score]()

func ticking(name string, count *atomic.Int64) *systems.Funcs {
	return &systems.Funcs{
		SystemName: name,
		Fam:        scoreFamily,
		Every:      2 * time.Millisecond,
		After: func(*systems.Tick) error {
			count.Add(1)
			return nil
		},
	}
}

func TestLoadStateStopsOldRunners(t *testing.T) {
	d := NewDirector(nil)
	defer func() { _ = d.Shutdown(context.Background()) }()

	counts := make([]*atomic.Int64, 4)
	desc := Descriptor{Name: "first"}
	for i := range counts {
		counts[i] = new(atomic.Int64)
		desc.Systems = append(desc.Systems, ticking(string(rune('a'+i)), counts[i]))
	}

	first, err := d.LoadState(context.Background(), desc)
	require.NoError(t, err)
	require.Same(t, first, d.Current())
	require.Eventually(t, func() bool {
		for _, c := range counts {
			if c.Load() == 0 {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)

	second, err := d.LoadState(context.Background(), Descriptor{Name: "second"})
	require.NoError(t, err)
	assert.Same(t, second, d.Current())

	for _, st := range first.Stats() {
		assert.Equal(t, systems.Stopped, st.State, st.Name)
	}
	frozen := make([]int64, len(counts))
	for i, c := range counts {
		frozen[i] = c.Load()
	}
	time.Sleep(30 * time.Millisecond)
	for i, c := range counts {
		assert.Equal(t, frozen[i], c.Load(), "runner %d ticked after the swap", i)
	}
}

func TestTransitionOrder(t *testing.T) {
	var mu sync.Mutex
	var trail []string
	record := func(s string) {
		mu.Lock()
		trail = append(trail, s)
		mu.Unlock()
	}

	b := bus.New()
	_, _ = b.Subscribe(bus.AnyType, func(e bus.Event) error {
		switch e.Type() {
		case events.StateLoaded, events.StateExited:
			record(e.Type() + ":" + e.Data().(events.StateChange).Name)
		}
		return nil
	})

	d := NewDirector(nil, WithDirectorBus(b))
	defer func() { _ = d.Shutdown(context.Background()) }()

	var ticks atomic.Int64
	first, err := d.LoadState(context.Background(), Descriptor{
		Name:    "a",
		Systems: []systems.System{ticking("t", &ticks)},
		Hooks: Hooks{
			OnStart: func(context.Context, *State) error { record("start:a"); return nil },
			OnExit:  func(context.Context, *State) error { record("exit:a"); return nil },
		},
	})
	require.NoError(t, err)

	_, err = d.LoadState(context.Background(), Descriptor{
		Name: "b",
		Hooks: Hooks{
			OnStart: func(_ context.Context, s *State) error {
				r, ok := first.Runner("t")
				if !ok || r.State() != systems.Stopped {
					return errors.New("old runner still alive at OnStart")
				}
				record("start:b")
				return nil
			},
		},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"start:a", events.StateLoaded + ":a",
		"exit:a", events.StateExited + ":a",
		"start:b", events.StateLoaded + ":b",
	}, trail)
}

func TestUpdateReapsAndRunsHook(t *testing.T) {
	var updates atomic.Int64
	rec := render.NewRecorder(nil)
	q := render.NewQueue()
	d := NewDirector(nil, WithRenderer(rec, q))
	defer func() { _ = d.Shutdown(context.Background()) }()

	assert.ErrorIs(t, d.Update(context.Background()), ErrNoState)

	s, err := d.LoadState(context.Background(), Descriptor{Hooks: Hooks{
		OnUpdate: func(context.Context, *State) error { updates.Add(1); return nil },
	}})
	require.NoError(t, err)

	e := s.CreateEntity()
	e.Add(&score{N: 1})
	e.MarkForRemoval(scoreFamily)
	assert.True(t, s.Store().Has(e, scoreFamily))

	q.Submit(3, []render.Item{{Entity: e}})
	require.NoError(t, d.Frame(context.Background()))
	assert.False(t, s.Store().Has(e, scoreFamily))
	assert.EqualValues(t, 1, updates.Load())
	assert.EqualValues(t, 1, rec.Frames())
	assert.EqualValues(t, 3, rec.Last().Tick)
}

func TestRestartSystemAfterFault(t *testing.T) {
	b := bus.New()
	d := NewDirector(nil, WithDirectorBus(b))
	defer func() { _ = d.Shutdown(context.Background()) }()

	var failing atomic.Bool
	failing.Store(true)
	var ticks atomic.Int64
	flaky := &systems.Funcs{
		SystemName: "flaky",
		Fam:        scoreFamily,
		Every:      2 * time.Millisecond,
		After: func(*systems.Tick) error {
			if failing.Load() {
				return errors.New("not yet")
			}
			ticks.Add(1)
			return nil
		},
	}

	restarted := make(chan *systems.Runner, 1)
	_, _ = b.Subscribe(events.SystemStopped, func(e bus.Event) error {
		st := e.Data().(events.SystemStatus)
		cur := d.Current()
		if st.Reason != events.StopFaulted || cur == nil || st.StateID != cur.ID() {
			return nil
		}
		failing.Store(false)
		r, err := cur.RestartSystem(st.System)
		if err != nil {
			return err
		}
		select {
		case restarted <- r:
		default:
		}
		return nil
	})

	s, err := d.LoadState(context.Background(), Descriptor{Systems: []systems.System{flaky}})
	require.NoError(t, err)

	var fresh *systems.Runner
	select {
	case fresh = <-restarted:
	case <-time.After(time.Second):
		t.Fatal("system was not restarted")
	}
	require.Eventually(t, func() bool {
		return fresh.State() == systems.Running && ticks.Load() > 0
	}, time.Second, time.Millisecond)

	current, ok := s.Runner("flaky")
	require.True(t, ok)
	assert.Same(t, fresh, current)
}

func TestRegisterAndStopSystem(t *testing.T) {
	s := New("solo")
	var ticks atomic.Int64

	_, err := s.RegisterSystem(ticking("one", &ticks), Registration{})
	require.NoError(t, err)
	_, err = s.RegisterSystem(ticking("one", &ticks), Registration{})
	assert.ErrorIs(t, err, ErrDuplicateSystem)
	r, err := s.RegisterSystem(ticking("one", &ticks), Registration{Name: "two", Period: 3 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Millisecond, r.Period())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, s.StopSystem("two"))
	assert.Equal(t, systems.Stopped, r.State())
	assert.ErrorIs(t, s.StopSystem("two"), ErrUnknownSystem)
	assert.Len(t, s.Stats(), 1)

	s.Stop()
	_, err = s.RegisterSystem(ticking("three", &ticks), Registration{})
	assert.ErrorIs(t, err, ErrStateStopped)
	assert.ErrorIs(t, s.Start(context.Background()), ErrStateStopped)
}

func TestLoadStateFromScene(t *testing.T) {
	reg := scene.NewRegistry()
	reg.RegisterComponent("score", func(_ *scene.BuildContext, p scene.Params) (ecs.Component, error) {
		return &score{N: p.Int("value", 0)}, nil
	})
	var ticks atomic.Int64
	reg.RegisterSystem("scorer", func(scene.Params) (systems.System, error) {
		return ticking("scorer", &ticks), nil
	})

	d := NewDirector(scene.NewLoader(reg))
	defer func() { _ = d.Shutdown(context.Background()) }()

	s, err := d.LoadState(context.Background(), Descriptor{Source: scene.Source{Data: []byte(`
name: level
systems:
  - type: scorer
  - type: nope
entities:
  - score: 3
  - mystery: {}
`)}})
	require.NoError(t, err)
	assert.Equal(t, "level", s.Name())
	assert.Equal(t, 2, s.Store().EntityCount())
	assert.Equal(t, 1, s.Store().Len(scoreFamily))
	require.NotNil(t, s.Report())
	assert.Len(t, s.Report().Failures, 1)

	_, ok := s.Runner("scorer")
	assert.True(t, ok)
	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)

	broken, err := d.LoadState(context.Background(), Descriptor{Name: "broken", Source: scene.Source{Data: []byte("{{{")}})
	require.NoError(t, err)
	assert.Same(t, broken, d.Current())
	assert.Zero(t, broken.Store().EntityCount())
	assert.ErrorIs(t, broken.Report().DocumentErr, scene.ErrMalformed)
}

func TestFailedBuildKeepsCurrentState(t *testing.T) {
	d := NewDirector(nil)
	defer func() { _ = d.Shutdown(context.Background()) }()

	var ticks atomic.Int64
	first, err := d.LoadState(context.Background(), Descriptor{Systems: []systems.System{ticking("x", &ticks)}})
	require.NoError(t, err)

	_, err = d.LoadState(context.Background(), Descriptor{Systems: []systems.System{
		ticking("dup", &ticks), ticking("dup", &ticks),
	}})
	assert.ErrorIs(t, err, ErrDuplicateSystem)
	assert.Same(t, first, d.Current())

	r, _ := first.Runner("x")
	assert.Equal(t, systems.Running, r.State())
}

func TestDefaultPeriodAppliesToUnscheduledSystems(t *testing.T) {
	s := New("periods", WithDefaultPeriod(7*time.Millisecond))

	plain, err := s.RegisterSystem(&systems.Funcs{SystemName: "plain", Fam: scoreFamily}, Registration{})
	require.NoError(t, err)
	assert.Equal(t, 7*time.Millisecond, plain.Period())

	own, err := s.RegisterSystem(&systems.Funcs{SystemName: "own", Fam: scoreFamily, Every: 3 * time.Millisecond}, Registration{})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Millisecond, own.Period())

	forced, err := s.RegisterSystem(&systems.Funcs{SystemName: "forced", Fam: scoreFamily, Every: 3 * time.Millisecond}, Registration{Period: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, forced.Period())
}

func TestStateNamePrecedence(t *testing.T) {
	d := NewDirector(nil)
	defer func() { _ = d.Shutdown(context.Background()) }()

	path := filepath.Join(t.TempDir(), "file.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: arena\nentities: []\n"), 0o644))

	s, err := d.LoadState(context.Background(), Descriptor{Source: scene.Source{Path: path}})
	require.NoError(t, err)
	assert.Equal(t, "arena", s.Name())

	s, err = d.LoadState(context.Background(), Descriptor{Source: scene.Source{Data: []byte("name: arena\n")}})
	require.NoError(t, err)
	assert.Equal(t, "arena", s.Name())

	s, err = d.LoadState(context.Background(), Descriptor{Name: "override", Source: scene.Source{Path: path}})
	require.NoError(t, err)
	assert.Equal(t, "override", s.Name())

	s, err = d.LoadState(context.Background(), Descriptor{Source: scene.Source{Data: []byte("[]")}})
	require.NoError(t, err)
	assert.Equal(t, "inline", s.Name())
}

func TestStopCancelsRunContextFirst(t *testing.T) {
	s := New("cancel")
	var sawCancel atomic.Bool
	_, err := s.RegisterSystem(&systems.Funcs{
		SystemName: "watch",
		Fam:        scoreFamily,
		Every:      time.Millisecond,
	}, Registration{})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	s.mu.Lock()
	runCtx := s.runCtx
	s.mu.Unlock()
	go func() {
		<-runCtx.Done()
		sawCancel.Store(true)
	}()

	s.Stop()
	assert.Eventually(t, sawCancel.Load, time.Second, time.Millisecond)
	r, ok := s.Runner("watch")
	require.True(t, ok)
	assert.Equal(t, systems.Stopped, r.State())
}
