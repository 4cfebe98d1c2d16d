package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/events"
	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/render"
	"github.com/zeusync/zeusengine/internal/core/scene"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

// Descriptor describes a state to load.
type Descriptor struct {
	Name string
	// Source is the scene to populate the store from; a zero Source loads nothing.
	Source scene.Source
	// Systems are registered before the systems declared by the scene document.
	Systems []systems.System
	Hooks   Hooks
}

// Director holds the process-wide current state and performs transitions.
type Director struct {
	current atomic.Pointer[State]

	// transition serializes LoadState and Shutdown.
	transition sync.Mutex

	loader   *scene.Loader
	resolver *ecs.Resolver
	renderer render.Renderer
	queue    *render.Queue
	logger   log.Log
	bus      bus.EventBus
	period   time.Duration

	base   context.Context
	cancel context.CancelFunc
}

type DirectorOption func(*Director)

func WithRenderer(r render.Renderer, q *render.Queue) DirectorOption {
	return func(d *Director) { d.renderer, d.queue = r, q }
}

func WithDirectorLogger(l log.Log) DirectorOption {
	return func(d *Director) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithDirectorBus(b bus.EventBus) DirectorOption {
	return func(d *Director) { d.bus = b }
}

// WithFamilyResolver makes every state store resolve families through r.
func WithFamilyResolver(r *ecs.Resolver) DirectorOption {
	return func(d *Director) { d.resolver = r }
}

// WithSystemPeriod is the period given to systems that do not choose one.
func WithSystemPeriod(p time.Duration) DirectorOption {
	return func(d *Director) { d.period = p }
}

// WithRunContext sets the parent context of every runner; cancelling it stops
// all systems of the current state.
func WithRunContext(ctx context.Context) DirectorOption {
	return func(d *Director) { d.base = ctx }
}

// NewDirector creates a director with no current state.
func NewDirector(loader *scene.Loader, opts ...DirectorOption) *Director {
	if loader == nil {
		loader = scene.NewLoader(nil)
	}
	d := &Director{
		loader: loader,
		logger: log.NewNop(),
		base:   context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.base, d.cancel = context.WithCancel(d.base)
	d.logger = d.logger.Named("director")
	return d
}

// Current returns the active state, or nil before the first LoadState.
func (d *Director) Current() *State { return d.current.Load() }

func (d *Director) Loader() *scene.Loader { return d.loader }

// LoadState builds a new state from desc and makes it current. The sequence is:
// build and populate the new store, register its systems, run the old state's
// OnExit, stop every old runner and wait for them, swap, run OnStart, start
// the new runners. If building fails the old state stays current.
//
// Hook errors are logged and returned but do not undo the transition.
func (d *Director) LoadState(ctx context.Context, desc Descriptor) (*State, error) {
	d.transition.Lock()
	defer d.transition.Unlock()

	next, err := d.build(ctx, desc)
	if err != nil {
		return nil, err
	}

	var errs []error
	if prev := d.current.Load(); prev != nil {
		errs = append(errs, d.retire(ctx, prev))
	}
	if d.queue != nil {
		d.queue.Reset()
	}

	d.current.Store(next)
	errs = append(errs, next.runHook(ctx, "on_start", next.hooks.OnStart))
	if err := next.Start(d.base); err != nil {
		errs = append(errs, err)
	}

	report := next.Report()
	change := events.StateChange{
		StateID:  next.ID(),
		Name:     next.Name(),
		Entities: next.Store().EntityCount(),
		Systems:  len(next.Stats()),
	}
	if report != nil {
		change.Failures = len(report.Failures)
	}
	_ = events.Publish(d.bus, events.StateLoaded, "director", change)
	d.logger.Info("state loaded",
		log.String("state", next.ID()),
		log.String("name", next.Name()),
		log.Int("entities", change.Entities),
		log.Int("systems", change.Systems),
		log.Int("failures", change.Failures))

	return next, errors.Join(errs...)
}

// Update is the per-frame state step: reap, then OnUpdate.
func (d *Director) Update(ctx context.Context) error {
	s := d.current.Load()
	if s == nil {
		return ErrNoState
	}
	s.Reap()
	return s.runHook(ctx, "on_update", s.hooks.OnUpdate)
}

// Frame runs one host frame: reap, OnUpdate, render.
func (d *Director) Frame(ctx context.Context) error {
	if err := d.Update(ctx); err != nil {
		return err
	}
	if d.renderer == nil || d.queue == nil {
		return nil
	}
	return d.renderer.Render(d.queue.Latest())
}

// Shutdown retires the current state and stops every runner.
func (d *Director) Shutdown(ctx context.Context) error {
	d.transition.Lock()
	defer d.transition.Unlock()

	var err error
	if prev := d.current.Swap(nil); prev != nil {
		err = d.retire(ctx, prev)
	}
	d.cancel()
	return err
}

func (d *Director) build(ctx context.Context, desc Descriptor) (*State, error) {
	store := ecs.NewStore(d.resolver)
	var doc *scene.Document
	var report *scene.Report
	if !desc.Source.IsZero() {
		doc, report = d.loader.LoadSource(ctx, store, desc.Source)
	}

	// The descriptor names the state, else the document, else the source.
	name := desc.Name
	if name == "" && doc != nil {
		name = doc.Name
	}
	if name == "" {
		name = desc.Source.Name()
	}
	if doc == nil {
		doc = scene.Empty(name)
	}

	next := New(name, WithHooks(desc.Hooks), WithLogger(d.logger), WithBus(d.bus),
		WithDefaultPeriod(d.period), WithStore(store))
	next.setReport(report)

	for _, sys := range desc.Systems {
		if _, err := next.RegisterSystem(sys, Registration{}); err != nil {
			next.Stop()
			return nil, fmt.Errorf("load state %s: %w", name, err)
		}
	}

	declared, err := d.loader.BuildSystems(doc)
	if err != nil {
		d.registrationFailed(name, err)
	}
	for _, dcl := range declared {
		if _, err := next.RegisterSystem(dcl.System, Registration{Name: dcl.Name, Period: dcl.Period}); err != nil {
			d.registrationFailed(name, err)
		}
	}
	return next, nil
}

func (d *Director) registrationFailed(sceneName string, err error) {
	d.logger.Warn("scene system not registered", log.String("scene", sceneName), log.Error(err))
	_ = events.Publish(d.bus, events.SystemRegistrationFail, "director",
		events.DocumentFailure{Scene: sceneName, Err: err.Error()})
}

func (d *Director) retire(ctx context.Context, s *State) error {
	err := s.runHook(ctx, "on_exit", s.hooks.OnExit)
	s.Stop()
	_ = events.Publish(d.bus, events.StateExited, "director", events.StateChange{
		StateID:  s.ID(),
		Name:     s.Name(),
		Entities: s.Store().EntityCount(),
		Systems:  len(s.Stats()),
	})
	return err
}
