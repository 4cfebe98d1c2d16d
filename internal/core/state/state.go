// Package state owns game states and the director that swaps between them.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/events"
	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/scene"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

// Hook is a lifecycle callback. Hooks run on the caller of the director.
type Hook func(ctx context.Context, s *State) error

// Hooks are the non-system callbacks of a state. Any of them may be nil.
type Hooks struct {
	OnStart  Hook
	OnUpdate Hook
	OnExit   Hook
}

// Registration overrides how a system is scheduled.
type Registration struct {
	Name   string
	Period time.Duration
}

type registered struct {
	system systems.System
	reg    Registration
	runner *systems.Runner
}

// State owns one store and the runners ticking against it.
type State struct {
	id     string
	name   string
	store  *ecs.Store
	hooks  Hooks
	logger log.Log
	runLog log.Log
	bus    bus.EventBus
	period time.Duration

	mu      sync.Mutex
	systems map[string]*registered
	order   []string
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	report  *scene.Report
}

type Option func(*State)

func WithHooks(h Hooks) Option {
	return func(s *State) { s.hooks = h }
}

func WithLogger(l log.Log) Option {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithBus(b bus.EventBus) Option {
	return func(s *State) { s.bus = b }
}

// WithDefaultPeriod sets the period of systems that neither implement
// systems.Periodic nor carry a Registration.Period.
func WithDefaultPeriod(d time.Duration) Option {
	return func(s *State) { s.period = d }
}

func WithResolver(r *ecs.Resolver) Option {
	return func(s *State) { s.store = ecs.NewStore(r) }
}

// WithStore makes the state own an already populated store.
func WithStore(st *ecs.Store) Option {
	return func(s *State) {
		if st != nil {
			s.store = st
		}
	}
}

// New creates an empty, not yet started state.
func New(name string, opts ...Option) *State {
	s := &State{
		id:      uuid.NewString(),
		name:    name,
		store:   ecs.NewStore(nil),
		logger:  log.NewNop(),
		systems: make(map[string]*registered),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runLog = s.logger.Named("runner")
	s.logger = s.logger.Named("state").With(log.String("state", s.id), log.String("name", name))
	return s
}

func (s *State) ID() string        { return s.id }
func (s *State) Name() string      { return s.name }
func (s *State) Store() *ecs.Store { return s.store }

// Report is the load report of the scene the state was built from, if any.
func (s *State) Report() *scene.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *State) setReport(r *scene.Report) {
	s.mu.Lock()
	s.report = r
	s.mu.Unlock()
}

// CreateEntity is the only way to obtain entities of this state.
func (s *State) CreateEntity() ecs.Entity {
	return s.store.CreateEntity()
}

// RegisterSystem binds sys to the state's store. On a started state the
// runner starts right away.
func (s *State) RegisterSystem(sys systems.System, reg Registration) (*systems.Runner, error) {
	if sys == nil {
		return nil, systems.ErrNilSystem
	}
	if reg.Name == "" {
		reg.Name = systems.NameOf(sys)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStateStopped
	}
	if _, ok := s.systems[reg.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSystem, reg.Name)
	}

	r, err := s.newRunner(sys, reg)
	if err != nil {
		return nil, err
	}
	s.systems[reg.Name] = &registered{system: sys, reg: reg, runner: r}
	s.order = append(s.order, reg.Name)

	if s.started {
		if err := r.Start(s.runCtx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// StopSystem stops and forgets the named system.
func (s *State) StopSystem(name string) error {
	s.mu.Lock()
	rs, ok := s.systems[name]
	if ok {
		delete(s.systems, name)
		for i, n := range s.order {
			if n == name {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSystem, name)
	}
	rs.runner.Stop()
	return nil
}

// RestartSystem replaces the named system's runner with a fresh one. A runner
// that is still running is stopped first. It is safe to call from a
// system.stopped handler: the new runner starts once the old one has fully
// exited.
func (s *State) RestartSystem(name string) (*systems.Runner, error) {
	s.mu.Lock()
	rs, ok := s.systems[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownSystem, name)
	}
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStateStopped
	}
	old := rs.runner
	r, err := s.newRunner(rs.system, rs.reg)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	rs.runner = r
	started, ctx := s.started, s.runCtx
	s.mu.Unlock()

	if old.State() != systems.Stopped {
		old.Stop()
	}
	s.logger.Info("system restarted", log.String("system", name))
	if !started {
		return r, nil
	}

	go func() {
		<-old.Done()
		if err := r.Start(ctx); err != nil && !errors.Is(err, systems.ErrRunnerStopped) {
			s.logger.Warn("restarted system did not start", log.String("system", name), log.Error(err))
		}
	}()
	return r, nil
}

// Runner returns the current runner of the named system.
func (s *State) Runner(name string) (*systems.Runner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.systems[name]
	if !ok {
		return nil, false
	}
	return rs.runner, true
}

// Stats lists every registered runner in registration order.
func (s *State) Stats() []systems.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]systems.Stats, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.systems[name].runner.Stats())
	}
	return out
}

// Start launches every registered runner under ctx.
func (s *State) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStateStopped
	}
	if s.started {
		return nil
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for _, name := range s.order {
		r := s.systems[name].runner
		if r.State() != systems.Scheduled {
			continue
		}
		if err := r.Start(s.runCtx); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
	}
	s.logger.Debug("state started", log.Int("systems", len(s.order)))
	return nil
}

// Stop stops every runner and waits for all of them. The state cannot be
// started again.
func (s *State) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	runners := make([]*systems.Runner, 0, len(s.order))
	for _, name := range s.order {
		runners = append(runners, s.systems[name].runner)
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var g errgroup.Group
	for _, r := range runners {
		g.Go(func() error {
			r.Stop()
			return nil
		})
	}
	_ = g.Wait()
	s.logger.Debug("state stopped", log.Int("systems", len(runners)))
}

// Reap physically removes marked components and returns how many went.
func (s *State) Reap() int {
	n := s.store.Reap()
	if n > 0 {
		_ = events.Publish(s.bus, events.StoreReaped, "state", events.Reaped{StateID: s.id, Removed: n})
	}
	return n
}

func (s *State) newRunner(sys systems.System, reg Registration) (*systems.Runner, error) {
	opts := []systems.Option{
		systems.WithName(reg.Name),
		systems.WithLogger(s.runLog),
		systems.WithBus(s.bus),
		systems.WithStateID(s.id),
	}
	period := reg.Period
	if p, ok := sys.(systems.Periodic); period <= 0 && (!ok || p.Period() <= 0) {
		period = s.period
	}
	if period > 0 {
		opts = append(opts, systems.WithPeriod(period))
	}
	return systems.NewRunner(s.store, sys, opts...)
}

func (s *State) runHook(ctx context.Context, which string, h Hook) error {
	if h == nil {
		return nil
	}
	if err := h(ctx, s); err != nil {
		s.logger.Error("state hook failed", log.String("hook", which), log.Error(err))
		return fmt.Errorf("%s: %w", which, err)
	}
	return nil
}
