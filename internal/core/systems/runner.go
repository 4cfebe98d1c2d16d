package systems

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/events"
	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
)

// RunnerState is the lifecycle position of a runner: Scheduled -> Running -> Stopped.
type RunnerState int32

const (
	Scheduled RunnerState = iota
	Running
	Stopped
)

func (s RunnerState) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time view of a runner.
type Stats struct {
	Name      string
	Family    ecs.Family
	State     RunnerState
	Reason    events.StopReason
	Period    time.Duration
	Ticks     uint64
	Processed uint64
	LastDelta time.Duration
	LastError error
	StartedAt time.Time
	StoppedAt time.Time
}

// Runner drives one system on its own goroutine and period. A stopped runner
// never ticks again; build a new one to resume the system.
type Runner struct {
	system  System
	name    string
	family  ecs.Family
	period  time.Duration
	store   *ecs.Store
	logger  log.Log
	bus     bus.EventBus
	stateID string

	state     atomic.Int32
	ticks     atomic.Uint64
	processed atomic.Uint64
	lastDelta atomic.Int64

	mu        sync.Mutex
	reason    events.StopReason
	lastErr   error
	startedAt time.Time
	stoppedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Runner)

// WithPeriod overrides the period the system asks for.
func WithPeriod(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.period = d
		}
	}
}

// WithName overrides the registration name.
func WithName(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.name = name
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithBus makes the runner publish SystemStarted/SystemStopped events.
func WithBus(b bus.EventBus) Option {
	return func(r *Runner) { r.bus = b }
}

// WithStateID tags the runner's logs and events with its owning state.
func WithStateID(id string) Option {
	return func(r *Runner) { r.stateID = id }
}

// NewRunner binds sys to store. The runner does nothing until Start.
func NewRunner(store *ecs.Store, sys System, opts ...Option) (*Runner, error) {
	if sys == nil {
		return nil, ErrNilSystem
	}
	if store == nil {
		return nil, ErrNilStore
	}
	family := sys.Family()
	if family.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrNoFamily, NameOf(sys))
	}

	r := &Runner{
		system: sys,
		name:   NameOf(sys),
		family: family,
		period: PeriodOf(sys),
		store:  store,
		logger: log.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(
		log.String("system", r.name),
		log.String("family", family.Name()),
		log.String("state", r.stateID),
	)
	return r, nil
}

func (r *Runner) Name() string          { return r.name }
func (r *Runner) Family() ecs.Family    { return r.family }
func (r *Runner) Period() time.Duration { return r.period }
func (r *Runner) System() System        { return r.system }
func (r *Runner) State() RunnerState    { return RunnerState(r.state.Load()) }
func (r *Runner) Ticks() uint64         { return r.ticks.Load() }

// Done is closed once the runner has stopped.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Stats snapshots the runner's counters.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Name:      r.name,
		Family:    r.family,
		State:     r.State(),
		Reason:    r.reason,
		Period:    r.period,
		Ticks:     r.ticks.Load(),
		Processed: r.processed.Load(),
		LastDelta: time.Duration(r.lastDelta.Load()),
		LastError: r.lastErr,
		StartedAt: r.startedAt,
		StoppedAt: r.stoppedAt,
	}
}

// Start launches the tick loop. The runner stops when ctx is cancelled, when
// Stop is called or when a tick faults.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if !r.state.CompareAndSwap(int32(Scheduled), int32(Running)) {
		r.mu.Unlock()
		if r.State() == Stopped {
			return ErrRunnerStopped
		}
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.startedAt = time.Now()
	r.mu.Unlock()

	go r.loop(runCtx)
	return nil
}

// Stop asks the runner to finish its in-flight tick and waits until it has.
// Stopping a runner that never started moves it straight to Stopped. Stop must
// not be called from inside the runner's own tick.
func (r *Runner) Stop() {
	// Running and a non-nil cancel are published together under mu.
	r.mu.Lock()
	if r.state.CompareAndSwap(int32(Scheduled), int32(Stopped)) {
		r.reason = events.StopRequested
		r.stoppedAt = time.Now()
		r.mu.Unlock()
		close(r.done)
		return
	}
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-r.done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	if lc, ok := r.system.(Lifecycle); ok {
		if err := r.guard(func() error { return lc.Setup(r.store) }); err != nil {
			r.finish(events.StopFaulted, fmt.Errorf("setup: %w", err))
			return
		}
		defer func() {
			_ = r.guard(func() error { lc.Teardown(); return nil })
		}()
	}

	r.logger.Debug("system started", log.Duration("period", r.period))
	r.publish(events.SystemStarted, "", nil)

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	var last time.Time
	for {
		if ctx.Err() != nil {
			r.finish(events.StopRequested, nil)
			return
		}
		if err := r.tick(ctx, &last); err != nil {
			r.finish(events.StopFaulted, err)
			return
		}
		select {
		case <-ctx.Done():
			r.finish(events.StopRequested, nil)
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) tick(ctx context.Context, last *time.Time) error {
	now := time.Now()
	var delta time.Duration
	if !last.IsZero() {
		delta = now.Sub(*last)
	}
	*last = now

	release := r.store.Acquire(r.family)
	defer release()

	t := &Tick{
		Context: ctx,
		Store:   r.store,
		Delta:   delta,
		Number:  r.ticks.Load() + 1,
		Time:    now,
		Logger:  r.logger,
	}

	err := r.guard(func() error {
		if b, ok := r.system.(BeforeTicker); ok {
			if err := b.BeforeTick(t); err != nil {
				return fmt.Errorf("before tick: %w", err)
			}
		}
		for _, entry := range r.store.All(r.family) {
			if err := r.system.Process(t, entry.Entity, entry.Component); err != nil {
				return fmt.Errorf("process %s: %w", entry.Entity, err)
			}
			r.processed.Add(1)
		}
		if a, ok := r.system.(AfterTicker); ok {
			if err := a.AfterTick(t); err != nil {
				return fmt.Errorf("after tick: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.lastDelta.Store(int64(delta))
	r.ticks.Add(1)
	return nil
}

// guard converts a panic in system code into an error.
func (r *Runner) guard(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanic, rec)
			r.logger.Debug("recovered panic", log.String("stack", string(debug.Stack())))
		}
	}()
	return fn()
}

func (r *Runner) finish(reason events.StopReason, err error) {
	r.mu.Lock()
	r.reason = reason
	r.lastErr = err
	r.stoppedAt = time.Now()
	r.mu.Unlock()
	r.state.Store(int32(Stopped))

	if err != nil {
		r.logger.Error("system stopped after fault", log.Error(err), log.Uint64("ticks", r.ticks.Load()))
	} else {
		r.logger.Debug("system stopped", log.Uint64("ticks", r.ticks.Load()))
	}
	r.publish(events.SystemStopped, reason, err)
}

func (r *Runner) publish(eventType string, reason events.StopReason, err error) {
	status := events.SystemStatus{
		StateID: r.stateID,
		System:  r.name,
		Family:  r.family.Name(),
		Reason:  reason,
		Ticks:   r.ticks.Load(),
		Period:  r.period,
	}
	if err != nil {
		status.Err = err.Error()
	}
	if pubErr := events.Publish(r.bus, eventType, "runner", status); pubErr != nil {
		r.logger.Warn("event handler failed", log.String("event", eventType), log.Error(pubErr))
	}
}
