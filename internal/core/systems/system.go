package systems

import (
	"context"
	"reflect"
	"time"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
)

// DefaultPeriod is the tick interval of systems that do not implement Periodic.
const DefaultPeriod = 20 * time.Millisecond

// Tick carries the per-tick context handed to a system.
type Tick struct {
	Context context.Context
	Store   *ecs.Store
	// Delta is the time since the runner's previous tick; zero on the first tick.
	Delta  time.Duration
	Number uint64
	Time   time.Time
	Logger log.Log
}

// Seconds is Delta as float seconds.
func (t *Tick) Seconds() float64 { return t.Delta.Seconds() }

// System processes every component of one family, once per tick.
type System interface {
	Family() ecs.Family
	Process(t *Tick, e ecs.Entity, c ecs.Component) error
}

// Named systems report a stable name; others are named after their type.
type Named interface {
	Name() string
}

// Periodic systems choose their own tick interval.
type Periodic interface {
	Period() time.Duration
}

// BeforeTicker runs once per tick before the per-component loop.
type BeforeTicker interface {
	BeforeTick(t *Tick) error
}

// AfterTicker runs once per tick after the per-component loop.
type AfterTicker interface {
	AfterTick(t *Tick) error
}

// Lifecycle systems get Setup before the first tick and Teardown after the last,
// both on the runner goroutine.
type Lifecycle interface {
	Setup(store *ecs.Store) error
	Teardown()
}

// NameOf returns the registration name of s.
func NameOf(s System) string {
	if n, ok := s.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// PeriodOf returns the tick interval of s.
func PeriodOf(s System) time.Duration {
	if p, ok := s.(Periodic); ok && p.Period() > 0 {
		return p.Period()
	}
	return DefaultPeriod
}

// Funcs builds a System from closures. Nil hooks are skipped.
type Funcs struct {
	SystemName string
	Fam        ecs.Family
	Every      time.Duration
	Before     func(t *Tick) error
	Each       func(t *Tick, e ecs.Entity, c ecs.Component) error
	After      func(t *Tick) error
}

var (
	_ System       = (*Funcs)(nil)
	_ Named        = (*Funcs)(nil)
	_ Periodic     = (*Funcs)(nil)
	_ BeforeTicker = (*Funcs)(nil)
	_ AfterTicker  = (*Funcs)(nil)
)

func (f *Funcs) Name() string          { return f.SystemName }
func (f *Funcs) Family() ecs.Family    { return f.Fam }
func (f *Funcs) Period() time.Duration { return f.Every }

func (f *Funcs) Process(t *Tick, e ecs.Entity, c ecs.Component) error {
	if f.Each == nil {
		return nil
	}
	return f.Each(t, e, c)
}

func (f *Funcs) BeforeTick(t *Tick) error {
	if f.Before == nil {
		return nil
	}
	return f.Before(t)
}

func (f *Funcs) AfterTick(t *Tick) error {
	if f.After == nil {
		return nil
	}
	return f.After(t)
}
