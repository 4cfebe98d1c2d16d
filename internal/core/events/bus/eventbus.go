package bus

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type simpleEvent struct {
	typeStr string
	source  string
	ts      time.Time
	data    any
	meta    map[string]any
}

func (e simpleEvent) Type() string             { return e.typeStr }
func (e simpleEvent) Source() string           { return e.source }
func (e simpleEvent) Timestamp() time.Time     { return e.ts }
func (e simpleEvent) Data() any                { return e.data }
func (e simpleEvent) Metadata() map[string]any { return e.meta }

// NewEvent stamps an event with the current time.
func NewEvent(typ, src string, data any, metadata map[string]any) Event {
	return simpleEvent{typeStr: typ, source: src, ts: time.Now(), data: data, meta: metadata}
}

type subscription struct {
	id        string
	eventType string
	handler   EventHandler
	active    atomic.Bool
	bus       *inMemoryBus
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) EventType() string { return s.eventType }
func (s *subscription) IsActive() bool    { return s.active.Load() }

func (s *subscription) Cancel() error {
	if s.active.Swap(false) {
		s.bus.remove(s)
	}
	return nil
}

type inMemoryBus struct {
	mu sync.RWMutex
	// handlers keeps each type's subscriptions in subscription order.
	handlers  map[string][]*subscription
	observers []EventBusObserver
	active    int

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

func New() EventBus {
	return &inMemoryBus{handlers: make(map[string][]*subscription)}
}

func (b *inMemoryBus) Publish(event Event) error {
	if event == nil {
		return nil
	}
	return b.deliver(event)
}

func (b *inMemoryBus) Subscribe(eventType string, handler EventHandler) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	s := &subscription{id: uuid.NewString(), eventType: eventType, handler: handler, bus: b}
	s.active.Store(true)

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], s)
	b.active++
	b.mu.Unlock()
	return s, nil
}

func (b *inMemoryBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (b *inMemoryBus) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[s.eventType]
	if i := slices.Index(subs, s); i >= 0 {
		// Copy so that deliveries holding the old slice are unaffected.
		subs = slices.Delete(slices.Clone(subs), i, i+1)
		b.active--
	}
	if len(subs) == 0 {
		delete(b.handlers, s.eventType)
	} else {
		b.handlers[s.eventType] = subs
	}
}

func (b *inMemoryBus) AddObserver(obs EventBusObserver) {
	if obs == nil {
		return
	}
	b.mu.Lock()
	if !slices.Contains(b.observers, obs) {
		b.observers = append(slices.Clone(b.observers), obs)
	}
	b.mu.Unlock()
}

func (b *inMemoryBus) RemoveObserver(obs EventBusObserver) {
	b.mu.Lock()
	if i := slices.Index(b.observers, obs); i >= 0 {
		b.observers = slices.Delete(slices.Clone(b.observers), i, i+1)
	}
	b.mu.Unlock()
}

func (b *inMemoryBus) GetMetrics() EventBusMetrics {
	b.mu.RLock()
	active := b.active
	b.mu.RUnlock()
	return EventBusMetrics{
		Published:         b.published.Load(),
		DeliveredHandlers: b.delivered.Load(),
		Errors:            b.failed.Load(),
		SubscribersActive: uint64(active),
	}
}

func (b *inMemoryBus) deliver(event Event) error {
	start := time.Now()
	etype := event.Type()

	b.mu.RLock()
	typed := b.handlers[etype]
	var wildcard []*subscription
	if etype != AnyType {
		wildcard = b.handlers[AnyType]
	}
	observers := b.observers
	b.mu.RUnlock()

	var errs []error
	delivered := 0
	for _, group := range [2][]*subscription{typed, wildcard} {
		for _, s := range group {
			if !s.IsActive() {
				continue
			}
			delivered++
			if err := call(s, event); err != nil {
				errs = append(errs, err)
			}
		}
	}
	all := errors.Join(errs...)

	b.published.Add(1)
	b.delivered.Add(uint64(delivered))
	if all != nil {
		b.failed.Add(1)
	}
	if len(observers) > 0 {
		dur := time.Since(start)
		for _, obs := range observers {
			obs.OnDelivered(etype, delivered, all, dur)
		}
	}
	return all
}

func call(s *subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, event.Type(), r)
		}
	}()
	return s.handler(event)
}
