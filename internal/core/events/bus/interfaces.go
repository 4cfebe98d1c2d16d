package bus

import "time"

// EventBus is the engine's in-process pub/sub channel. Runners, the loader
// and the director publish; hosts and the inspector subscribe.
//
// Delivery is synchronous on the publishing goroutine, in subscription order,
// wildcard subscribers last. Handlers therefore run concurrently with each
// other when several runners publish at once and must return quickly.
type EventBus interface {
	// Publish delivers event to every active subscriber of its type and to
	// wildcard subscribers. Handler errors and panics are joined.
	Publish(event Event) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil sub is ignored.
	Unsubscribe(sub Subscription) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	GetMetrics() EventBusMetrics
}

// AnyType subscribes a handler to every event type.
const AnyType = "*"

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

type EventHandler func(event Event) error

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel removes the handler. Repeated calls are no-ops.
	Cancel() error
}

// EventBusObserver is told about every delivery after it completes.
type EventBusObserver interface {
	OnDelivered(eventType string, handlers int, err error, duration time.Duration)
}

// EventBusMetrics counts deliveries since the bus was created.
type EventBusMetrics struct {
	Published         uint64 `json:"published"`
	DeliveredHandlers uint64 `json:"delivered_handlers"`
	Errors            uint64 `json:"errors"`
	SubscribersActive uint64 `json:"subscribers_active"`
}
