// Package events names the structured notifications the engine publishes on its bus.
package events

import (
	"time"

	"github.com/zeusync/zeusengine/internal/core/events/bus"
)

const (
	SystemStarted          = "system.started"
	SystemStopped          = "system.stopped"
	StateLoaded            = "state.loaded"
	StateExited            = "state.exited"
	SceneComponentFailed   = "scene.component_failed"
	SceneDocumentFailed    = "scene.document_failed"
	StoreReaped            = "store.reaped"
	SceneReloadRequested   = "scene.reload_requested"
	SystemRegistrationFail = "system.registration_failed"
)

// StopReason says why a runner left the Running state.
type StopReason string

const (
	StopRequested StopReason = "requested"
	StopFaulted   StopReason = "faulted"
)

// SystemStatus is the payload of SystemStarted and SystemStopped.
type SystemStatus struct {
	StateID string        `json:"state_id"`
	System  string        `json:"system"`
	Family  string        `json:"family"`
	Reason  StopReason    `json:"reason,omitempty"`
	Ticks   uint64        `json:"ticks"`
	Period  time.Duration `json:"period"`
	Err     string        `json:"error,omitempty"`
}

// StateChange is the payload of StateLoaded and StateExited.
type StateChange struct {
	StateID  string `json:"state_id"`
	Name     string `json:"name"`
	Entities int    `json:"entities"`
	Systems  int    `json:"systems"`
	Failures int    `json:"failures"`
}

// ComponentFailure is the payload of SceneComponentFailed.
type ComponentFailure struct {
	Scene       string `json:"scene"`
	EntityIndex int    `json:"entity_index"`
	Identifier  string `json:"identifier"`
	Err         string `json:"error"`
}

// DocumentFailure is the payload of SceneDocumentFailed.
type DocumentFailure struct {
	Scene string `json:"scene"`
	Err   string `json:"error"`
}

// Reaped is the payload of StoreReaped.
type Reaped struct {
	StateID string `json:"state_id"`
	Removed int    `json:"removed"`
}

// Reload is the payload of SceneReloadRequested.
type Reload struct {
	Path string `json:"path"`
}

// Publish wraps payload into a bus event. A nil bus is allowed and ignored.
func Publish(b bus.EventBus, eventType, source string, payload any) error {
	if b == nil {
		return nil
	}
	return b.Publish(bus.NewEvent(eventType, source, payload, nil))
}
