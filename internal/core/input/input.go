// Package input is the read side of the window/input collaborator. Systems ask
// a Source whether keys are held; hosts feed the Source from their window.
package input

import "sync"

// Key names a logical key.
type Key string

const (
	KeyUp     Key = "up"
	KeyDown   Key = "down"
	KeyLeft   Key = "left"
	KeyRight  Key = "right"
	KeySpace  Key = "space"
	KeyEscape Key = "escape"
	KeyW      Key = "w"
	KeyA      Key = "a"
	KeyS      Key = "s"
	KeyD      Key = "d"
)

// Source reports current input state.
type Source interface {
	Pressed(k Key) bool
}

// Snapshot is a Source whose state is set by the host once per frame.
type Snapshot struct {
	mu   sync.RWMutex
	down map[Key]bool
}

func NewSnapshot() *Snapshot {
	return &Snapshot{down: make(map[Key]bool)}
}

func (s *Snapshot) Pressed(k Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.down[k]
}

func (s *Snapshot) Set(k Key, pressed bool) {
	s.mu.Lock()
	if pressed {
		s.down[k] = true
	} else {
		delete(s.down, k)
	}
	s.mu.Unlock()
}

// Replace swaps in the full set of held keys.
func (s *Snapshot) Replace(held ...Key) {
	down := make(map[Key]bool, len(held))
	for _, k := range held {
		down[k] = true
	}
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

// None is a Source with nothing pressed, for headless hosts.
var None Source = none{}

type none struct{}

func (none) Pressed(Key) bool { return false }
