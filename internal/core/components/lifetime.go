package components

import (
	"time"

	"github.com/zeusync/zeusengine/internal/core/ecs"
)

var LifetimeFamily = ecs.NewFamily("lifetime")

// Lifetime destroys its entity once Remaining runs out.
type Lifetime struct {
	Remaining time.Duration `yaml:"remaining"`
	Expired   bool          `yaml:"-"`
}

func (*Lifetime) Family() ecs.Family { return LifetimeFamily }

// Advance consumes d and reports whether the lifetime just ran out.
func (l *Lifetime) Advance(d time.Duration) bool {
	if l.Expired {
		return false
	}
	l.Remaining -= d
	if l.Remaining > 0 {
		return false
	}
	l.Expired = true
	return true
}
