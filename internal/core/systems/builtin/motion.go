// Package builtin holds the stock systems and the standard scene registry.
package builtin

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/zeusengine/internal/core/components"
	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/input"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

// Schedule is embedded by stock systems; a zero Every means systems.DefaultPeriod.
type Schedule struct {
	Every time.Duration
}

func (s Schedule) Period() time.Duration { return s.Every }

// Movement integrates Velocity into Transform. Entities with a Body are left
// to the physics system.
type Movement struct {
	Schedule
}

var _ systems.System = (*Movement)(nil)

func (*Movement) Name() string       { return "movement" }
func (*Movement) Family() ecs.Family { return components.VelocityFamily }

func (m *Movement) Process(t *systems.Tick, e ecs.Entity, c ecs.Component) error {
	vel, ok := c.(*components.Velocity)
	if !ok || t.Store.Has(e, components.BodyFamily) {
		return nil
	}
	tr, ok := ecs.Get[*components.Transform](e, components.TransformFamily)
	if !ok {
		return nil
	}
	dt := t.Seconds()
	linear, angular := vel.Get()
	tr.Move(linear.Mul(dt), angular*dt)
	return nil
}

// Controller turns held keys into the entity's linear velocity.
type Controller struct {
	Schedule
	Input input.Source
}

func (*Controller) Name() string       { return "controller" }
func (*Controller) Family() ecs.Family { return components.ControllerFamily }

func (s *Controller) Process(_ *systems.Tick, e ecs.Entity, c ecs.Component) error {
	ctl, ok := c.(*components.Controller)
	if !ok || s.Input == nil {
		return nil
	}
	vel, ok := ecs.Get[*components.Velocity](e, components.VelocityFamily)
	if !ok {
		return nil
	}

	var dir mgl64.Vec2
	if s.Input.Pressed(ctl.Up) {
		dir[1]--
	}
	if s.Input.Pressed(ctl.Down) {
		dir[1]++
	}
	if s.Input.Pressed(ctl.Left) {
		dir[0]--
	}
	if s.Input.Pressed(ctl.Right) {
		dir[0]++
	}
	if dir.Len() > 0 {
		dir = dir.Normalize().Mul(ctl.Speed)
	}
	vel.SetLinear(dir)
	return nil
}

// Hierarchy derives world transforms from Parent links. Chains settle one
// level per tick.
type Hierarchy struct {
	Schedule
}

func (*Hierarchy) Name() string       { return "hierarchy" }
func (*Hierarchy) Family() ecs.Family { return components.ParentFamily }

func (*Hierarchy) Process(_ *systems.Tick, e ecs.Entity, c ecs.Component) error {
	p, ok := c.(*components.Parent)
	if !ok {
		return nil
	}
	child, ok := ecs.Get[*components.Transform](e, components.TransformFamily)
	if !ok {
		return nil
	}
	parent, ok := ecs.Get[*components.Transform](p.Entity, components.TransformFamily)
	if !ok || e.Store().Marked(p.Entity, components.TransformFamily) {
		child.ClearWorld()
		return nil
	}
	child.SetWorld(parent.World().Compose(child.Local()))
	return nil
}

// Lifetime counts down Lifetime components and destroys expired entities.
type Lifetime struct {
	Schedule
}

func (*Lifetime) Name() string       { return "lifetime" }
func (*Lifetime) Family() ecs.Family { return components.LifetimeFamily }

func (*Lifetime) Process(t *systems.Tick, e ecs.Entity, c ecs.Component) error {
	l, ok := c.(*components.Lifetime)
	if !ok {
		return nil
	}
	if l.Advance(t.Delta) {
		e.Destroy()
	}
	return nil
}
