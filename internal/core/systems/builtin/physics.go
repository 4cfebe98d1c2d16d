package builtin

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/zeusengine/internal/core/components"
	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/systems"
	"github.com/zeusync/zeusengine/internal/core/systems/physics"
)

// Physics steps a chipmunk space and copies body poses into Transforms. The
// space lives between Setup and Teardown, so a restarted system starts fresh.
type Physics struct {
	Schedule
	Gravity mgl64.Vec2

	world *physics.World
}

var (
	_ systems.Lifecycle    = (*Physics)(nil)
	_ systems.BeforeTicker = (*Physics)(nil)
	_ systems.AfterTicker  = (*Physics)(nil)
)

func (*Physics) Name() string       { return "physics" }
func (*Physics) Family() ecs.Family { return components.BodyFamily }

func (p *Physics) Setup(*ecs.Store) error {
	p.world = physics.NewWorld(p.Gravity)
	return nil
}

func (p *Physics) Teardown() {
	if p.world != nil {
		p.world.Close()
		p.world = nil
	}
}

// Bodies is the number of simulated bodies; only meaningful on the runner goroutine.
func (p *Physics) Bodies() int {
	if p.world == nil {
		return 0
	}
	return p.world.Len()
}

func (p *Physics) BeforeTick(t *systems.Tick) error {
	p.world.Begin()
	p.world.Step(t.Seconds())
	return nil
}

func (p *Physics) Process(_ *systems.Tick, e ecs.Entity, c ecs.Component) error {
	spec, ok := c.(*components.Body)
	if !ok {
		return nil
	}
	tr, ok := ecs.Get[*components.Transform](e, components.TransformFamily)
	if !ok {
		return nil
	}
	p.world.Sync(e, spec, tr.Local())

	if spec.Driven {
		if vel, ok := ecs.Get[*components.Velocity](e, components.VelocityFamily); ok {
			linear, _ := vel.Get()
			p.world.SetVelocity(e, linear)
		}
	}
	if pos, angle, ok := p.world.Pose(e); ok && !spec.Static {
		pose := tr.Local()
		pose.Position, pose.Rotation = pos, angle
		tr.SetLocal(pose)
	}
	return nil
}

func (p *Physics) AfterTick(t *systems.Tick) error {
	if n := p.world.Prune(); n > 0 {
		t.Logger.Debug("physics bodies pruned", log.Int("bodies", n))
	}
	return nil
}
