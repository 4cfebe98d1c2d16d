package builtin

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/zeusengine/internal/core/components"
	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

// Script runs every Script component once per tick. A script error faults the
// system like any other tick error.
type Script struct {
	Schedule
}

func (*Script) Name() string       { return "script" }
func (*Script) Family() ecs.Family { return components.ScriptFamily }

func (*Script) Process(t *systems.Tick, e ecs.Entity, c ecs.Component) error {
	s, ok := c.(*components.Script)
	if !ok {
		return nil
	}
	env := &components.ScriptEnv{Delta: t.Seconds(), Entity: uint64(e.ID())}
	tr, hasTransform := ecs.Get[*components.Transform](e, components.TransformFamily)
	if hasTransform {
		pos := tr.Position()
		env.X, env.Y = pos.X(), pos.Y()
	}
	before := *env

	if err := s.Run(env); err != nil {
		return err
	}
	if hasTransform && (env.X != before.X || env.Y != before.Y) {
		tr.SetPosition(mgl64.Vec2{env.X, env.Y})
	}
	if env.Destroy {
		e.Destroy()
	}
	return nil
}
