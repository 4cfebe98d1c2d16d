package builtin

import (
	"github.com/zeusync/zeusengine/internal/core/components"
	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/render"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

// Render collects every visible drawable with its world pose and submits the
// batch to Queue after the loop.
type Render struct {
	Schedule
	Queue *render.Queue

	batch []render.Item
}

func (*Render) Name() string       { return "render" }
func (*Render) Family() ecs.Family { return components.RenderableFamily }

func (r *Render) BeforeTick(*systems.Tick) error {
	r.batch = make([]render.Item, 0, cap(r.batch))
	return nil
}

func (r *Render) Process(_ *systems.Tick, e ecs.Entity, c ecs.Component) error {
	d, ok := c.(components.Drawable)
	if !ok || d.Base().Hidden {
		return nil
	}
	pose := components.Identity()
	if tr, ok := ecs.Get[*components.Transform](e, components.TransformFamily); ok {
		pose = tr.World()
	}
	r.batch = append(r.batch, render.Item{
		Entity:    e,
		Component: c,
		Transform: pose,
		Layer:     d.Base().Layer,
	})
	return nil
}

func (r *Render) AfterTick(t *systems.Tick) error {
	if r.Queue != nil {
		r.Queue.Submit(t.Number, r.batch)
	}
	return nil
}
