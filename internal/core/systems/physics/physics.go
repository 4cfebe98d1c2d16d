// Package physics keeps a chipmunk space in step with the Body components of
// one store. A World is owned by a single physics system and is not safe for
// concurrent use.
package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/zeusync/zeusengine/internal/core/components"
	"github.com/zeusync/zeusengine/internal/core/ecs"
)

type entry struct {
	spec  *components.Body
	body  *cp.Body
	shape *cp.Shape
	epoch uint64
}

type World struct {
	space  *cp.Space
	bodies map[ecs.Entity]*entry
	epoch  uint64
}

func NewWorld(gravity mgl64.Vec2) *World {
	space := cp.NewSpace()
	space.SetGravity(vec(gravity))
	return &World{
		space:  space,
		bodies: make(map[ecs.Entity]*entry),
	}
}

// Begin starts a sync pass. Bodies not touched by Sync before the next Prune
// are removed from the space.
func (w *World) Begin() { w.epoch++ }

// Sync makes sure e has a simulated body for spec. A replaced Body component
// rebuilds the body at pose.
func (w *World) Sync(e ecs.Entity, spec *components.Body, pose components.Pose) {
	if en, ok := w.bodies[e]; ok && en.spec == spec {
		en.epoch = w.epoch
		return
	} else if ok {
		w.remove(en)
	}

	var body *cp.Body
	if spec.Static {
		body = cp.NewStaticBody()
	} else {
		mass := spec.Mass
		if mass <= 0 {
			mass = 1
		}
		var moment float64
		if spec.Radius > 0 {
			moment = cp.MomentForCircle(mass, 0, spec.Radius, cp.Vector{})
		} else {
			moment = cp.MomentForBox(mass, spec.Width, spec.Height)
		}
		body = cp.NewBody(mass, moment)
	}
	body.SetPosition(vec(pose.Position))
	body.SetAngle(pose.Rotation)

	var shape *cp.Shape
	if spec.Radius > 0 {
		shape = cp.NewCircle(body, spec.Radius, cp.Vector{})
	} else {
		shape = cp.NewBox(body, spec.Width, spec.Height, 0)
	}
	shape.SetFriction(spec.Friction)
	shape.SetElasticity(spec.Elasticity)

	w.space.AddBody(body)
	w.space.AddShape(shape)
	w.bodies[e] = &entry{spec: spec, body: body, shape: shape, epoch: w.epoch}
}

// SetVelocity drives a dynamic body.
func (w *World) SetVelocity(e ecs.Entity, v mgl64.Vec2) {
	if en, ok := w.bodies[e]; ok && !en.spec.Static {
		en.body.SetVelocityVector(vec(v))
	}
}

// Pose reports where the simulation put e.
func (w *World) Pose(e ecs.Entity) (mgl64.Vec2, float64, bool) {
	en, ok := w.bodies[e]
	if !ok {
		return mgl64.Vec2{}, 0, false
	}
	p := en.body.Position()
	return mgl64.Vec2{p.X, p.Y}, en.body.Angle(), true
}

func (w *World) Step(dt float64) {
	if dt > 0 {
		w.space.Step(dt)
	}
}

// Prune removes bodies whose component disappeared and returns how many went.
func (w *World) Prune() int {
	n := 0
	for e, en := range w.bodies {
		if en.epoch != w.epoch {
			w.remove(en)
			delete(w.bodies, e)
			n++
		}
	}
	return n
}

func (w *World) Len() int { return len(w.bodies) }

// Close removes every body from the space.
func (w *World) Close() {
	for e, en := range w.bodies {
		w.remove(en)
		delete(w.bodies, e)
	}
}

func (w *World) remove(en *entry) {
	w.space.RemoveShape(en.shape)
	w.space.RemoveBody(en.body)
}

func vec(v mgl64.Vec2) cp.Vector { return cp.Vector{X: v.X(), Y: v.Y()} }
