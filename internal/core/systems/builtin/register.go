package builtin

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/zeusengine/internal/core/components"
	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/input"
	"github.com/zeusync/zeusengine/internal/core/render"
	"github.com/zeusync/zeusengine/internal/core/scene"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

// Deps are the collaborators stock systems are built with.
type Deps struct {
	Input   input.Source
	Queue   *render.Queue
	Gravity mgl64.Vec2
}

// Register adds every stock component and system to reg under short identifiers.
func Register(reg *scene.Registry, deps Deps) {
	if deps.Input == nil {
		deps.Input = input.None
	}

	reg.RegisterComponent("transform", scene.Decoded[components.Transform]())
	reg.RegisterComponent("velocity", scene.Decoded[components.Velocity]())
	reg.RegisterComponent("parent", newParent)
	reg.RegisterComponent("sprite", scene.Decoded[components.Sprite]())
	reg.RegisterComponent("shape", scene.Decoded[components.Shape]())
	reg.RegisterComponent("lifetime", newLifetime)
	reg.RegisterComponent("script", newScript)
	reg.RegisterComponent("body", scene.Decoded[components.Body]())
	reg.RegisterComponent("controller", scene.Decoded[components.Controller]())

	reg.RegisterSystem("movement", func(scene.Params) (systems.System, error) {
		return &Movement{}, nil
	})
	reg.RegisterSystem("controller", func(scene.Params) (systems.System, error) {
		return &Controller{Input: deps.Input}, nil
	})
	reg.RegisterSystem("hierarchy", func(scene.Params) (systems.System, error) {
		return &Hierarchy{}, nil
	})
	reg.RegisterSystem("lifetime", func(scene.Params) (systems.System, error) {
		return &Lifetime{}, nil
	})
	reg.RegisterSystem("script", func(scene.Params) (systems.System, error) {
		return &Script{}, nil
	})
	reg.RegisterSystem("render", func(scene.Params) (systems.System, error) {
		return &Render{Queue: deps.Queue}, nil
	})
	reg.RegisterSystem("physics", func(p scene.Params) (systems.System, error) {
		gravity := deps.Gravity
		if p.Has("gravity") {
			g, err := p.Floats("gravity")
			if err != nil {
				return nil, err
			}
			if len(g) != 2 {
				return nil, fmt.Errorf("%w: gravity wants [x, y]", scene.ErrBadParam)
			}
			gravity = mgl64.Vec2{g[0], g[1]}
		}
		return &Physics{Gravity: gravity}, nil
	})
}

// Expose makes the stock component types loadable by qualified name under
// the dynamic policy.
func Expose(cat *scene.Catalog) []string {
	return []string{
		scene.Expose[components.Transform](cat),
		scene.Expose[components.Velocity](cat),
		scene.Expose[components.Parent](cat),
		scene.Expose[components.Sprite](cat),
		scene.Expose[components.Shape](cat),
		scene.Expose[components.Lifetime](cat),
		scene.Expose[components.Script](cat),
		scene.Expose[components.Body](cat),
		scene.Expose[components.Controller](cat),
	}
}

// newParent accepts "parent: 2" as well as "parent: {index: 2}".
func newParent(ctx *scene.BuildContext, p scene.Params) (ecs.Component, error) {
	key := "index"
	if p.Has("value") {
		key = "value"
	}
	i, err := p.RequireInt(key)
	if err != nil {
		return nil, err
	}
	parent := &components.Parent{Index: i}
	if err := parent.Init(ctx); err != nil {
		return nil, err
	}
	return parent, nil
}

// newLifetime accepts "lifetime: 2s", {remaining: 2s} or {seconds: 1.5}.
func newLifetime(_ *scene.BuildContext, p scene.Params) (ecs.Component, error) {
	var d time.Duration
	switch {
	case p.Has("value"):
		s, err := p.RequireString("value")
		if err != nil {
			return nil, err
		}
		if d, err = time.ParseDuration(s); err != nil {
			return nil, fmt.Errorf("%w: %v", scene.ErrBadParam, err)
		}
	case p.Has("seconds"):
		d = time.Duration(p.Float("seconds", 0) * float64(time.Second))
	default:
		l := &components.Lifetime{}
		if err := p.Decode(l); err != nil {
			return nil, err
		}
		d = l.Remaining
	}
	if d <= 0 {
		return nil, fmt.Errorf("%w: lifetime must be positive", scene.ErrBadParam)
	}
	return &components.Lifetime{Remaining: d}, nil
}

// newScript accepts inline source as a bare string.
func newScript(ctx *scene.BuildContext, p scene.Params) (ecs.Component, error) {
	s := &components.Script{}
	if p.Has("value") {
		src, err := p.RequireString("value")
		if err != nil {
			return nil, err
		}
		s.Source = src
	} else if err := p.Decode(s); err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
