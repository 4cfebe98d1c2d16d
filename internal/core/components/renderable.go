package components

import "github.com/zeusync/zeusengine/internal/core/ecs"

// RenderableFamily is shared by every drawable component: an entity shows as
// one sprite or one shape, never both.
var RenderableFamily = ecs.NewFamily("renderable")

// Renderable is embedded by drawable components.
type Renderable struct {
	Layer  int    `yaml:"layer"`
	Color  string `yaml:"color"`
	Hidden bool   `yaml:"hidden"`
}

func (Renderable) Family() ecs.Family { return RenderableFamily }

// Drawable gives render systems access to the embedded Renderable.
type Drawable interface {
	Base() *Renderable
}

func (r *Renderable) Base() *Renderable { return r }

type Sprite struct {
	Renderable `yaml:",inline"`
	Image      string  `yaml:"image"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
}

type ShapeKind string

const (
	ShapeRect   ShapeKind = "rect"
	ShapeCircle ShapeKind = "circle"
)

type Shape struct {
	Renderable `yaml:",inline"`
	Kind       ShapeKind `yaml:"kind"`
	Width      float64   `yaml:"width"`
	Height     float64   `yaml:"height"`
	Radius     float64   `yaml:"radius"`
}

// Size returns the bounding box of the shape.
func (s *Shape) Size() (w, h float64) {
	if s.Kind == ShapeCircle {
		return 2 * s.Radius, 2 * s.Radius
	}
	return s.Width, s.Height
}
