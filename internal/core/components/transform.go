// Package components holds the stock component types of the engine.
//
// Components read by more than one family's system (Transform, Velocity) guard
// their own fields; the rest are written only by the system ticking their
// family.
package components

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/zeusengine/internal/core/ecs"
)

var (
	TransformFamily = ecs.NewFamily("transform")
	VelocityFamily  = ecs.NewFamily("velocity")
)

// Pose is a 2D placement value.
type Pose struct {
	Position mgl64.Vec2
	Rotation float64
	Scale    mgl64.Vec2
}

// Identity is the pose at the origin with unit scale.
func Identity() Pose {
	return Pose{Scale: mgl64.Vec2{1, 1}}
}

// Matrix is the homogeneous 2D transform of the pose.
func (p Pose) Matrix() mgl64.Mat3 {
	return mgl64.Translate2D(p.Position.X(), p.Position.Y()).
		Mul3(mgl64.HomogRotate2D(p.Rotation)).
		Mul3(mgl64.Scale2D(p.Scale.X(), p.Scale.Y()))
}

// Compose places child, expressed relative to p, into p's space.
func (p Pose) Compose(child Pose) Pose {
	scaled := mgl64.Vec2{child.Position.X() * p.Scale.X(), child.Position.Y() * p.Scale.Y()}
	return Pose{
		Position: p.Position.Add(mgl64.Rotate2D(p.Rotation).Mul2x1(scaled)),
		Rotation: p.Rotation + child.Rotation,
		Scale:    mgl64.Vec2{p.Scale.X() * child.Scale.X(), p.Scale.Y() * child.Scale.Y()},
	}
}

// Transform is an entity's local pose plus the world pose derived from its
// parent chain. World falls back to local until a hierarchy pass sets it.
type Transform struct {
	mu       sync.RWMutex
	local    Pose
	world    Pose
	hasWorld bool
}

func NewTransform(x, y float64) *Transform {
	p := Identity()
	p.Position = mgl64.Vec2{x, y}
	return &Transform{local: p}
}

func (*Transform) Family() ecs.Family { return TransformFamily }

func (t *Transform) Local() Pose {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.local
}

func (t *Transform) SetLocal(p Pose) {
	t.mu.Lock()
	t.local = p
	t.mu.Unlock()
}

func (t *Transform) Position() mgl64.Vec2 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.local.Position
}

func (t *Transform) SetPosition(v mgl64.Vec2) {
	t.mu.Lock()
	t.local.Position = v
	t.mu.Unlock()
}

// Move offsets the local position and rotation.
func (t *Transform) Move(d mgl64.Vec2, rotation float64) {
	t.mu.Lock()
	t.local.Position = t.local.Position.Add(d)
	t.local.Rotation = math.Mod(t.local.Rotation+rotation, 2*math.Pi)
	t.mu.Unlock()
}

func (t *Transform) World() Pose {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.hasWorld {
		return t.local
	}
	return t.world
}

func (t *Transform) SetWorld(p Pose) {
	t.mu.Lock()
	t.world, t.hasWorld = p, true
	t.mu.Unlock()
}

// ClearWorld makes World report the local pose again.
func (t *Transform) ClearWorld() {
	t.mu.Lock()
	t.hasWorld = false
	t.mu.Unlock()
}

type transformDoc struct {
	X        float64    `yaml:"x"`
	Y        float64    `yaml:"y"`
	Rotation float64    `yaml:"rotation"`
	Scale    *[]float64 `yaml:"scale"`
}

// UnmarshalYAML reads {x, y, rotation, scale: [sx, sy]}; scale defaults to 1.
func (t *Transform) UnmarshalYAML(node *yaml.Node) error {
	var doc transformDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	p := Identity()
	p.Position = mgl64.Vec2{doc.X, doc.Y}
	p.Rotation = doc.Rotation
	if doc.Scale != nil {
		switch s := *doc.Scale; len(s) {
		case 1:
			p.Scale = mgl64.Vec2{s[0], s[0]}
		case 2:
			p.Scale = mgl64.Vec2{s[0], s[1]}
		}
	}
	t.SetLocal(p)
	return nil
}

// Velocity is linear units/second plus angular radians/second. It is written
// by controllers and read by movement, so it locks like Transform.
type Velocity struct {
	mu      sync.RWMutex
	linear  mgl64.Vec2
	angular float64
}

func NewVelocity(x, y float64) *Velocity {
	return &Velocity{linear: mgl64.Vec2{x, y}}
}

func (*Velocity) Family() ecs.Family { return VelocityFamily }

func (v *Velocity) Get() (mgl64.Vec2, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.linear, v.angular
}

func (v *Velocity) SetLinear(l mgl64.Vec2) {
	v.mu.Lock()
	v.linear = l
	v.mu.Unlock()
}

func (v *Velocity) SetAngular(a float64) {
	v.mu.Lock()
	v.angular = a
	v.mu.Unlock()
}

func (v *Velocity) UnmarshalYAML(node *yaml.Node) error {
	var doc struct {
		X       float64 `yaml:"x"`
		Y       float64 `yaml:"y"`
		Angular float64 `yaml:"angular"`
	}
	if err := node.Decode(&doc); err != nil {
		return err
	}
	v.mu.Lock()
	v.linear, v.angular = mgl64.Vec2{doc.X, doc.Y}, doc.Angular
	v.mu.Unlock()
	return nil
}
