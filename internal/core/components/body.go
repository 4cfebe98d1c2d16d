package components

import "github.com/zeusync/zeusengine/internal/core/ecs"

var BodyFamily = ecs.NewFamily("body")

// Body describes a rigid body simulated by the physics system. A positive
// Radius makes a circle, otherwise a Width x Height box.
type Body struct {
	Mass       float64 `yaml:"mass"`
	Radius     float64 `yaml:"radius"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Friction   float64 `yaml:"friction"`
	Elasticity float64 `yaml:"elasticity"`
	Static     bool    `yaml:"static"`
	// Driven bodies take their velocity from the entity's Velocity each tick.
	Driven bool `yaml:"driven"`
}

func (*Body) Family() ecs.Family { return BodyFamily }
