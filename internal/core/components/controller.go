package components

import (
	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/input"
	"github.com/zeusync/zeusengine/internal/core/scene"
)

var ControllerFamily = ecs.NewFamily("controller")

// Controller steers the entity's Velocity from keyboard state.
type Controller struct {
	Speed float64   `yaml:"speed"`
	Up    input.Key `yaml:"up"`
	Down  input.Key `yaml:"down"`
	Left  input.Key `yaml:"left"`
	Right input.Key `yaml:"right"`
}

func (*Controller) Family() ecs.Family { return ControllerFamily }

// Init fills unset keys with the arrow keys.
func (c *Controller) Init(*scene.BuildContext) error {
	if c.Up == "" {
		c.Up = input.KeyUp
	}
	if c.Down == "" {
		c.Down = input.KeyDown
	}
	if c.Left == "" {
		c.Left = input.KeyLeft
	}
	if c.Right == "" {
		c.Right = input.KeyRight
	}
	return nil
}
