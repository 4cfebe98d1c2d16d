package components

import (
	"fmt"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/scene"
)

var ParentFamily = ecs.NewFamily("parent")

// Parent attaches an entity to another one of the same scene. In a document the
// parent is given by declaration index and may be declared later.
type Parent struct {
	Index  int        `yaml:"index"`
	Entity ecs.Entity `yaml:"-"`
}

func (*Parent) Family() ecs.Family { return ParentFamily }

// Init resolves Index against the entities of the load.
func (p *Parent) Init(ctx *scene.BuildContext) error {
	e, err := ctx.Entities.At(p.Index)
	if err != nil {
		return err
	}
	if e == ctx.Entity {
		return fmt.Errorf("%w: entity %d is its own parent", scene.ErrBadParam, p.Index)
	}
	p.Entity = e
	return nil
}
