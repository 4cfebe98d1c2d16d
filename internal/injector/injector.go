//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/zeusengine/internal/config"
	"github.com/zeusync/zeusengine/internal/core/render"
)

// InitializeEngine wires an Engine around the host's renderer.
func InitializeEngine(cfg config.Config, renderer render.Renderer) (*Engine, error) {
	wire.Build(EngineSet)
	return nil, nil
}

// InitializeHeadless wires an Engine that records frames without drawing.
func InitializeHeadless(cfg config.Config) (*Engine, error) {
	wire.Build(HeadlessSet)
	return nil, nil
}
