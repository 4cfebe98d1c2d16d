package injector

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/wire"

	"github.com/zeusync/zeusengine/internal/config"
	"github.com/zeusync/zeusengine/internal/core/events"
	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/input"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/render"
	"github.com/zeusync/zeusengine/internal/core/scene"
	"github.com/zeusync/zeusengine/internal/core/state"
	"github.com/zeusync/zeusengine/internal/core/systems/builtin"
	"github.com/zeusync/zeusengine/internal/server"
)

// Engine is everything a host needs to drive the engine.
type Engine struct {
	Config    config.Config
	Logger    *log.Logger
	Bus       bus.EventBus
	Input     *input.Snapshot
	Queue     *render.Queue
	Loader    *scene.Loader
	Director  *state.Director
	Inspector *server.Server
	Renderer  render.Renderer

	watcher *scene.Watcher `wire:"-"`
}

// HeadlessSet draws into a render.Recorder instead of a window.
var HeadlessSet = wire.NewSet(
	EngineSet,
	ProvideRecorder,
	wire.Bind(new(render.Renderer), new(*render.Recorder)),
)

var EngineSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideInput,
	ProvideQueue,
	ProvideRegistry,
	ProvideCatalog,
	ProvideLoader,
	ProvideDirector,
	ProvideInspector,
	wire.Struct(new(Engine), "*"),
)

func ProvideLogger(cfg config.Config) (*log.Logger, error) {
	return log.NewWithOptions(log.Options{Level: cfg.LogLevel(), Encoding: cfg.Log.Encoding})
}

// ProvideBus builds the engine bus and logs its deliveries.
func ProvideBus(logger *log.Logger) bus.EventBus {
	b := bus.New()
	b.AddObserver(events.NewLogObserver(logger))
	return b
}

func ProvideInput() *input.Snapshot { return input.NewSnapshot() }

func ProvideQueue() *render.Queue { return render.NewQueue() }

func ProvideRecorder(logger *log.Logger) *render.Recorder { return render.NewRecorder(logger) }

// ProvideRegistry registers the stock components and systems.
func ProvideRegistry(cfg config.Config, in *input.Snapshot, q *render.Queue) *scene.Registry {
	reg := scene.NewRegistry()
	builtin.Register(reg, builtin.Deps{
		Input:   in,
		Queue:   q,
		Gravity: mgl64.Vec2{cfg.Gravity[0], cfg.Gravity[1]},
	})
	return reg
}

func ProvideCatalog() *scene.Catalog {
	cat := scene.NewCatalog()
	builtin.Expose(cat)
	return cat
}

func ProvideLoader(cfg config.Config, reg *scene.Registry, cat *scene.Catalog, logger *log.Logger, b bus.EventBus) *scene.Loader {
	return scene.NewLoader(reg,
		scene.WithCatalog(cat),
		scene.WithPolicy(cfg.LoadPolicy()),
		scene.WithLogger(logger),
		scene.WithBus(b),
	)
}

func ProvideDirector(cfg config.Config, loader *scene.Loader, r render.Renderer, q *render.Queue, logger *log.Logger, b bus.EventBus) *state.Director {
	return state.NewDirector(loader,
		state.WithRenderer(r, q),
		state.WithDirectorLogger(logger),
		state.WithDirectorBus(b),
		state.WithSystemPeriod(cfg.SystemPeriod),
	)
}

func ProvideInspector(cfg config.Config, d *state.Director, b bus.EventBus, logger *log.Logger) *server.Server {
	return server.NewServer(cfg.ServerConfig(), d, b, logger)
}
