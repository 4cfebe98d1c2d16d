package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/zeusengine/internal/core/components"
	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/input"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/render"
	"github.com/zeusync/zeusengine/internal/core/scene"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

func tick(store *ecs.Store, delta time.Duration, n uint64) *systems.Tick {
	return &systems.Tick{
		Context: context.Background(),
		Store:   store,
		Delta:   delta,
		Number:  n,
		Time:    time.Now(),
		Logger:  log.NewNop(),
	}
}

// runOnce drives one tick of sys the way a runner does.
func runOnce(t *testing.T, sys systems.System, tk *systems.Tick) {
	t.Helper()
	if b, ok := sys.(systems.BeforeTicker); ok {
		require.NoError(t, b.BeforeTick(tk))
	}
	for _, en := range tk.Store.All(sys.Family()) {
		require.NoError(t, sys.Process(tk, en.Entity, en.Component))
	}
	if a, ok := sys.(systems.AfterTicker); ok {
		require.NoError(t, a.AfterTick(tk))
	}
}

func load(t *testing.T, deps Deps, src string) (*ecs.Store, *scene.Report) {
	t.Helper()
	reg := scene.NewRegistry()
	Register(reg, deps)
	doc, err := scene.Parse([]byte(src))
	require.NoError(t, err)
	store := ecs.NewStore(nil)
	report := scene.NewLoader(reg).Load(context.Background(), store, doc)
	require.Empty(t, report.Failures)
	return store, report
}

func TestMovementIntegratesVelocity(t *testing.T) {
	store, report := load(t, Deps{}, `
- transform: {x: 0, y: 0}
  velocity: {x: 10, angular: 1}
- transform: {x: 0, y: 0}
  velocity: {x: 10}
  body: {radius: 1}
`)
	runOnce(t, &Movement{}, tick(store, 500*time.Millisecond, 1))

	moving, _ := report.Entities.At(0)
	tr, _ := ecs.Get[*components.Transform](moving, components.TransformFamily)
	assert.Equal(t, mgl64.Vec2{5, 0}, tr.Position())
	assert.InDelta(t, 0.5, tr.Local().Rotation, 1e-9)

	physical, _ := report.Entities.At(1)
	tr, _ = ecs.Get[*components.Transform](physical, components.TransformFamily)
	assert.Equal(t, mgl64.Vec2{0, 0}, tr.Position(), "bodies move through physics")
}

func TestControllerSteersVelocity(t *testing.T) {
	keys := input.NewSnapshot()
	store, report := load(t, Deps{Input: keys}, `
- controller: {speed: 2}
  velocity: {}
`)
	e, _ := report.Entities.At(0)
	vel, _ := ecs.Get[*components.Velocity](e, components.VelocityFamily)
	sys := &Controller{Input: keys}

	keys.Replace(input.KeyRight, input.KeyDown)
	runOnce(t, sys, tick(store, 0, 1))
	linear, _ := vel.Get()
	assert.InDelta(t, 2, linear.Len(), 1e-9)
	assert.Greater(t, linear.X(), 0.0)
	assert.Greater(t, linear.Y(), 0.0)

	keys.Replace()
	runOnce(t, sys, tick(store, 0, 2))
	linear, _ = vel.Get()
	assert.Equal(t, mgl64.Vec2{}, linear)
}

func TestLifetimeDestroysEntity(t *testing.T) {
	store, report := load(t, Deps{}, `
- lifetime: 30ms
  transform: {}
- lifetime: {seconds: 10}
`)
	sys := &Lifetime{}
	runOnce(t, sys, tick(store, 0, 1))
	runOnce(t, sys, tick(store, 40*time.Millisecond, 2))

	doomed, _ := report.Entities.At(0)
	assert.True(t, store.Marked(doomed, components.TransformFamily))
	assert.True(t, store.Has(doomed, components.TransformFamily), "removal waits for the reap")

	assert.Equal(t, 2, store.Reap())
	assert.Empty(t, store.Components(doomed))

	survivor, _ := report.Entities.At(1)
	assert.True(t, store.Has(survivor, components.LifetimeFamily))
}

func TestHierarchyComposesParentPose(t *testing.T) {
	store, report := load(t, Deps{}, `
- transform: {x: 1, y: 0}
  parent: 1
- transform: {x: 10, y: 10}
`)
	runOnce(t, &Hierarchy{}, tick(store, 0, 1))

	child, _ := report.Entities.At(0)
	tr, _ := ecs.Get[*components.Transform](child, components.TransformFamily)
	assert.Equal(t, mgl64.Vec2{11, 10}, tr.World().Position)
	assert.Equal(t, mgl64.Vec2{1, 0}, tr.Local().Position)

	parent, _ := report.Entities.At(1)
	parent.MarkForRemoval(components.TransformFamily)
	runOnce(t, &Hierarchy{}, tick(store, 0, 2))
	assert.Equal(t, mgl64.Vec2{1, 0}, tr.World().Position)
}

func TestRenderSubmitsVisibleItems(t *testing.T) {
	q := render.NewQueue()
	store, report := load(t, Deps{Queue: q}, `
- sprite: {image: hero.png, layer: 2}
  transform: {x: 5}
- shape: {kind: circle, radius: 3, layer: 1}
- shape: {hidden: true}
`)
	runOnce(t, &Render{Queue: q}, tick(store, 0, 7))

	b := q.Latest()
	assert.EqualValues(t, 7, b.Tick)
	require.Len(t, b.Items, 2)

	shapeEntity, _ := report.Entities.At(1)
	assert.Equal(t, shapeEntity, b.Items[0].Entity)
	assert.IsType(t, &components.Shape{}, b.Items[0].Component)
	assert.Equal(t, mgl64.Vec2{5, 0}, b.Items[1].Transform.Position)
}

func TestScriptSystemMovesAndDestroys(t *testing.T) {
	store, report := load(t, Deps{}, `
- transform: {x: 1}
  script: "x = x + dt * 4"
- script: {source: "destroy = entity > 0"}
`)
	runOnce(t, &Script{}, tick(store, 250*time.Millisecond, 1))

	mover, _ := report.Entities.At(0)
	tr, _ := ecs.Get[*components.Transform](mover, components.TransformFamily)
	assert.InDelta(t, 2, tr.Position().X(), 1e-9)

	doomed, _ := report.Entities.At(1)
	assert.True(t, store.Marked(doomed, components.ScriptFamily))
}

func TestScriptSystemFaultsOnRuntimeError(t *testing.T) {
	store, _ := load(t, Deps{}, `
- script: 'x = x + "a"'
`)
	entries := store.All(components.ScriptFamily)
	require.Len(t, entries, 1)
	err := (&Script{}).Process(tick(store, 0, 1), entries[0].Entity, entries[0].Component)
	assert.Error(t, err)
}

func TestPhysicsSystemFollowsBodies(t *testing.T) {
	store, report := load(t, Deps{}, `
- transform: {x: 0, y: 0}
  body: {mass: 1, radius: 1}
`)
	sys := &Physics{Gravity: mgl64.Vec2{0, 50}}
	require.NoError(t, sys.Setup(store))
	defer sys.Teardown()

	for i := uint64(1); i <= 5; i++ {
		runOnce(t, sys, tick(store, 20*time.Millisecond, i))
	}
	assert.Equal(t, 1, sys.Bodies())

	e, _ := report.Entities.At(0)
	tr, _ := ecs.Get[*components.Transform](e, components.TransformFamily)
	assert.Greater(t, tr.Position().Y(), 0.0)

	e.MarkForRemoval(components.BodyFamily)
	store.Reap()
	runOnce(t, sys, tick(store, 20*time.Millisecond, 6))
	assert.Zero(t, sys.Bodies())
}

func TestMovementUnderRunner(t *testing.T) {
	store, report := load(t, Deps{}, `
- transform: {}
  velocity: {x: 100}
`)
	r, err := systems.NewRunner(store, &Movement{Schedule{Every: 2 * time.Millisecond}})
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	e, _ := report.Entities.At(0)
	tr, _ := ecs.Get[*components.Transform](e, components.TransformFamily)
	require.Eventually(t, func() bool { return tr.Position().X() > 0 }, time.Second, 5*time.Millisecond)
}

func TestRegistryAndCatalog(t *testing.T) {
	reg := scene.NewRegistry()
	Register(reg, Deps{})
	assert.Equal(t, []string{"body", "controller", "lifetime", "parent", "script", "shape", "sprite", "transform", "velocity"}, reg.Components())
	assert.Equal(t, []string{"controller", "hierarchy", "lifetime", "movement", "physics", "render", "script"}, reg.Systems())

	sys, err := reg.NewSystem("physics", scene.Params{"gravity": []any{0, 9.8}})
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec2{0, 9.8}, sys.(*Physics).Gravity)
	_, err = reg.NewSystem("physics", scene.Params{"gravity": []any{1}})
	assert.ErrorIs(t, err, scene.ErrBadParam)

	cat := scene.NewCatalog()
	names := Expose(cat)
	require.Len(t, names, 9)

	doc, err := scene.Parse([]byte("- " + names[0] + ": {x: 4}\n  " + names[7] + ": {radius: 1}\n"))
	require.NoError(t, err)
	store := ecs.NewStore(nil)
	report := scene.NewLoader(reg, scene.WithCatalog(cat), scene.WithPolicy(scene.PolicyDynamic)).
		Load(context.Background(), store, doc)
	require.Empty(t, report.Failures)

	e, _ := report.Entities.At(0)
	tr, ok := ecs.Get[*components.Transform](e, components.TransformFamily)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec2{4, 0}, tr.Position())
	assert.True(t, store.Has(e, components.BodyFamily))
}
