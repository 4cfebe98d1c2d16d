package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/zeusync/zeusengine/internal/core/components"
	"github.com/zeusync/zeusengine/internal/core/input"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/render"
	"github.com/zeusync/zeusengine/internal/core/state"
	"github.com/zeusync/zeusengine/internal/injector"
)

var background = color.RGBA{R: 0x18, G: 0x1c, B: 0x24, A: 0xff}

var keymap = map[input.Key]ebiten.Key{
	input.KeyUp:     ebiten.KeyArrowUp,
	input.KeyDown:   ebiten.KeyArrowDown,
	input.KeyLeft:   ebiten.KeyArrowLeft,
	input.KeyRight:  ebiten.KeyArrowRight,
	input.KeySpace:  ebiten.KeySpace,
	input.KeyEscape: ebiten.KeyEscape,
	input.KeyW:      ebiten.KeyW,
	input.KeyA:      ebiten.KeyA,
	input.KeyS:      ebiten.KeyS,
	input.KeyD:      ebiten.KeyD,
}

// viewer is the ebiten game: Update drives one director frame and Draw paints
// the batch that frame rendered. Both run on the ebiten game goroutine.
type viewer struct {
	ctx    context.Context
	eng    *injector.Engine
	logger log.Log

	width, height int
	batch         render.Batch
	pixel         *ebiten.Image
	colors        map[string]color.RGBA
}

func newViewer(width, height int) *viewer {
	pixel := ebiten.NewImage(1, 1)
	pixel.Fill(color.White)
	return &viewer{
		ctx:    context.Background(),
		logger: log.NewNop(),
		width:  width,
		height: height,
		pixel:  pixel,
		colors: make(map[string]color.RGBA),
	}
}

func (v *viewer) attach(eng *injector.Engine) {
	v.eng = eng
	v.logger = eng.Logger.Named("viewer")
}

// Render keeps the batch for the next Draw.
func (v *viewer) Render(b render.Batch) error {
	v.batch = b
	return nil
}

func (v *viewer) Update() error {
	if v.ctx.Err() != nil || ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	held := make([]input.Key, 0, len(keymap))
	for k, ek := range keymap {
		if ebiten.IsKeyPressed(ek) {
			held = append(held, k)
		}
	}
	v.eng.Input.Replace(held...)

	if err := v.eng.Director.Frame(v.ctx); err != nil && !errors.Is(err, state.ErrNoState) {
		v.logger.Warn("frame failed", log.Error(err))
	}
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	for _, it := range v.batch.Items {
		switch c := it.Component.(type) {
		case *components.Shape:
			v.drawShape(screen, it.Transform, c)
		case *components.Sprite:
			v.drawSprite(screen, it.Transform, c)
		}
	}

	status := fmt.Sprintf("tick %d  items %d  tps %.0f", v.batch.Tick, len(v.batch.Items), ebiten.ActualTPS())
	if cur := v.eng.Director.Current(); cur != nil {
		status = cur.Name() + "  " + status
	}
	ebitenutil.DebugPrintAt(screen, status, 8, 8)
}

func (v *viewer) Layout(_, _ int) (int, int) {
	return v.width, v.height
}

func (v *viewer) drawShape(screen *ebiten.Image, pose components.Pose, s *components.Shape) {
	col := v.color(s.Color)
	if s.Kind == components.ShapeCircle {
		r := s.Radius * math.Max(math.Abs(pose.Scale.X()), math.Abs(pose.Scale.Y()))
		vector.DrawFilledCircle(screen, float32(pose.Position.X()), float32(pose.Position.Y()), float32(r), col, true)
		return
	}
	w, h := s.Size()
	v.fillRect(screen, pose, w, h, col)
}

// drawSprite paints the sprite's bounds and image name; images are not loaded.
func (v *viewer) drawSprite(screen *ebiten.Image, pose components.Pose, s *components.Sprite) {
	v.fillRect(screen, pose, s.Width, s.Height, v.color(s.Color))
	x := pose.Position.X() - s.Width*pose.Scale.X()/2
	y := pose.Position.Y() + s.Height*pose.Scale.Y()/2
	ebitenutil.DebugPrintAt(screen, s.Image, int(x), int(y))
}

func (v *viewer) fillRect(screen *ebiten.Image, pose components.Pose, w, h float64, col color.RGBA) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(w, h)
	op.GeoM.Translate(-w/2, -h/2)
	op.GeoM.Scale(pose.Scale.X(), pose.Scale.Y())
	op.GeoM.Rotate(pose.Rotation)
	op.GeoM.Translate(pose.Position.X(), pose.Position.Y())
	op.ColorScale.ScaleWithColor(col)
	screen.DrawImage(v.pixel, op)
}

func (v *viewer) color(name string) color.RGBA {
	if c, ok := v.colors[name]; ok {
		return c
	}
	c, err := render.ParseColor(name)
	if err != nil {
		v.logger.Warn("bad color", log.String("color", name), log.Error(err))
	}
	v.colors[name] = c
	return c
}
