package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/zeusync/zeusengine/internal/config"
	"github.com/zeusync/zeusengine/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to the engine YAML config")
	scenePath := flag.String("scene", "scenes/demo.yaml", "scene file, overrides scene.path")
	width := flag.Int("width", 640, "window width")
	height := flag.Int("height", 480, "window height")
	flag.Parse()

	if err := run(*configPath, *scenePath, *width, *height); err != nil {
		fmt.Fprintln(os.Stderr, "viewer:", err)
		os.Exit(1)
	}
}

func run(configPath, scenePath string, width, height int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if scenePath != "" {
		cfg.Scene.Path = scenePath
	}

	v := newViewer(width, height)
	eng, err := injector.InitializeEngine(cfg, v)
	if err != nil {
		return err
	}
	v.attach(eng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v.ctx = ctx

	if err := eng.Boot(ctx); err != nil {
		_ = eng.Close(context.Background())
		return err
	}

	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle("zeusengine - " + eng.Director.Current().Name())
	ebiten.SetTPS(cfg.FrameRate)
	runErr := ebiten.RunGame(v)

	cancel()
	if err := eng.Close(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
