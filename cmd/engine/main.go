package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/zeusengine/internal/config"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/state"
	"github.com/zeusync/zeusengine/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to the engine YAML config")
	scenePath := flag.String("scene", "", "scene file, overrides scene.path")
	flag.Parse()

	if err := run(*configPath, *scenePath); err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}
}

func run(configPath, scenePath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if scenePath != "" {
		cfg.Scene.Path = scenePath
	}

	eng, err := injector.InitializeHeadless(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Boot(ctx); err != nil {
		_ = eng.Close(context.Background())
		return err
	}

	ticker := time.NewTicker(cfg.FrameInterval())
	defer ticker.Stop()
	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-ticker.C:
			if err := eng.Director.Frame(ctx); err != nil && !errors.Is(err, state.ErrNoState) {
				eng.Logger.Warn("frame failed", log.Error(err))
			}
		}
	}

	eng.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return eng.Close(shutdownCtx)
}
