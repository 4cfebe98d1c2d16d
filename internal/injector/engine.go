package injector

import (
	"context"
	"errors"

	"github.com/zeusync/zeusengine/internal/core/events"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/scene"
	"github.com/zeusync/zeusengine/internal/core/state"
	"github.com/zeusync/zeusengine/internal/server"
)

// Descriptor is the state descriptor for the configured scene.
func (e *Engine) Descriptor() state.Descriptor {
	desc := state.Descriptor{Name: e.Config.Scene.Name}
	if e.Config.Scene.Path != "" {
		desc.Source = scene.Source{Path: e.Config.Scene.Path}
	}
	return desc
}

// LoadScene makes the configured scene the current state.
func (e *Engine) LoadScene(ctx context.Context) (*state.State, error) {
	return e.Director.LoadState(ctx, e.Descriptor())
}

// Boot loads the configured scene and starts the inspector and the scene
// watcher when the configuration enables them. Both stop with ctx or Close.
func (e *Engine) Boot(ctx context.Context) error {
	if _, err := e.LoadScene(ctx); err != nil {
		return err
	}
	if e.Config.Inspector.Enabled {
		if err := e.Inspector.Start(ctx); err != nil {
			return err
		}
	}
	if e.Config.Scene.Watch {
		w, err := scene.NewWatcher(e.Config.Scene.Path, e.Logger)
		if err != nil {
			return err
		}
		w.SetDebounce(e.Config.Scene.Debounce)
		e.watcher = w
		go func() {
			if err := w.Run(ctx, func(path string) { e.reload(ctx, path) }); err != nil {
				e.Logger.Warn("scene watcher stopped", log.Error(err))
			}
		}()
	}
	return nil
}

func (e *Engine) reload(ctx context.Context, path string) {
	_ = events.Publish(e.Bus, events.SceneReloadRequested, "watcher", events.Reload{Path: path})
	if _, err := e.LoadScene(ctx); err != nil {
		e.Logger.Error("scene reload failed", log.String("path", path), log.Error(err))
	}
}

// Close stops the watcher, the inspector and the current state.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if e.watcher != nil {
		_ = e.watcher.Close()
	}
	if e.Config.Inspector.Enabled {
		if err := e.Inspector.Stop(ctx); err != nil && !errors.Is(err, server.ErrServerNotRunning) {
			errs = append(errs, err)
		}
	}
	errs = append(errs, e.Director.Shutdown(ctx))
	_ = e.Logger.Sync()
	return errors.Join(errs...)
}
