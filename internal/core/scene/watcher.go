package scene

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zeusync/zeusengine/internal/core/observability/log"
)

// DefaultDebounce collapses the burst of events editors emit for one save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to one scene file. The parent directory is watched
// so that editors replacing the file by rename are still seen.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   log.Log
	once     sync.Once
}

func NewWatcher(path string, logger log.Log) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Watcher{
		fs:       fw,
		path:     abs,
		debounce: DefaultDebounce,
		logger:   logger.Named("scene.watch"),
	}, nil
}

func (w *Watcher) Path() string { return w.path }

// SetDebounce changes the settle time; call it before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Run calls onChange on the watcher goroutine once writes to the file have
// been quiet for the debounce interval, until ctx is done or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	defer w.Close()

	settle := time.NewTimer(w.debounce)
	if !settle.Stop() {
		<-settle.C
	}
	defer settle.Stop()
	var op fsnotify.Op

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			op |= ev.Op
			settle.Reset(w.debounce)
		case <-settle.C:
			w.logger.Info("scene file changed", log.String("path", w.path), log.String("op", op.String()))
			op = 0
			onChange(w.path)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("scene watcher error", log.Error(err))
		}
	}
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() { err = w.fs.Close() })
	return err
}
