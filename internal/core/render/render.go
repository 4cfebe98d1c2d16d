// Package render is the boundary to the renderer collaborator. Render systems
// produce one batch of items per tick; the host hands the latest batch to a
// Renderer once per frame.
package render

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zeusync/zeusengine/internal/core/components"
	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
)

// Item is one drawable entity as seen at the end of a render tick.
type Item struct {
	Entity    ecs.Entity
	Component ecs.Component
	Transform components.Pose
	Layer     int
}

// Batch is an immutable, layer-ordered list of items.
type Batch struct {
	Tick  uint64
	Items []Item
}

// Renderer draws batches.
type Renderer interface {
	Render(b Batch) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(b Batch) error

func (f RendererFunc) Render(b Batch) error { return f(b) }

// Queue hands the newest batch from a render system to the frame loop.
// Older batches that were never drawn are dropped.
type Queue struct {
	latest atomic.Pointer[Batch]
}

func NewQueue() *Queue { return &Queue{} }

// Submit sorts items by layer, keeping insertion order inside a layer.
func (q *Queue) Submit(tick uint64, items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Layer < items[j].Layer })
	q.latest.Store(&Batch{Tick: tick, Items: items})
}

// Latest returns the newest batch, or an empty one.
func (q *Queue) Latest() Batch {
	if b := q.latest.Load(); b != nil {
		return *b
	}
	return Batch{}
}

// Reset drops the pending batch, e.g. when the state it came from is gone.
func (q *Queue) Reset() { q.latest.Store(nil) }

// Recorder is a Renderer that keeps the last batch and counts frames. Headless
// hosts use it in place of a window.
type Recorder struct {
	mu     sync.Mutex
	last   Batch
	frames uint64
	logger log.Log
}

func NewRecorder(logger log.Log) *Recorder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Recorder{logger: logger.Named("render")}
}

func (r *Recorder) Render(b Batch) error {
	r.mu.Lock()
	r.last = b
	r.frames++
	frames := r.frames
	r.mu.Unlock()
	r.logger.Debug("frame", log.Uint64("frame", frames), log.Uint64("tick", b.Tick), log.Int("items", len(b.Items)))
	return nil
}

func (r *Recorder) Last() Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Recorder) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}
