package scene

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/events"
	"github.com/zeusync/zeusengine/internal/core/events/bus"
	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/systems"
)

// Policy selects how component identifiers are resolved.
type Policy int

const (
	// PolicyRegistry resolves identifiers through the Registry only.
	PolicyRegistry Policy = iota
	// PolicyDynamic also accepts fully qualified type names exposed in the Catalog.
	PolicyDynamic
)

func (p Policy) String() string {
	switch p {
	case PolicyRegistry:
		return "registry"
	case PolicyDynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a config value onto a Policy; empty means registry.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "registry":
		return PolicyRegistry, nil
	case "dynamic":
		return PolicyDynamic, nil
	default:
		return PolicyRegistry, fmt.Errorf("unknown load policy %q", s)
	}
}

// Entities is the ordered list of entities created by one load. It is fully
// populated before any component is constructed.
type Entities struct {
	list []ecs.Entity
}

// At returns the entity declared at index i.
func (l *Entities) At(i int) (ecs.Entity, error) {
	if l == nil || i < 0 || i >= len(l.list) {
		return ecs.Entity{}, fmt.Errorf("%w: %d", ErrEntityIndex, i)
	}
	return l.list[i], nil
}

func (l *Entities) Len() int {
	if l == nil {
		return 0
	}
	return len(l.list)
}

// All returns a copy of the list.
func (l *Entities) All() []ecs.Entity {
	if l == nil {
		return nil
	}
	return append([]ecs.Entity(nil), l.list...)
}

// BuildContext is handed to component factories.
type BuildContext struct {
	Context  context.Context
	Scene    string
	Store    *ecs.Store
	Entity   ecs.Entity
	Index    int
	Entities *Entities
	Logger   log.Log
}

// Ref resolves an entity reference stored under key in params as a declaration index.
func (c *BuildContext) Ref(params Params, key string) (ecs.Entity, error) {
	i, err := params.RequireInt(key)
	if err != nil {
		return ecs.Entity{}, err
	}
	return c.Entities.At(i)
}

// Failure records one component that was skipped.
type Failure struct {
	EntityIndex int
	Identifier  string
	Err         error
}

func (f Failure) Error() string {
	return fmt.Sprintf("entity %d: component %q: %v", f.EntityIndex, f.Identifier, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Report summarizes a load.
type Report struct {
	Scene      string
	Entities   *Entities
	Components int
	Failures   []Failure
	// DocumentErr is set when the document could not be read at all and an
	// empty scene was loaded instead.
	DocumentErr error
}

// Err joins every failure of the load, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, 0, len(r.Failures)+1)
	if r.DocumentErr != nil {
		errs = append(errs, r.DocumentErr)
	}
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Declared is a system built from a document's systems section.
type Declared struct {
	System systems.System
	Name   string
	Period time.Duration
}

// Loader populates stores from scene documents.
type Loader struct {
	registry *Registry
	catalog  *Catalog
	policy   Policy
	logger   log.Log
	bus      bus.EventBus
}

type LoaderOption func(*Loader)

func WithCatalog(c *Catalog) LoaderOption {
	return func(l *Loader) { l.catalog = c }
}

func WithPolicy(p Policy) LoaderOption {
	return func(l *Loader) { l.policy = p }
}

func WithLogger(lg log.Log) LoaderOption {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

func WithBus(b bus.EventBus) LoaderOption {
	return func(l *Loader) { l.bus = b }
}

// NewLoader creates a loader over reg. A nil registry is treated as empty.
func NewLoader(reg *Registry, opts ...LoaderOption) *Loader {
	if reg == nil {
		reg = NewRegistry()
	}
	l := &Loader{
		registry: reg,
		policy:   PolicyRegistry,
		logger:   log.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("scene")
	return l
}

func (l *Loader) Registry() *Registry { return l.registry }
func (l *Loader) Policy() Policy      { return l.policy }

// LoadSource opens src and loads it into store. A source that cannot be read
// or parsed yields an empty scene; the returned document is never nil.
func (l *Loader) LoadSource(ctx context.Context, store *ecs.Store, src Source) (*Document, *Report) {
	doc, err := src.Open()
	if err != nil {
		name := src.Name()
		l.logger.Error("scene document unreadable, loading empty scene",
			log.String("scene", name), log.Error(err))
		_ = events.Publish(l.bus, events.SceneDocumentFailed, "scene",
			events.DocumentFailure{Scene: name, Err: err.Error()})
		doc = Empty(name)
		report := l.Load(ctx, store, doc)
		report.DocumentErr = err
		return doc, report
	}
	return doc, l.Load(ctx, store, doc)
}

// Load creates one entity per descriptor, then constructs components. A
// component that fails is logged and skipped; nothing else is affected.
func (l *Loader) Load(ctx context.Context, store *ecs.Store, doc *Document) *Report {
	if doc == nil {
		doc = Empty("")
	}
	report := &Report{Scene: doc.Name, Entities: &Entities{}}

	report.Entities.list = make([]ecs.Entity, len(doc.Entities))
	for i := range doc.Entities {
		report.Entities.list[i] = store.CreateEntity()
	}

	for i, spec := range doc.Entities {
		if err := ctx.Err(); err != nil {
			report.DocumentErr = err
			break
		}
		bc := &BuildContext{
			Context:  ctx,
			Scene:    doc.Name,
			Store:    store,
			Entity:   report.Entities.list[i],
			Index:    i,
			Entities: report.Entities,
			Logger:   l.logger,
		}
		for _, cs := range spec.Components {
			c, err := l.construct(bc, cs)
			if err != nil {
				l.fail(report, Failure{EntityIndex: i, Identifier: cs.Identifier, Err: err})
				continue
			}
			bc.Entity.Add(c)
			report.Components++
		}
	}

	l.logger.Debug("scene loaded",
		log.String("scene", doc.Name),
		log.Int("entities", report.Entities.Len()),
		log.Int("components", report.Components),
		log.Int("failures", len(report.Failures)))
	return report
}

// BuildSystems instantiates the document's declared systems. Unknown or
// failing declarations are skipped and returned joined in err.
func (l *Loader) BuildSystems(doc *Document) ([]Declared, error) {
	if doc == nil {
		return nil, nil
	}
	out := make([]Declared, 0, len(doc.Systems))
	var errs []error
	for _, spec := range doc.Systems {
		sys, err := l.registry.NewSystem(spec.Type, spec.Params)
		if err == nil && sys == nil {
			err = ErrNilComponent
		}
		if err != nil {
			err = fmt.Errorf("system %q: %w", spec.Type, err)
			l.logger.Warn("scene system skipped", log.String("scene", doc.Name), log.Error(err))
			errs = append(errs, err)
			continue
		}
		out = append(out, Declared{System: sys, Name: spec.Name, Period: spec.Period})
	}
	return out, errors.Join(errs...)
}

func (l *Loader) construct(bc *BuildContext, cs ComponentSpec) (c ecs.Component, err error) {
	if cs.invalid != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParam, cs.invalid)
	}
	params := cs.Params
	if params == nil {
		params = Params{}
	}

	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("%w: %v", ErrFactoryPanic, r)
		}
	}()

	if factory, ok := l.registry.ComponentFactory(cs.Identifier); ok {
		c, err = factory(bc, params)
	} else if l.policy == PolicyDynamic && l.catalog != nil {
		c, err = l.catalog.Construct(cs.Identifier, bc, params)
	} else {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, cs.Identifier)
	}
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNilComponent
	}
	return c, nil
}

func (l *Loader) fail(report *Report, f Failure) {
	report.Failures = append(report.Failures, f)
	l.logger.Warn("scene component skipped",
		log.String("scene", report.Scene),
		log.Int("entity", f.EntityIndex),
		log.String("component", f.Identifier),
		log.Error(f.Err))
	_ = events.Publish(l.bus, events.SceneComponentFailed, "scene", events.ComponentFailure{
		Scene:       report.Scene,
		EntityIndex: f.EntityIndex,
		Identifier:  f.Identifier,
		Err:         f.Err.Error(),
	})
}
