package components

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/zeusync/zeusengine/internal/core/ecs"
	"github.com/zeusync/zeusengine/internal/core/scene"
)

var ScriptFamily = ecs.NewFamily("script")

var ErrNoScript = errors.New("components: script has neither source nor path")

// ScriptEnv is what a script sees and may change during one run.
//
// Globals available to the script: dt (seconds), entity (id), x, y, and
// destroy (set true to destroy the entity). The global "state" map persists
// across runs of the same component.
type ScriptEnv struct {
	Delta   float64
	Entity  uint64
	X, Y    float64
	Destroy bool
}

// Script runs a tengo program once per tick of the script system.
type Script struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`

	compiled *tengo.Compiled
}

func (*Script) Family() ecs.Family { return ScriptFamily }

// Init compiles the script so that broken programs fail at load time.
func (s *Script) Init(*scene.BuildContext) error {
	return s.Compile()
}

func (s *Script) Compile() error {
	src := s.Source
	if strings.TrimSpace(src) == "" && s.Path != "" {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		src = string(data)
	}
	if strings.TrimSpace(src) == "" {
		return ErrNoScript
	}

	script := tengo.NewScript([]byte(src))
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	for name, v := range map[string]any{
		"dt":      0.0,
		"entity":  int64(0),
		"x":       0.0,
		"y":       0.0,
		"destroy": false,
		"state":   map[string]any{},
	} {
		if err := script.Add(name, v); err != nil {
			return err
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return fmt.Errorf("compile script: %w", err)
	}
	s.compiled = compiled
	return nil
}

func (s *Script) Compiled() bool { return s.compiled != nil }

// Run executes the program against env and writes the script's changes back.
func (s *Script) Run(env *ScriptEnv) error {
	if s.compiled == nil {
		if err := s.Compile(); err != nil {
			return err
		}
	}
	c := s.compiled
	for name, v := range map[string]any{
		"dt":      env.Delta,
		"entity":  int64(env.Entity),
		"x":       env.X,
		"y":       env.Y,
		"destroy": false,
	} {
		if err := c.Set(name, v); err != nil {
			return err
		}
	}
	if err := c.Run(); err != nil {
		return err
	}
	env.X = c.Get("x").Float()
	env.Y = c.Get("y").Float()
	env.Destroy = c.Get("destroy").Bool()
	return nil
}

// State returns a copy of the script's persistent state map.
func (s *Script) State() map[string]any {
	if s.compiled == nil {
		return nil
	}
	return s.compiled.Get("state").Map()
}
