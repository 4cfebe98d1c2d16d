// Package config holds engine host configuration loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/zeusengine/internal/core/observability/log"
	"github.com/zeusync/zeusengine/internal/core/scene"
	"github.com/zeusync/zeusengine/internal/server"
)

var ErrInvalid = errors.New("config: invalid")

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type SceneConfig struct {
	Path   string `yaml:"path"`
	// Name overrides the state name; by default the document names it.
	Name   string `yaml:"name"`
	Policy string `yaml:"policy"`
	Watch  bool   `yaml:"watch"`

	// Debounce is how long the watcher waits for writes to settle.
	Debounce time.Duration `yaml:"debounce"`
}

type InspectorConfig struct {
	Enabled      bool          `yaml:"enabled"`
	ListenAddr   string        `yaml:"listen_addr"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
	ClientBuffer int           `yaml:"client_buffer"`
}

type Config struct {
	Log LogConfig `yaml:"log"`

	// SystemPeriod applies to systems that declare no period of their own.
	SystemPeriod time.Duration   `yaml:"system_period"`
	FrameRate    int             `yaml:"frame_rate"`
	Gravity      [2]float64      `yaml:"gravity"`
	Scene        SceneConfig     `yaml:"scene"`
	Inspector    InspectorConfig `yaml:"inspector"`
}

func DefaultConfig() Config {
	srv := server.DefaultServerConfig()
	return Config{
		Log:          LogConfig{Level: "info", Encoding: "console"},
		SystemPeriod: 16 * time.Millisecond,
		FrameRate:    60,
		Gravity:      [2]float64{0, 0},
		Scene: SceneConfig{
			Policy:   scene.PolicyRegistry.String(),
			Debounce: scene.DefaultDebounce,
		},
		Inspector: InspectorConfig{
			ListenAddr:   srv.ListenAddr,
			WriteTimeout: srv.WriteTimeout,
			PingInterval: srv.PingInterval,
			ClientBuffer: srv.ClientBuffer,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		errs = append(errs, fmt.Errorf("log encoding %q", c.Log.Encoding))
	}
	if c.SystemPeriod <= 0 {
		errs = append(errs, errors.New("system_period must be positive"))
	}
	if c.FrameRate <= 0 {
		errs = append(errs, errors.New("frame_rate must be positive"))
	}
	if _, err := scene.ParsePolicy(c.Scene.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.Scene.Watch && c.Scene.Path == "" {
		errs = append(errs, errors.New("scene.watch needs scene.path"))
	}
	if c.Inspector.Enabled {
		if err := c.ServerConfig().Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

func (c Config) LogLevel() log.Level {
	lvl, _ := log.ParseLevel(c.Log.Level)
	return lvl
}

func (c Config) LoadPolicy() scene.Policy {
	p, _ := scene.ParsePolicy(c.Scene.Policy)
	return p
}

func (c Config) ServerConfig() server.Config {
	return server.Config{
		ListenAddr:   c.Inspector.ListenAddr,
		WriteTimeout: c.Inspector.WriteTimeout,
		PingInterval: c.Inspector.PingInterval,
		ClientBuffer: c.Inspector.ClientBuffer,
	}
}
