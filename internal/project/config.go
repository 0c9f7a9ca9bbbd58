// Package project reads brick.toml, the per-project checker configuration.
//
//	[check]
//	max_diagnostics = 200
//	jobs = 4
//	max_loop_iterations = 128
//
//	[cache]
//	enabled = true
//	dir = ".brick-cache"   # relative to brick.toml
//
//	[output]
//	color = "auto"         # auto | always | never
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig wraps every configuration problem.
var ErrInvalidConfig = errors.New("invalid brick.toml")

// Color modes for [output].color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// CheckSection is [check].
type CheckSection struct {
	MaxDiagnostics    int `toml:"max_diagnostics"`
	Jobs              int `toml:"jobs"`
	MaxLoopIterations int `toml:"max_loop_iterations"`
}

// CacheSection is [cache].
type CacheSection struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// OutputSection is [output].
type OutputSection struct {
	Color string `toml:"color"`
}

// Config is a decoded brick.toml. Path is empty for defaults.
type Config struct {
	Check  CheckSection  `toml:"check"`
	Cache  CacheSection  `toml:"cache"`
	Output OutputSection `toml:"output"`

	Path string `toml:"-"`
}

// Default returns the configuration used without a brick.toml.
func Default() *Config {
	return &Config{
		Check:  CheckSection{MaxDiagnostics: 1000, MaxLoopIterations: 128},
		Output: OutputSection{Color: ColorAuto},
	}
}

// Load parses path on top of the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Check.MaxDiagnostics < 0:
		return errors.New("check.max_diagnostics must not be negative")
	case c.Check.Jobs < 0:
		return errors.New("check.jobs must not be negative")
	case c.Check.MaxLoopIterations < 0:
		return errors.New("check.max_loop_iterations must not be negative")
	}
	if !slices.Contains([]string{ColorAuto, ColorAlways, ColorNever}, c.Output.Color) {
		return fmt.Errorf("output.color %q (expected auto|always|never)", c.Output.Color)
	}
	return nil
}

// CacheDir resolves [cache].dir against the directory of brick.toml. An
// empty result selects the user cache directory.
func (c *Config) CacheDir() string {
	dir := c.Cache.Dir
	if dir == "" || filepath.IsAbs(dir) || c.Path == "" {
		return dir
	}
	return filepath.Join(filepath.Dir(c.Path), filepath.FromSlash(dir))
}
