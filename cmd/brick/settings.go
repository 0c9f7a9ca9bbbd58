package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"brick/internal/driver"
	"brick/internal/observ"
	"brick/internal/project"
)

// settings are the effective options for one command: brick.toml values
// overridden by explicitly set flags.
type settings struct {
	cfg     *project.Config
	opts    driver.Options
	timings bool
}

func loadSettings(cmd *cobra.Command, input string) (*settings, error) {
	cfg, err := project.Discover(input)
	if err != nil {
		return nil, err
	}
	s := &settings{
		cfg: cfg,
		opts: driver.Options{
			Jobs:           cfg.Check.Jobs,
			MaxDiagnostics: cfg.Check.MaxDiagnostics,
			MaxIterations:  cfg.Check.MaxLoopIterations,
		},
	}

	pf := cmd.Root().PersistentFlags()
	if n, _ := pf.GetInt("max-diagnostics"); n > 0 {
		s.opts.MaxDiagnostics = n
	}
	if n, _ := pf.GetInt("max-iterations"); n > 0 {
		s.opts.MaxIterations = n
	}
	if s.timings, err = pf.GetBool("timings"); err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if s.timings {
		s.opts.Timer = observ.NewTimer()
	}

	colorMode := cfg.Output.Color
	if pf.Changed("color") {
		colorMode, _ = pf.GetString("color")
	}
	if err := applyColor(colorMode); err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("jobs"); f != nil && f.Changed {
		if s.opts.Jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
			return nil, err
		}
	}
	useCache := cfg.Cache.Enabled
	if f := cmd.Flags().Lookup("cache"); f != nil && f.Changed {
		if useCache, err = cmd.Flags().GetBool("cache"); err != nil {
			return nil, err
		}
	}
	if useCache {
		dir := cfg.CacheDir()
		if f := cmd.Flags().Lookup("cache-dir"); f != nil && f.Changed {
			dir = f.Value.String()
		}
		if s.opts.Cache, err = driver.OpenDiskCache(dir); err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
	}
	return s, nil
}

// applyColor sets the global fatih/color switch.
func applyColor(mode string) error {
	switch strings.ToLower(mode) {
	case "", project.ColorAuto:
		color.NoColor = !isTerminal(os.Stdout)
	case "on", project.ColorAlways:
		color.NoColor = false
	case "off", project.ColorNever:
		color.NoColor = true
	default:
		return fmt.Errorf("invalid color mode %q (expected auto|on|off)", mode)
	}
	return nil
}

func (s *settings) printTimings(cmd *cobra.Command) {
	if s.timings && s.opts.Timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), s.opts.Timer.Summary())
	}
}
