package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigName is the project configuration file name.
const ConfigName = "brick.toml"

// FindConfig walks up from startDir to locate brick.toml.
func FindConfig(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the brick.toml governing input, a file or directory. When
// none exists the defaults are returned with an empty Path.
func Discover(input string) (*Config, error) {
	start := input
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		start = filepath.Dir(input)
	}
	path, ok, err := FindConfig(start)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}
