package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredWithoutColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	if got := Colored(); got != Version {
		t.Fatalf("Colored() = %q, want %q", got, Version)
	}
}

func TestColoredKeepsNonSemver(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	Version = "nightly"
	if got := Colored(); got != "nightly" {
		t.Fatalf("Colored() = %q", got)
	}
}

func TestCurrent(t *testing.T) {
	origCommit := GitCommit
	defer func() { GitCommit = origCommit }()
	GitCommit = "abc123"
	info := Current(">= 1.0.0, < 2.0.0")
	if info.Version != Version || info.GitCommit != "abc123" || info.IRSchema == "" {
		t.Fatalf("unexpected info %+v", info)
	}
}
