// Package version carries build metadata for the brick CLI. The variables
// are overridden at link time with -ldflags "-X brick/internal/version.Version=...".
package version

import (
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is the optional commit hash.
	GitCommit = ""

	// BuildDate is the optional ISO-8601 build date.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Info is the machine-readable form printed by `brick version --format json`.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	IRSchema  string `json:"ir_schema"`
}

// Current collects the build metadata. schema is the IR schema constraint
// the binary accepts.
func Current(schema string) Info {
	return Info{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate, IRSchema: schema}
}

// Colored renders Version with each numeric component in its own color.
// color.NoColor disables the escapes.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}
