// Package version carries build version information for the CLI.
package version

import (
	"fmt"
	"runtime"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is the CLI version, overridden at build time.
	Version = "0.1.0"
	// BuildDate is the build date.
	BuildDate = "unknown"
	// GitCommit is the git commit hash.
	GitCommit = "unknown"
)

// LatestKnown is the newest release this build knows about. Release builds
// stamp it alongside Version.
var LatestKnown = "0.1.0"

// Info holds version information.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
}

// Get returns version information for the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a one-line version string.
func (i Info) String() string {
	return fmt.Sprintf("specql version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns a detailed version string.
func (i Info) FullString() string {
	return fmt.Sprintf(`specql version %s
Build Date: %s
Git Commit: %s
Platform: %s
Go Version: %s`, i.Version, i.BuildDate, i.GitCommit, i.Platform, i.GoVersion)
}

// UpdateAvailable compares current against LatestKnown and reports whether
// an upgrade exists. Both must be valid semantic versions.
func UpdateAvailable(current string) (bool, string, error) {
	cur, err := goversion.NewVersion(current)
	if err != nil {
		return false, "", fmt.Errorf("invalid version %q: %w", current, err)
	}
	latest, err := goversion.NewVersion(LatestKnown)
	if err != nil {
		return false, "", fmt.Errorf("invalid latest version %q: %w", LatestKnown, err)
	}
	return cur.LessThan(latest), latest.String(), nil
}
