// Package version reports the build of the icsneo tools.
//
// Release builds stamp the values with ldflags:
//
//	go build -ldflags="-X github.com/intrepidcs/libicsneo-sub002/internal/version.Version=v1.2.3 \
//	                   -X github.com/intrepidcs/libicsneo-sub002/internal/version.Commit=abc123"
//
// Anything left unstamped is filled from the module's VCS build settings.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

var (
	// Version is the release tag, or dev-<date> for local builds.
	Version = ""
	// Commit is the short revision the binary was built from.
	Commit = ""
)

// Info is the resolved build description. The bridge publishes it in
// its status document and mDNS metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

var build Info

func init() {
	build = resolve(Version, Commit, readVCS())
	Version, Commit = build.Version, build.Commit
}

// vcs holds the settings the go tool records for a VCS checkout.
type vcs struct {
	revision string
	time     time.Time
	modified bool
}

func readVCS() vcs {
	var v vcs
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.modified":
			v.modified = s.Value == "true"
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
				v.time = t
			}
		}
	}
	return v
}

// resolve fills the unstamped fields from v. A build with neither falls
// back to dev-<now> and "unknown".
func resolve(version, commit string, v vcs) Info {
	info := Info{Version: version, Commit: commit, GoVersion: runtime.Version()}

	if info.Commit == "" && v.revision != "" {
		info.Commit = v.revision
		if len(info.Commit) > 7 {
			info.Commit = info.Commit[:7]
		}
		info.Dirty = v.modified
	}
	if info.Version == "" && !v.time.IsZero() {
		info.Version = "dev-" + v.time.UTC().Format("20060102")
	}

	if info.Version == "" {
		info.Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

// Get returns the resolved build description.
func Get() Info {
	return build
}

// Full returns the version with its commit, e.g. "v1.2.3 (commit: abc1234)".
func Full() string {
	commit := build.Commit
	if build.Dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (commit: %s)", build.Version, commit)
}

// IsRelease reports whether the binary carries a stamped release tag.
func IsRelease() bool {
	return strings.HasPrefix(build.Version, "v")
}
