// Package version carries build metadata stamped in at release time.
package version

import (
	"fmt"
	"runtime"
)

// Overridden via ldflags on release builds:
//
//	go build -ldflags "-X github.com/soyeahso/teo/internal/version.Version=1.2.0"
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info returns the full build description, including the toolchain the
// binary was compiled with.
func Info() string {
	return fmt.Sprintf("teo %s (commit %s, built %s)\n%s %s/%s",
		Version, orUnknown(shortCommit()), orUnknown(Date),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
