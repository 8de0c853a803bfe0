// Package version carries build metadata stamped via -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// resolved prefers the stamped Version and falls back to the module version
// recorded by `go install module@version`.
func resolved() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}

// UserAgent is sent with transcription uploads.
func UserAgent() string {
	return "whisper-dictate/" + resolved()
}

func String() string {
	return fmt.Sprintf("whisper-dictate %s (commit=%s, date=%s, go=%s)", resolved(), Commit, Date, runtime.Version())
}
