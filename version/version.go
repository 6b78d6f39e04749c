// Package version reports the version of the tfm binary.
package version

import "runtime/debug"

// Short is the release version.
const Short = "0.3.0"

// GitCommit and GitDirty may be set at link time with
//
//	-ldflags "-X tfm.run/version.GitCommit=... -X tfm.run/version.GitDirty=true"
//
// Otherwise they are taken from the build info recorded by the go command.
var (
	GitCommit string
	GitDirty  string
)

// Commit returns the VCS revision the binary was built from and whether the
// working tree had uncommitted changes.
func Commit() (rev string, dirty bool) {
	if GitCommit != "" {
		return GitCommit, GitDirty == "true"
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return rev, dirty
}
