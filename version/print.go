package version

import (
	"fmt"
	"runtime"
	"strings"
)

// String returns the version followed by the commit it was built from, if
// known, and the Go version, one per line.
func String() string {
	var ret strings.Builder
	ret.WriteString(Short)
	ret.WriteByte('\n')
	commit, dirty := Commit()
	if commit != "" {
		var suffix string
		if dirty {
			suffix = "-dirty"
		}
		fmt.Fprintf(&ret, "  tfm commit: %s%s\n", commit, suffix)
	}
	fmt.Fprintf(&ret, "  go version: %s\n", runtime.Version())
	return strings.TrimSpace(ret.String())
}
