// Package trutil holds small I/O helpers for tracing.
package trutil

import (
	"bytes"
	"strings"
)

// LineWriter is an io.Writer that calls Logf once per complete line written
// to it, with Prefix prepended and the newline removed. A partial final line
// is held until the next newline or Flush.
type LineWriter struct {
	Prefix string
	Logf   func(string, ...any)

	lineBuf strings.Builder
}

// Flush logs any buffered partial line.
func (lw *LineWriter) Flush() error {
	if lw.lineBuf.Len() == 0 {
		return nil
	}
	lw.emit()
	return nil
}

func (lw *LineWriter) emit() {
	if lw.Logf != nil {
		lw.Logf("%s%s", lw.Prefix, lw.lineBuf.String())
	}
	lw.lineBuf.Reset()
}

func (lw *LineWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	for {
		before, after, hasNewline := bytes.Cut(p, []byte{'\n'})
		lw.lineBuf.Write(before)
		if !hasNewline {
			return n, nil
		}
		lw.emit()
		p = after
	}
}
