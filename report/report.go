// Package report presents the testers a maintenance run selected, either as
// a console listing or as a text or CSV file.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tailscale.com/atomicfile"
	"tfm.run/clierr"
	"tfm.run/roster"
)

// Format is an output file format. It implements flag.Value.
type Format string

const (
	Text Format = "text"
	CSV  Format = "csv"
)

// ParseFormat parses s case-insensitively, ignoring surrounding space.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, CSV:
		return f, nil
	}
	return "", clierr.Invalid("Unknown output format %q. Use 'text' or 'csv'.", s)
}

func (f *Format) String() string {
	if *f == "" {
		return string(Text)
	}
	return string(*f)
}

func (f *Format) Set(s string) error {
	v, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Printer is the part of console.Console a Report needs.
type Printer interface {
	Print(line string)
}

// A Report is a sorted list of testers with the wording used to present it.
type Report struct {
	Kind    string // "inactive" or "ungrouped"
	Header  string // console heading
	Title   string // first line of a text file
	Testers []roster.Tester
}

// Inactive returns the report for testers without sessions during the
// window described by label, e.g. "30 days".
func Inactive(tt []roster.Tester, label string) Report {
	return Report{
		Kind:    "inactive",
		Header:  fmt.Sprintf("Found %d inactive tester(s) with no sessions in the last %s:", len(tt), label),
		Title:   fmt.Sprintf("Inactive testers (no sessions in last %s)", label),
		Testers: tt,
	}
}

// Ungrouped returns the report for app testers outside every beta group.
func Ungrouped(tt []roster.Tester) Report {
	return Report{
		Kind:    "ungrouped",
		Header:  fmt.Sprintf("Found %d ungrouped tester(s) not assigned to any beta group:", len(tt)),
		Title:   "Ungrouped testers (not assigned to any beta group)",
		Testers: tt,
	}
}

// Emit prints the header, then either lists every tester or, when path is
// not empty, writes them to path in format f and says so.
func (r Report) Emit(p Printer, path string, f Format) error {
	p.Print(r.Header)
	if path == "" {
		for _, t := range r.Testers {
			p.Print(" - " + t.DisplayName())
		}
		return nil
	}
	if err := r.WriteFile(path, f); err != nil {
		return err
	}
	p.Print(fmt.Sprintf("Wrote %d %s tester(s) to %s.", len(r.Testers), r.Kind, path))
	return nil
}

// WriteFile atomically replaces path with the report in format f, creating
// missing parent directories. Failures are reported as clierr.InvalidInput.
func (r Report) WriteFile(path string, f Format) error {
	data, err := r.Encode(f)
	if err == nil {
		if dir := filepath.Dir(path); dir != "." {
			err = os.MkdirAll(dir, 0755)
		}
	}
	if err == nil {
		err = atomicfile.WriteFile(path, data, 0644)
	}
	if err != nil {
		return &clierr.Error{
			Kind: clierr.InvalidInput,
			Msg:  fmt.Sprintf("Failed to write %s tester output to %s: %v", r.Kind, path, err),
			Err:  err,
		}
	}
	return nil
}

// Encode returns the file contents of the report in format f.
func (r Report) Encode(f Format) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case Text, "":
		buf.WriteString(r.Title)
		buf.WriteString("\n\n")
		for _, t := range r.Testers {
			buf.WriteString(t.DisplayName())
			buf.WriteString("\n")
		}
	case CSV:
		writeCSVRow(&buf, "tester_id", "first_name", "last_name", "email", "state")
		for _, t := range r.Testers {
			writeCSVRow(&buf, t.ID, t.FirstName, t.LastName, t.Email, t.State)
		}
	default:
		return nil, fmt.Errorf("report: unknown format %q", string(f))
	}
	return buf.Bytes(), nil
}

// writeCSVRow writes fields as one CSV record. A field is quoted only if it
// contains a comma, a double quote or a newline; leading spaces are kept
// as they are.
func writeCSVRow(buf *bytes.Buffer, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !strings.ContainsAny(f, ",\"\n") {
			buf.WriteString(f)
			continue
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}
