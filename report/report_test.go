package report

import (
	"encoding/csv"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kr.dev/diff"
	"tfm.run/clierr"
	"tfm.run/roster"
)

type lines []string

func (l *lines) Print(line string) { *l = append(*l, line) }

var testers = []roster.Tester{
	{ID: "t1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", State: "INSTALLED"},
	{ID: "t2", Email: "grace@example.com"},
	{ID: "t3"},
}

func TestFormatFlag(t *testing.T) {
	var f Format
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&f, "output-format", "")
	diff.Test(t, t.Errorf, f.String(), "text")

	if err := fs.Parse([]string{"--output-format", " CSV "}); err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, f, CSV)

	if err := f.Set("xml"); !clierr.Is(err, clierr.InvalidInput) {
		t.Errorf("err = %v; want InvalidInput", err)
	}
	diff.Test(t, t.Errorf, f, CSV)
}

func TestEmitConsole(t *testing.T) {
	var got lines
	if err := Inactive(testers, "30 days").Emit(&got, "", Text); err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, got, lines{
		"Found 3 inactive tester(s) with no sessions in the last 30 days:",
		" - Ada Lovelace <ada@example.com>",
		" - grace@example.com",
		" - t3",
	})
}

func TestEmitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ungrouped.txt")
	var got lines
	if err := Ungrouped(testers).Emit(&got, path, Text); err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, got, lines{
		"Found 3 ungrouped tester(s) not assigned to any beta group:",
		"Wrote 3 ungrouped tester(s) to " + path + ".",
	})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, string(data), ""+
		"Ungrouped testers (not assigned to any beta group)\n"+
		"\n"+
		"Ada Lovelace <ada@example.com>\n"+
		"grace@example.com\n"+
		"t3\n")
}

func TestEncodeCSV(t *testing.T) {
	tt := append([]roster.Tester{{ID: "t0", FirstName: `O'Brien, "Bob"`, LastName: "Smith"}}, testers...)
	data, err := Inactive(tt, "7 days").Encode(CSV)
	if err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, string(data), ""+
		"tester_id,first_name,last_name,email,state\n"+
		`t0,"O'Brien, ""Bob""",Smith,,`+"\n"+
		"t1,Ada,Lovelace,ada@example.com,INSTALLED\n"+
		"t2,,,grace@example.com,\n"+
		"t3,,,,\n")

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, records[1], []string{"t0", `O'Brien, "Bob"`, "Smith", "", ""})
}

func TestEncodeCSVQuoting(t *testing.T) {
	tt := []roster.Tester{
		{ID: "t1", FirstName: " Bob", LastName: "Tab\tby", Email: "a\rb"},
		{ID: "t2", FirstName: "Line\nBreak", LastName: `Say "hi"`},
	}
	data, err := Ungrouped(tt).Encode(CSV)
	if err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, string(data), ""+
		"tester_id,first_name,last_name,email,state\n"+
		"t1, Bob,Tab\tby,a\rb,\n"+
		"t2,\"Line\nBreak\",\"Say \"\"hi\"\"\",,\n")

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, records[2], []string{"t2", "Line\nBreak", `Say "hi"`, "", ""})
}

func TestEncodeTextEmpty(t *testing.T) {
	data, err := Inactive(nil, "90 days").Encode(Text)
	if err != nil {
		t.Fatal(err)
	}
	diff.Test(t, t.Errorf, string(data), "Inactive testers (no sessions in last 90 days)\n\n")
}

func TestWriteFileFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(blocker, "out.csv")
	err := Inactive(testers, "30 days").WriteFile(path, CSV)
	if !clierr.Is(err, clierr.InvalidInput) {
		t.Fatalf("err = %v; want InvalidInput", err)
	}
	if !strings.HasPrefix(err.Error(), "Failed to write inactive tester output to "+path+": ") {
		t.Errorf("err = %q", err)
	}
}
