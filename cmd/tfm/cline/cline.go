// Package cline runs a command's own test binary as the command under test,
// so tests exercise main end to end: flags, stdin, stdout, stderr and the
// exit status.
package cline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"golang.org/x/exp/slices"
)

var testBin string

// TestMain runs main when the process was started by Run, and the tests in
// m otherwise.
func TestMain(m *testing.M, main func()) {
	if os.Getenv("CLINE_TEST_RUN_MAIN") != "" {
		main()
		os.Exit(0)
	}
	os.Setenv("CLINE_TEST_RUN_MAIN", "true")

	// The exit code is captured at the end, but defers the os.Exit to this
	// defer so that all defers that come after this one are run
	var code int
	defer func() {
		os.Exit(code)
	}()

	testExe, err := os.Executable()
	if err != nil {
		log.Fatal(err)
	}

	testTempDir, err := os.MkdirTemp("", "tfm-test")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(testTempDir)

	testBin = filepath.Join(testTempDir, "tfm")
	if err := os.Symlink(testExe, testBin); err != nil {
		if err := copyFile(testBin, testExe); err != nil {
			log.Fatal(err)
		}
	}

	code = m.Run()
	// allow defers to run
}

func copyFile(dst, src string) error {
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o777)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Data holds the environment and results of command runs within a test.
type Data struct {
	t      *testing.T
	stdin  string
	stdout bytes.Buffer
	stderr bytes.Buffer
	env    []string
	code   int
	ran    bool
}

func Test(t *testing.T) *Data {
	return &Data{t: t}
}

func (d *Data) Setenv(name, value string) {
	d.t.Helper()
	d.Unsetenv(name)
	d.env = append(d.env, name+"="+value)
}

func (d *Data) Unsetenv(name string) {
	d.t.Helper()
	if d.env == nil {
		d.env = slices.Clone(os.Environ())
	}
	for i, e := range d.env {
		if strings.HasPrefix(e, name+"=") {
			d.env = slices.Delete(d.env, i, i+1)
			return
		}
	}
}

// SetStdin sets the standard input of the next runs. Each run reads s from
// the start.
func (d *Data) SetStdin(s string) {
	d.stdin = s
}

// Run runs the command with args and fails the test unless it exits 0.
func (d *Data) Run(args ...string) {
	d.t.Helper()
	if err := d.doRun(args...); err != nil {
		d.t.Fatal(err)
	}
}

// RunFail runs the command with args and fails the test if it exits 0.
func (d *Data) RunFail(args ...string) {
	d.t.Helper()
	if status := d.doRun(args...); status == nil {
		d.t.Fatal("succeeded unexpectedly")
	} else {
		d.t.Log("failed as expected:", status)
	}
}

// RunStatus runs the command with args and fails the test unless it exits
// with code.
func (d *Data) RunStatus(code int, args ...string) {
	d.t.Helper()
	d.doRun(args...)
	if d.code != code {
		d.t.Fatalf("exit status %d; want %d", d.code, code)
	}
}

func (d *Data) doRun(args ...string) error {
	d.t.Helper()
	d.stdout.Reset()
	d.stderr.Reset()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, testBin, args...)
	cmd.Stdin = strings.NewReader(d.stdin)
	cmd.Stdout = &d.stdout
	cmd.Stderr = &d.stderr
	cmd.Env = d.env
	status := cmd.Run()
	d.code = 0
	var ee *exec.ExitError
	if errors.As(status, &ee) {
		d.code = ee.ExitCode()
	} else if status != nil {
		d.t.Fatalf("running %s: %v", testBin, status)
	}
	if d.stdout.Len() > 0 {
		d.t.Logf("standard output:\n%s", d.stdout.String())
	}
	if d.stderr.Len() > 0 {
		d.t.Logf("standard error:\n%s", d.stderr.String())
	}
	d.ran = true
	return status
}

// Stdout returns the standard output of the last run.
func (d *Data) Stdout() string {
	d.t.Helper()
	if !d.ran {
		d.t.Fatal("internal testsuite error: Stdout called before run")
	}
	return d.stdout.String()
}

// Stderr returns the standard error of the last run.
func (d *Data) Stderr() string {
	d.t.Helper()
	if !d.ran {
		d.t.Fatal("internal testsuite error: Stderr called before run")
	}
	return d.stderr.String()
}

func (d *Data) GrepStdout(match, msg string) {
	d.t.Helper()
	d.doGrep(match, &d.stdout, "output", msg)
}

func (d *Data) GrepStderr(match, msg string) {
	d.t.Helper()
	d.doGrep(match, &d.stderr, "error", msg)
}

func (d *Data) GrepStdoutNot(match, msg string) {
	d.t.Helper()
	d.doGrepNot(match, &d.stdout, "output", msg)
}

func (d *Data) GrepStderrNot(match, msg string) {
	d.t.Helper()
	d.doGrepNot(match, &d.stderr, "error", msg)
}

func (d *Data) GrepBoth(match, msg string) {
	d.t.Helper()
	if !d.doGrepMatch(match, &d.stdout) && !d.doGrepMatch(match, &d.stderr) {
		d.t.Errorf("pattern %q not found in standard output or standard error: %s", match, msg)
	}
}

// doGrep looks for a regular expression in a buffer and fails if it
// is not found. The name argument is the name of the output we are
// searching, "output" or "error". The msg argument is logged on
// failure.
func (d *Data) doGrep(match string, b *bytes.Buffer, name, msg string) {
	d.t.Helper()
	if !d.doGrepMatch(match, b) {
		d.t.Log(msg)
		d.t.Logf("pattern %q not found in standard %s", match, name)
		d.t.FailNow()
	}
}

func (d *Data) doGrepNot(match string, b *bytes.Buffer, name, msg string) {
	d.t.Helper()
	if d.doGrepMatch(match, b) {
		d.t.Log(msg)
		d.t.Logf("pattern %q found in standard %s", match, name)
		d.t.FailNow()
	}
}

func (d *Data) doGrepMatch(match string, b *bytes.Buffer) bool {
	d.t.Helper()
	if !d.ran {
		d.t.Fatal("internal testsuite error: grep called before run")
	}
	re := regexp.MustCompile(match)
	for _, ln := range bytes.Split(b.Bytes(), []byte{'\n'}) {
		if re.Match(ln) {
			return true
		}
	}
	return false
}
