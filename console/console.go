// Package console implements the line-based prompts tfm uses to ask the
// operator for missing choices.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"tfm.run/envknobs"
)

// ErrInputExhausted is returned by prompts that cannot proceed without an
// answer when input ends.
var ErrInputExhausted = errors.New("console: no more input")

// A Console prints lines and reads answers.
type Console interface {
	// Print writes line followed by a newline.
	Print(line string)

	// Prompt writes msg without a newline and returns the next line of
	// input, with surrounding whitespace removed. It returns io.EOF when
	// input has ended.
	Prompt(msg string) (string, error)

	// Confirm asks a yes/no question that defaults to no, including at the
	// end of input.
	Confirm(msg string) (bool, error)
}

// Live is a Console reading from and writing to streams, usually the
// process's stdin and stdout.
type Live struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Live {
	return &Live{in: bufio.NewReader(in), out: out}
}

// Stdio returns a Live console on os.Stdin and os.Stdout and the theme to
// render menus with: colored when stdout is a terminal and NO_COLOR is unset.
func Stdio() (*Live, Theme) {
	th := Plain
	if !envknobs.NoColor() && term.IsTerminal(int(os.Stdout.Fd())) {
		th = Color
	}
	return New(os.Stdin, os.Stdout), th
}

func (c *Live) Print(line string) {
	fmt.Fprintln(c.out, line)
}

func (c *Live) Prompt(msg string) (string, error) {
	io.WriteString(c.out, msg)
	line, err := c.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			// finish the prompt line so later output starts fresh
			fmt.Fprintln(c.out)
			return "", io.EOF
		}
	}
	return strings.TrimSpace(line), nil
}

func (c *Live) Confirm(msg string) (bool, error) {
	return YesNo(c, msg, false)
}

// YesNo prompts with msg and reports whether the answer was "y" or "yes" in
// any case. An empty answer or the end of input yields def.
func YesNo(c Console, msg string, def bool) (bool, error) {
	s, err := c.Prompt(msg)
	if errors.Is(err, io.EOF) {
		return def, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(s) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Line prompts until a non-empty answer is given, printing complaint after
// each empty one. It returns ErrInputExhausted if input ends first.
func Line(c Console, msg, complaint string) (string, error) {
	for {
		s, err := c.Prompt(msg)
		if errors.Is(err, io.EOF) {
			return "", ErrInputExhausted
		}
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		c.Print(complaint)
	}
}
