// Command tfm maintains TestFlight beta testers through the App Store
// Connect API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"tfm.run/asc"
	"tfm.run/console"
	"tfm.run/creds"
	"tfm.run/envknobs"
	"tfm.run/version"
	"tfm.run/workflow"
)

var flagVerbose = flag.Bool("v", false, "")

func main() {
	log.SetFlags(0)
	flag.Usage = func() {
		io.WriteString(os.Stderr, errUsage.Error())
	}
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := tfm(args[0], args[1:]); err != nil {
		var ue *usageError
		switch {
		case errors.Is(err, errUsage):
			io.WriteString(os.Stderr, errUsage.Error())
			os.Exit(2)
		case errors.As(err, &ue):
			fmt.Fprintf(os.Stderr, "tfm: %v\n\n%s", ue.err, topics[ue.cmd])
			os.Exit(2)
		default:
			log.Fatalf("tfm: %v", err)
		}
	}
}

func tfm(cmd string, args []string) error {
	ctx := context.Background()
	switch cmd {
	case "login":
		return login(ctx, args)
	case "config":
		return configure(args)
	case "purge":
		return purge(ctx, args)
	case "remove-ungrouped":
		return removeUngrouped(ctx, args)
	case "version":
		if len(args) > 0 {
			return &usageError{cmd, errors.New("version does not accept arguments")}
		}
		fmt.Println(version.String())
		return nil
	case "help":
		var topic string
		if len(args) > 0 {
			topic = args[0]
		}
		return help(os.Stdout, topic)
	default:
		return errUsage
	}
}

// usageError reports bad flags or arguments to cmd. It is printed with the
// command's help text and exits with status 2.
type usageError struct {
	cmd string
	err error
}

func (e *usageError) Error() string { return e.cmd + ": " + e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newFlagSet(cmd string) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseFlags parses args with fs. Asking for help prints the command's help
// text and exits.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		io.WriteString(os.Stdout, topics[fs.Name()])
		os.Exit(0)
	}
	if err != nil {
		return &usageError{fs.Name(), err}
	}
	if fs.NArg() > 0 {
		return &usageError{fs.Name(), fmt.Errorf("unexpected arguments: %q", fs.Args())}
	}
	return nil
}

func vlogf(format string, args ...any) {
	if *flagVerbose || envknobs.Debug() {
		log.Printf(format, args...)
	}
}

// connect returns a client for c. With ASC_DEBUG set, request traces are
// logged regardless of -v.
func connect(c *creds.Credentials) (*asc.Client, error) {
	ac, err := asc.FromCredentials(c)
	if err != nil {
		return nil, err
	}
	ac.Logf = vlogf
	if ac.Debug {
		ac.Logf = log.Printf
	}
	return ac, nil
}

func newEnv() *workflow.Env {
	con, th := console.Stdio()
	return &workflow.Env{
		LoadCredentials: creds.DefaultStore().LoadCredentials,
		Connect: func(c *creds.Credentials) (workflow.API, error) {
			ac, err := connect(c)
			if err != nil {
				return nil, err
			}
			return ac, nil
		},
		Console: con,
		Theme:   th,
		Logf:    vlogf,
	}
}
