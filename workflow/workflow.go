// Package workflow runs the tester maintenance commands: it settles what to
// act on, from flags and prompts, then fetches, reports and removes testers.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"tfm.run/asc"
	"tfm.run/clierr"
	"tfm.run/console"
	"tfm.run/creds"
	"tfm.run/fetch"
	"tfm.run/report"
	"tfm.run/roster"
	"tfm.run/values"
)

// API is the App Store Connect surface the workflows use. It is implemented
// by *asc.Client.
type API interface {
	Apps(ctx context.Context) ([]roster.App, error)
	BetaGroupsForApp(ctx context.Context, appID string) ([]roster.Group, error)
	BetaGroup(ctx context.Context, groupID string) (roster.Group, error)
	BetaGroupTesters(ctx context.Context, groupID string) ([]roster.Tester, error)
	AppTesters(ctx context.Context, appID string) ([]roster.Tester, error)
	TesterUsage(ctx context.Context, groupID, period string) (roster.Usage, error)
	RemoveTestersFromGroup(ctx context.Context, groupID string, ids []string) error
	RemoveAppTesters(ctx context.Context, appID string, ids []string) error
	RemoveTesters(ctx context.Context, ids []string) error
}

var _ API = (*asc.Client)(nil)

// Env holds the collaborators of a run.
type Env struct {
	// LoadCredentials returns the saved credentials, or nil if there are
	// none.
	LoadCredentials func() (*creds.Credentials, error)

	// Connect returns an API authenticated with c.
	Connect func(c *creds.Credentials) (API, error)

	Console console.Console
	Theme   console.Theme

	Logf func(format string, args ...any)
}

func (e *Env) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
	}
}

func (e *Env) connect(verb string) (API, error) {
	c, err := e.LoadCredentials()
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, clierr.New(clierr.CredentialsNotFound,
			"No saved credentials. Run 'tfm login' before %s.", verb)
	}
	return e.Connect(c)
}

// RunContext is everything a run acts on, settled before any tester is
// fetched.
type RunContext struct {
	AppID   string
	GroupID string // purge only
	Window  Window // purge only
	Scope   Scope  // purge only

	DryRun bool

	// RequiresConfirmation is set when the operator chose to remove
	// testers interactively and must confirm after seeing the report.
	RequiresConfirmation bool

	OutputPath   string // empty means list testers on the console
	OutputFormat report.Format
}

// batchSize is the most tester IDs sent in one removal request.
const batchSize = 100

// removeInBatches calls remove with consecutive batches of ids, in order,
// printing progress after each batch when there is more than one. It stops
// at the first failing batch.
func removeInBatches(ctx context.Context, c console.Console, ids []string, remove func(context.Context, []string) error) error {
	batches := values.Chunk(ids, batchSize)
	var done int
	for i, batch := range batches {
		if err := remove(ctx, batch); err != nil {
			return &batchError{i + 1, len(batches), err}
		}
		done += len(batch)
		if len(batches) > 1 {
			c.Print(fmt.Sprintf("Removed %d of %d tester(s)...", done, len(ids)))
		}
	}
	return nil
}

// batchError reports which removal batch failed.
type batchError struct {
	n, of int
	err   error
}

func (e *batchError) Error() string {
	return fmt.Sprintf("removing batch %d of %d: %v", e.n, e.of, e.err)
}

func (e *batchError) Unwrap() error { return e.err }

// handleAPIError reports API and transport failures in *errp as
// clierr.APIFailure. The message carries only the failing batch, if any,
// and the API's own message; the full chain stays in Err and is logged.
// Other errors are left alone.
func (e *Env) handleAPIError(errp *error) {
	err := *errp
	if err == nil {
		return
	}
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return
	}
	var (
		ae  *asc.Error
		se  *fetch.StatusError
		ue  *url.Error
		msg string
	)
	switch {
	case errors.As(err, &ae):
		msg = ae.Error()
	case errors.As(err, &se):
		msg = se.Error()
	case errors.As(err, &ue):
		msg = ue.Error()
	default:
		return
	}
	var be *batchError
	if errors.As(err, &be) {
		msg = fmt.Sprintf("removing batch %d of %d: %s", be.n, be.of, msg)
	}
	e.logf("api: %v", err)
	*errp = &clierr.Error{Kind: clierr.APIFailure, Msg: msg, Err: err}
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return creds.ExpandPath(p)
}

