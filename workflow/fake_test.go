package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"

	"tfm.run/console"
	"tfm.run/creds"
	"tfm.run/roster"
)

type fakeAPI struct {
	apps         []roster.App
	groups       map[string][]roster.Group // by app ID
	group        map[string]roster.Group   // by group ID
	groupTesters map[string][]roster.Tester
	appTesters   map[string][]roster.Tester
	usage        map[string]roster.Usage

	// failRemoval, if positive, makes the nth removal call fail.
	failRemoval int
	removals    int

	calls []string
}

func (f *fakeAPI) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeAPI) Apps(ctx context.Context) ([]roster.App, error) {
	f.record("Apps")
	return f.apps, nil
}

func (f *fakeAPI) BetaGroupsForApp(ctx context.Context, appID string) ([]roster.Group, error) {
	f.record("BetaGroupsForApp %s", appID)
	return f.groups[appID], nil
}

func (f *fakeAPI) BetaGroup(ctx context.Context, groupID string) (roster.Group, error) {
	f.record("BetaGroup %s", groupID)
	g, ok := f.group[groupID]
	if !ok {
		// wrapped as *asc.Client wraps it
		return roster.Group{}, fmt.Errorf("asc: fetching beta group %s: %w", groupID, &ascNotFound)
	}
	return g, nil
}

func (f *fakeAPI) BetaGroupTesters(ctx context.Context, groupID string) ([]roster.Tester, error) {
	f.record("BetaGroupTesters %s", groupID)
	return f.groupTesters[groupID], nil
}

func (f *fakeAPI) AppTesters(ctx context.Context, appID string) ([]roster.Tester, error) {
	f.record("AppTesters %s", appID)
	return f.appTesters[appID], nil
}

func (f *fakeAPI) TesterUsage(ctx context.Context, groupID, period string) (roster.Usage, error) {
	f.record("TesterUsage %s %s", groupID, period)
	return f.usage[groupID], nil
}

func (f *fakeAPI) remove(format string, args ...any) error {
	f.removals++
	if f.removals == f.failRemoval {
		f.record("FAILED "+format, args...)
		return fmt.Errorf("asc: removing testers: %w", &ascForbidden)
	}
	f.record(format, args...)
	return nil
}

func (f *fakeAPI) RemoveTestersFromGroup(ctx context.Context, groupID string, ids []string) error {
	return f.remove("RemoveTestersFromGroup %s %s", groupID, summarize(ids))
}

func (f *fakeAPI) RemoveAppTesters(ctx context.Context, appID string, ids []string) error {
	return f.remove("RemoveAppTesters %s %s", appID, summarize(ids))
}

func (f *fakeAPI) RemoveTesters(ctx context.Context, ids []string) error {
	return f.remove("RemoveTesters %s", summarize(ids))
}

// summarize lists a few ids in full and larger batches by size.
func summarize(ids []string) string {
	if len(ids) > 5 {
		return fmt.Sprintf("[%d ids]", len(ids))
	}
	return strings.Join(ids, ",")
}

// fakeConsole answers prompts from a script and records everything shown.
// Prompts appear in out prefixed with "? ".
type fakeConsole struct {
	answers []string
	out     []string
}

func (c *fakeConsole) Print(line string) { c.out = append(c.out, line) }

func (c *fakeConsole) Prompt(msg string) (string, error) {
	c.out = append(c.out, "? "+msg)
	if len(c.answers) == 0 {
		return "", io.EOF
	}
	s := c.answers[0]
	c.answers = c.answers[1:]
	return strings.TrimSpace(s), nil
}

func (c *fakeConsole) Confirm(msg string) (bool, error) {
	return console.YesNo(c, msg, false)
}

// printed returns the lines printed, leaving out prompts.
func (c *fakeConsole) printed() []string {
	var lines []string
	for _, l := range c.out {
		if !strings.HasPrefix(l, "? ") {
			lines = append(lines, l)
		}
	}
	return lines
}

func newEnv(api *fakeAPI, answers ...string) (*Env, *fakeConsole) {
	c := &fakeConsole{answers: answers}
	return &Env{
		LoadCredentials: func() (*creds.Credentials, error) {
			return &creds.Credentials{IssuerID: "issuer", KeyID: "KEY", PrivateKeyPath: "/key.p8"}, nil
		},
		Connect: func(*creds.Credentials) (API, error) { return api, nil },
		Console: c,
		Theme:   console.Plain,
	}, c
}
