package workflow

import (
	"strings"

	"tfm.run/clierr"
)

// Window is the span of past usage that decides whether a tester is
// inactive. The zero Window means none was chosen. *Window implements
// flag.Value.
type Window struct {
	Value  string // as given on the command line, e.g. "30d"
	Period string // App Store Connect metrics period, e.g. "P30D"
	Label  string // for messages, e.g. "30 days"
}

var Windows = []Window{
	{"7d", "P7D", "7 days"},
	{"30d", "P30D", "30 days"},
	{"90d", "P90D", "90 days"},
	{"365d", "P365D", "365 days"},
}

// DefaultWindow is used when no window was chosen and none is asked for.
var DefaultWindow = Windows[1]

func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, w := range Windows {
		if w.Value == s {
			return w, nil
		}
	}
	return Window{}, clierr.Invalid("Unknown period %q. Use 7d, 30d, 90d, or 365d.", s)
}

func (w *Window) IsZero() bool { return w.Value == "" }

func (w *Window) String() string { return w.Value }

func (w *Window) Set(s string) error {
	v, err := ParseWindow(s)
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Scope is how far a purge removes testers. The empty Scope means none was
// chosen. *Scope implements flag.Value.
type Scope string

const (
	// ScopeTestFlight deletes testers from TestFlight, revoking access to
	// every app of the team.
	ScopeTestFlight Scope = "testflight"

	// ScopeGroupOnly removes testers from the purged beta group only.
	ScopeGroupOnly Scope = "group-only"
)

// Scopes lists every scope in menu order; the first is the default.
var Scopes = []Scope{ScopeTestFlight, ScopeGroupOnly}

var scopeLabels = map[Scope]string{
	ScopeTestFlight: "Remove from TestFlight entirely",
	ScopeGroupOnly:  "Remove from beta group only",
}

var scopeAliases = map[string]Scope{
	"testflight":      ScopeTestFlight,
	"testflight-wide": ScopeTestFlight,
	"group-only":      ScopeGroupOnly,
}

func ParseScope(s string) (Scope, error) {
	if v, ok := scopeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	return "", clierr.Invalid("Unknown removal scope %q. Use 'testflight' or 'group-only'.", s)
}

// Label describes s in menus.
func (s Scope) Label() string { return scopeLabels[s] }

func (s *Scope) String() string { return string(*s) }

func (s *Scope) Set(v string) error {
	p, err := ParseScope(v)
	if err != nil {
		return err
	}
	*s = p
	return nil
}
