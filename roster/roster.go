// Package roster models TestFlight apps, beta groups and testers, and
// computes which testers a maintenance run acts on.
//
// Everything in this package is a pure function of its inputs.
package roster

import (
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"tfm.run/values"
)

// Tester is a beta tester as returned by App Store Connect. Only ID is
// guaranteed to be set.
type Tester struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	State     string // e.g. "ACCEPTED", "INSTALLED"
}

// DisplayName returns "First Last <email>", falling back to the name alone,
// then the email alone, then the ID.
func (t Tester) DisplayName() string {
	var parts []string
	for _, s := range []string{t.FirstName, t.LastName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	name := strings.Join(parts, " ")
	email := strings.TrimSpace(t.Email)
	switch {
	case name != "" && email != "":
		return name + " <" + email + ">"
	case name != "":
		return name
	case email != "":
		return email
	default:
		return t.ID
	}
}

type App struct {
	ID       string
	Name     string
	BundleID string
}

// Group is a beta group. AppID is empty when the API response did not
// include the group's app relationship.
type Group struct {
	ID           string
	Name         string
	AppID        string
	PublicLink   string
	PublicLinkID string
}

// Usage maps a tester ID to its session count within some window. Testers
// absent from the map had no sessions.
type Usage map[string]int

// Add adds n sessions to the count for id.
func (u Usage) Add(id string, n int) {
	u[id] += n
}

// Inactive returns the testers in tt with no recorded sessions in u, in the
// order they appear in tt.
func Inactive(tt []Tester, u Usage) []Tester {
	var out []Tester
	for _, t := range tt {
		if u[t.ID] <= 0 {
			out = append(out, t)
		}
	}
	return out
}

// Ungrouped returns the testers in appTesters that are not a member of any
// of the given group rosters, in the order they appear in appTesters.
func Ungrouped(appTesters []Tester, groups [][]Tester) []Tester {
	var grouped values.Set[string]
	for _, members := range groups {
		grouped.Add(IDs(members)...)
	}
	var out []Tester
	for _, t := range appTesters {
		if !grouped.Has(t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// IDs returns the ID of each tester in tt.
func IDs(tt []Tester) []string {
	return values.MapFunc(tt, func(t Tester) string { return t.ID })
}

// SortByDisplayName returns a copy of tt ordered by display name using
// case-insensitive English collation. Testers whose names collate equally
// keep their relative order.
func SortByDisplayName(tt []Tester) []Tester {
	type keyed struct {
		name string
		t    Tester
	}
	kk := values.MapFunc(tt, func(t Tester) keyed {
		return keyed{t.DisplayName(), t}
	})
	c := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(kk, func(a, b keyed) bool {
		return c.CompareString(a.name, b.name) < 0
	})
	return values.MapFunc(kk, func(k keyed) Tester { return k.t })
}
