package asc

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"kr.dev/errorfmt"
	"tfm.run/clierr"
	"tfm.run/roster"
)

const pageLimit = "200"

const testerFields = "firstName,lastName,email,state"

type linkage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type appResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Name     string `json:"name"`
		BundleID string `json:"bundleId"`
	} `json:"attributes"`
}

type betaGroupResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Name         string `json:"name"`
		PublicLink   string `json:"publicLink"`
		PublicLinkID string `json:"publicLinkId"`
	} `json:"attributes"`
	Relationships struct {
		App struct {
			Data *linkage `json:"data"`
		} `json:"app"`
	} `json:"relationships"`
}

func (r betaGroupResource) group() roster.Group {
	g := roster.Group{
		ID:           r.ID,
		Name:         r.Attributes.Name,
		PublicLink:   r.Attributes.PublicLink,
		PublicLinkID: r.Attributes.PublicLinkID,
	}
	if d := r.Relationships.App.Data; d != nil {
		g.AppID = d.ID
	}
	return g
}

type betaTesterResource struct {
	ID         string `json:"id"`
	Attributes struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		State     string `json:"state"`
	} `json:"attributes"`
}

func testers(rr []betaTesterResource) []roster.Tester {
	tt := make([]roster.Tester, 0, len(rr))
	for _, r := range rr {
		tt = append(tt, roster.Tester{
			ID:        r.ID,
			FirstName: r.Attributes.FirstName,
			LastName:  r.Attributes.LastName,
			Email:     r.Attributes.Email,
			State:     r.Attributes.State,
		})
	}
	return tt
}

// Apps returns every app visible to the API key, sorted by name.
func (c *Client) Apps(ctx context.Context) (_ []roster.App, err error) {
	defer errorfmt.Handlef("asc: listing apps: %w", &err)
	rr, err := Slurp[appResource](ctx, c, c.url("/v1/apps", url.Values{
		"sort":         {"name"},
		"fields[apps]": {"name,bundleId"},
		"limit":        {pageLimit},
	}))
	if err != nil {
		return nil, err
	}
	apps := make([]roster.App, 0, len(rr))
	for _, r := range rr {
		apps = append(apps, roster.App{
			ID:       r.ID,
			Name:     r.Attributes.Name,
			BundleID: r.Attributes.BundleID,
		})
	}
	return apps, nil
}

// BetaGroupsForApp returns the beta groups of an app.
func (c *Client) BetaGroupsForApp(ctx context.Context, appID string) (_ []roster.Group, err error) {
	defer errorfmt.Handlef("asc: listing beta groups of app %s: %w", appID, &err)
	rr, err := Slurp[betaGroupResource](ctx, c, c.url("/v1/apps/"+url.PathEscape(appID)+"/betaGroups", url.Values{
		"fields[betaGroups]": {"name,publicLink,publicLinkId"},
		"limit":              {pageLimit},
	}))
	if err != nil {
		return nil, err
	}
	groups := make([]roster.Group, 0, len(rr))
	for _, r := range rr {
		g := r.group()
		if g.AppID == "" {
			g.AppID = appID
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// BetaGroup returns a single beta group including the ID of the app it
// belongs to.
func (c *Client) BetaGroup(ctx context.Context, groupID string) (_ roster.Group, err error) {
	defer errorfmt.Handlef("asc: fetching beta group %s: %w", groupID, &err)
	doc, err := send[struct {
		Data betaGroupResource `json:"data"`
	}](ctx, c, "GET", c.url("/v1/betaGroups/"+url.PathEscape(groupID), url.Values{
		"fields[betaGroups]": {"name,app"},
		"include":            {"app"},
	}), nil)
	if err != nil {
		return roster.Group{}, err
	}
	return doc.Data.group(), nil
}

// BetaGroupTesters returns every tester in a beta group.
func (c *Client) BetaGroupTesters(ctx context.Context, groupID string) (_ []roster.Tester, err error) {
	defer errorfmt.Handlef("asc: listing testers of beta group %s: %w", groupID, &err)
	rr, err := Slurp[betaTesterResource](ctx, c, c.url("/v1/betaGroups/"+url.PathEscape(groupID)+"/betaTesters", url.Values{
		"fields[betaTesters]": {testerFields},
		"limit":               {pageLimit},
	}))
	if err != nil {
		return nil, err
	}
	return testers(rr), nil
}

// AppTesters returns every tester of an app, grouped or not.
func (c *Client) AppTesters(ctx context.Context, appID string) (_ []roster.Tester, err error) {
	defer errorfmt.Handlef("asc: listing testers of app %s: %w", appID, &err)
	rr, err := Slurp[betaTesterResource](ctx, c, c.url("/v1/betaTesters", url.Values{
		"filter[apps]":        {appID},
		"fields[betaTesters]": {testerFields},
		"limit":               {pageLimit},
	}))
	if err != nil {
		return nil, err
	}
	return testers(rr), nil
}

type linkages struct {
	Data []linkage `json:"data"`
}

func testerLinkages(ids []string) linkages {
	l := linkages{Data: make([]linkage, 0, len(ids))}
	for _, id := range ids {
		l.Data = append(l.Data, linkage{Type: "betaTesters", ID: id})
	}
	return l
}

// RemoveTestersFromGroup removes testers from a beta group. The testers
// keep access to the app through any other group.
func (c *Client) RemoveTestersFromGroup(ctx context.Context, groupID string, ids []string) (err error) {
	defer errorfmt.Handlef("asc: removing testers from beta group %s: %w", groupID, &err)
	_, err = send[struct{}](ctx, c, "DELETE",
		c.url("/v1/betaGroups/"+url.PathEscape(groupID)+"/relationships/betaTesters", nil),
		testerLinkages(ids))
	return err
}

// RemoveAppTesters revokes the testers' access to an app.
func (c *Client) RemoveAppTesters(ctx context.Context, appID string, ids []string) (err error) {
	defer errorfmt.Handlef("asc: removing testers from app %s: %w", appID, &err)
	_, err = send[struct{}](ctx, c, "DELETE",
		c.url("/v1/apps/"+url.PathEscape(appID)+"/relationships/betaTesters", nil),
		testerLinkages(ids))
	return err
}

// RemoveTesters deletes testers from TestFlight entirely, one request per
// tester. It stops at the first failure.
func (c *Client) RemoveTesters(ctx context.Context, ids []string) error {
	for _, id := range ids {
		_, err := send[struct{}](ctx, c, "DELETE", c.url("/v1/betaTesters/"+url.PathEscape(id), nil), nil)
		if err != nil {
			return fmt.Errorf("asc: deleting tester %s: %w", id, err)
		}
	}
	return nil
}

// Verify checks that the credentials are accepted by making the cheapest
// authenticated request available. Failures are reported as
// clierr.VerificationFailed.
func (c *Client) Verify(ctx context.Context) error {
	_, err := send[struct{}](ctx, c, "GET", c.url("/v1/apps", url.Values{"limit": {"1"}}), nil)
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &clierr.Error{
			Kind: clierr.VerificationFailed,
			Msg:  fmt.Sprintf("Request failed with status code %d. Details: %s.", e.Status, e.Details()),
			Err:  err,
		}
	}
	return clierr.Wrap(clierr.VerificationFailed, err)
}
