// Package asc is a small client for the parts of the App Store Connect API
// used to maintain TestFlight testers.
package asc

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"tfm.run/creds"
	"tfm.run/envknobs"
	"tfm.run/fetch"
)

// Error is an App Store Connect error response.
type Error struct {
	Status int           `json:"-"` // HTTP status code
	Errors []ErrorDetail `json:"errors"`
}

type ErrorDetail struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

func (e *Error) SetStatus(code int) { e.Status = code }

// Details returns each error as "code: detail", falling back to the title
// when there is no detail, joined by ", ". It returns "unknown error" if the
// response carried no errors.
func (e *Error) Details() string {
	if len(e.Errors) == 0 {
		return "unknown error"
	}
	var b strings.Builder
	for i, d := range e.Errors {
		if i > 0 {
			b.WriteString(", ")
		}
		msg := d.Detail
		if msg == "" {
			msg = d.Title
		}
		b.WriteString(d.Code)
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (e *Error) Error() string {
	return fmt.Sprintf("request failed with status code %d: %s", e.Status, e.Details())
}

const (
	audience      = "appstoreconnect-v1"
	tokenLifetime = 20 * time.Minute
)

type Client struct {
	IssuerID   string
	KeyID      string
	PrivateKey []byte // PEM encoded ES256 key, as downloaded (.p8)

	BaseURL    string // default is https://api.appstoreconnect.apple.com
	HTTPClient *http.Client
	Logf       func(format string, args ...any)

	// Debug, if set, logs every request and response body via Logf.
	Debug bool

	nowf     func() time.Time
	key      *ecdsa.PrivateKey
	token    string
	tokenExp time.Time
}

// FromCredentials returns a Client for c. The base URL and debug mode come
// from the environment; see package envknobs.
func FromCredentials(c *creds.Credentials) (*Client, error) {
	key, err := c.PrivateKey()
	if err != nil {
		return nil, err
	}
	return &Client{
		IssuerID:   c.IssuerID,
		KeyID:      c.KeyID,
		PrivateKey: key,
		BaseURL:    envknobs.ASCBaseURL(),
		Debug:      envknobs.ASCDebug(),
	}, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}

func (c *Client) now() time.Time {
	if c.nowf != nil {
		return c.nowf()
	}
	return time.Now()
}

func (c *Client) client() *http.Client {
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	if !c.Debug {
		return hc
	}
	traced := *hc
	traced.Transport = &tracingTransport{base: hc.Transport, logf: c.logf}
	return &traced
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return "https://api.appstoreconnect.apple.com"
}

// url returns the absolute URL for path with query q. Path segments supplied
// by callers must already be escaped.
func (c *Client) url(path string, q url.Values) string {
	u := c.baseURL() + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// resolve makes a pagination link absolute. App Store Connect returns
// absolute links, but relative ones are accepted.
func (c *Client) resolve(link string) string {
	if strings.HasPrefix(link, "/") {
		return c.baseURL() + link
	}
	return link
}

// bearer returns a signed API token, minting a new one when the cached
// token is within a minute of expiring.
func (c *Client) bearer() (fetch.Bearer, error) {
	now := c.now()
	if c.token != "" && now.Before(c.tokenExp.Add(-time.Minute)) {
		return fetch.Bearer(c.token), nil
	}
	if c.key == nil {
		key, err := jwt.ParseECPrivateKeyFromPEM(c.PrivateKey)
		if err != nil {
			return "", fmt.Errorf("asc: reading private key %s: %w", c.KeyID, err)
		}
		c.key = key
	}
	exp := now.Add(tokenLifetime)
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.IssuerID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"aud": audience,
	})
	tok.Header["kid"] = c.KeyID
	s, err := tok.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("asc: signing token: %w", err)
	}
	c.token, c.tokenExp = s, exp
	return fetch.Bearer(s), nil
}

// send performs an authenticated request and decodes a 2xx response into R.
// Non-2xx responses are returned as *Error when the body is an App Store
// Connect error document.
func send[R any](ctx context.Context, c *Client, method, urlStr string, body any) (R, error) {
	var zero R
	tok, err := c.bearer()
	if err != nil {
		return zero, err
	}
	c.logf("asc: %s %s", method, urlStr)
	return fetch.OK[R, *Error](ctx, c.client(), method, urlStr, body, tok)
}
