// Package fetchtest provides HTTP test servers and request matching helpers
// for clients built on package fetch.
package fetchtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
)

// BaseURL returns the URL of the server behind c, if c was returned by
// NewServer or NewTLSServer; otherwise it returns the empty string.
func BaseURL(c *http.Client) string {
	if tr, ok := c.Transport.(*httptestTransport); ok {
		return tr.baseURL.String()
	}
	return ""
}

// NewServer starts a server running h and returns a client that sends every
// request to it, regardless of the request's host. The server is closed when
// the test ends.
func NewServer(t *testing.T, h http.HandlerFunc) *http.Client {
	return newClient(t, httptest.NewServer(h))
}

// NewTLSServer is like NewServer but serves over TLS.
func NewTLSServer(t *testing.T, h http.HandlerFunc) *http.Client {
	return newClient(t, httptest.NewTLSServer(h))
}

func newClient(t *testing.T, s *httptest.Server) *http.Client {
	t.Cleanup(s.Close)
	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatal(err)
	}
	c := s.Client()
	c.Transport = &httptestTransport{
		base:    c.Transport,
		baseURL: u,
	}
	return c
}

type httptestTransport struct {
	base    http.RoundTripper
	baseURL *url.URL
}

func (tr *httptestTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context()) // per RoundTrip contract
	r.URL.Scheme = tr.baseURL.Scheme
	r.URL.Host = tr.baseURL.Host
	return tr.base.RoundTrip(r)
}

// Want reports whether r is for the given method and path pattern. The
// pattern is automatically anchored at both ends.
//
// It panics if the pattern is not a valid regular expression.
func Want(r *http.Request, method, pattern string) bool {
	exp := regexp.MustCompile("^" + pattern + "$")
	return r.Method == method && exp.MatchString(r.URL.Path)
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
