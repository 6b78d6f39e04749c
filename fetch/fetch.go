// Package fetch sends HTTP requests and decodes their responses into Go
// values.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"golang.org/x/exp/maps"
)

// Bearer is a request option that sets the Authorization header to
// "Bearer <token>".
type Bearer string

// Do sends a request to urlStr and interprets the response as R.
//
// The body may be nil (no body), an io.Reader, a string, or any other value,
// which is encoded as JSON. Options may be http.Header values, copied into
// the request headers, or a Bearer token.
//
// If R is *http.Response, the caller owns the response body; otherwise it is
// read and closed before Do returns. Do does not look at the status code.
func Do[R any](ctx context.Context, c *http.Client, method, urlStr string, body any, opts ...any) (R, error) {
	var zero R

	var isJSON bool
	var p io.Reader
	switch v := body.(type) {
	case nil:
	case io.Reader:
		p = v
	case string:
		p = strings.NewReader(v)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return zero, err
		}
		p = bytes.NewReader(data)
		isJSON = true
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, p)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Accept", "application/json")
	if isJSON {
		// Set this header now so that below the client's desired
		// content-type (if any) can clobber the default.
		req.Header.Set("Content-Type", "application/json")
	}

	for _, opt := range opts {
		switch v := opt.(type) {
		case http.Header:
			maps.Copy(req.Header, v)
		case Bearer:
			req.Header.Set("Authorization", "Bearer "+string(v))
		default:
			return zero, fmt.Errorf("fetch: unknown option type %T", opt)
		}
	}

	res, err := c.Do(req)
	if err != nil {
		return zero, err
	}
	return interpretDesiredResponse[R](res)
}

// StatusError is returned by OK when the server responds with a non-2xx
// status and a body that does not decode as the caller's error type.
type StatusError struct {
	Code   int
	Status string // e.g. "502 Bad Gateway"
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "unexpected status " + e.Status
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// StatusSetter may be implemented by error types passed to OK to learn the
// response status code.
type StatusSetter interface {
	SetStatus(code int)
}

// OK is like Do but treats any non-2xx response as an error. The response
// body of a failed request is decoded as JSON into E, which must be a type
// implementing error, typically a pointer to a struct. If the body is not
// valid JSON for E, OK returns a *StatusError.
func OK[R any, E error](ctx context.Context, c *http.Client, method, urlStr string, body any, opts ...any) (R, error) {
	var zero R
	res, err := Do[*http.Response](ctx, c, method, urlStr, body, opts...)
	if err != nil {
		return zero, err
	}

	if res.StatusCode/100 == 2 {
		return interpretDesiredResponse[R](res)
	}

	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return zero, err
	}
	var e E
	if err := json.Unmarshal(data, &e); err != nil || isNil(e) {
		return zero, &StatusError{
			Code:   res.StatusCode,
			Status: res.Status,
			Body:   strings.TrimSpace(string(data)),
		}
	}
	if s, ok := any(e).(StatusSetter); ok {
		s.SetStatus(res.StatusCode)
	}
	return zero, e
}

// isNil reports whether err is nil or a nil pointer, as left behind when the
// body was the JSON literal null.
func isNil(err error) bool {
	if err == nil {
		return true
	}
	v := reflect.ValueOf(err)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func interpretDesiredResponse[R any](res *http.Response) (R, error) {
	t := func(v any) R {
		return v.(R)
	}

	var zero R

	switch any(zero).(type) {
	case *http.Response:
		// caller is responsible for closing
		return t(res), nil
	case struct{}:
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
		return zero, nil
	case []byte:
		defer res.Body.Close()
		data, err := io.ReadAll(res.Body)
		return t(data), err // mimic same behavior as io.ReadAll
	default:
		var j R
		defer res.Body.Close()
		if err := json.NewDecoder(res.Body).Decode(&j); err != nil {
			if errors.Is(err, io.EOF) {
				// empty body, e.g. 204 No Content
				return zero, nil
			}
			return zero, err
		}
		return j, nil
	}
}
