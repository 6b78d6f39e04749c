// Package clierr defines the errors tfm reports to the operator.
package clierr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	InvalidInput Kind = iota + 1
	CredentialsNotFound
	PrivateKeyNotFound
	VerificationFailed
	APIFailure
)

var kindNames = map[Kind]string{
	InvalidInput:        "invalid input",
	CredentialsNotFound: "credentials not found",
	PrivateKeyNotFound:  "private key not found",
	VerificationFailed:  "verification failed",
	APIFailure:          "api failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a terminal error for a single invocation. Its message is meant to
// be printed as-is on one line.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // underlying cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case VerificationFailed:
		return "Verification failed: " + e.Msg
	case APIFailure:
		return "API request failed: " + e.Msg
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of kind k whose message is err's message.
func Wrap(k Kind, err error) error {
	return &Error{Kind: k, Msg: err.Error(), Err: err}
}

func Invalid(format string, args ...any) error {
	return New(InvalidInput, format, args...)
}

// Is reports whether any error in err's chain is an Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
