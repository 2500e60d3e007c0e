// Package gwerror provides a small tagged error kind that the gateway
// projects to an HTTP status and body only at the dispatcher boundary,
// keeping library-specific error types out of the public contract.
package gwerror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the taxonomy buckets from the
// gateway's error handling design.
type Kind int

const (
	// KindInternal is the catch-all: transport failures, malformed
	// binary encodings, decompression errors. Maps to 500.
	KindInternal Kind = iota
	// KindBadRequest is "no canister could be resolved". Maps to 400.
	KindBadRequest
	// KindNotFound is "/_/ with no configured proxy". Maps to 404.
	KindNotFound
	// KindReplicaReject is a canister-call reject surfaced verbatim. Maps to 500.
	KindReplicaReject
	// KindVerification is a certification failure. Maps to 500.
	KindVerification
	// KindRootKey is the root-key bootstrap failure. Maps to 500.
	KindRootKey
)

// Error is a tagged error carrying the HTTP status and body the
// dispatcher should write for it. Message is always safe to return to
// the client for every Kind except KindInternal, whose Message is only
// surfaced when the gateway is running in debug mode.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for e.Kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindReplicaReject, KindVerification, KindRootKey, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest builds a KindBadRequest error with a fixed message.
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// NotFound builds a KindNotFound error with a fixed message.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// ReplicaReject builds the "Replica Error (<code>): <message>" error.
// Surfacing the reject verbatim is explicitly safe: the same information
// is retrievable by any client talking to the replica directly.
func ReplicaReject(code int64, message string) *Error {
	return &Error{
		Kind:    KindReplicaReject,
		Message: fmt.Sprintf("Replica Error (%d): %q", code, message),
	}
}

// Verification builds a certification-failure error with reason as the
// user-facing body.
func Verification(reason string) *Error {
	return &Error{Kind: KindVerification, Message: reason}
}

// RootKey builds the fixed root-key bootstrap failure error.
func RootKey(err error) *Error {
	return &Error{Kind: KindRootKey, Message: "Unable to fetch root key", Err: err}
}

// Internal wraps err as an internal error. detail is only ever shown to
// the client when the gateway runs with debug enabled.
func Internal(detail string, err error) *Error {
	return &Error{Kind: KindInternal, Message: detail, Err: err}
}

// As extracts a *Error from err, wrapping it as KindInternal if err does
// not already carry a tagged kind. This is the single place un-mapped
// failures become category 6, per the propagation policy.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// Body returns the response body the dispatcher should write for e,
// honoring debug mode for KindInternal. Every other kind returns
// Message alone, whatever debug is; its wrapped Err is never included.
func (e *Error) Body(debug bool) string {
	if e.Kind == KindInternal {
		if debug {
			return fmt.Sprintf("Internal Error: %v", e)
		}
		return "Internal Server Error"
	}
	return e.Message
}
