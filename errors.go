package couch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned for a CouchDB answer unwraps to one of
// these, so callers can use errors.Is.
var (
	// ErrUnauthorized is returned when CouchDB rejects the credentials
	// or the session (HTTP 401/403).
	ErrUnauthorized = errors.New("couch: unauthorized")

	// ErrConflict is returned when a document or database already exists
	// or a revision is stale (HTTP 409/412).
	ErrConflict = errors.New("couch: conflict")

	// ErrNotFound is returned when a database or document does not exist.
	ErrNotFound = errors.New("couch: not found")

	// ErrUnexpectedStatus is returned for any status an operation does not model.
	ErrUnexpectedStatus = errors.New("couch: unexpected status")

	// ErrInvalidJSON is returned when a response body is not valid JSON.
	ErrInvalidJSON = errors.New("couch: invalid json response")

	// ErrInvalidDocument is returned by Save for a document it can't send.
	ErrInvalidDocument = errors.New("couch: invalid document")
)

// Error is a CouchDB answer that an operation could not treat as success.
// Type and Reason carry the "error" and "reason" fields of the response body.
type Error struct {
	StatusCode int
	Type       string
	Reason     string
	Body       json.RawMessage
	kind       error
}

func (e *Error) Error() string {
	typ := e.Type
	if typ == "" {
		typ = http.StatusText(e.StatusCode)
	}
	if e.Reason == "" {
		return fmt.Sprintf("couchdb: %s (status %d)", typ, e.StatusCode)
	}
	return "couchdb: " + typ + " (" + e.Reason + ")"
}

func (e *Error) Unwrap() error {
	return e.kind
}

// TransportError reports a failure to reach CouchDB or to read its answer.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("couch: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CouchDB error description as found in response bodies
type couchError struct {
	Type   string `json:"error"`
	Reason string `json:"reason"`
}

// newError builds an *Error of the given kind from a response.
func newError(kind error, resp *Response) *Error {
	e := &Error{kind: kind}
	if resp == nil {
		return e
	}
	e.StatusCode = resp.StatusCode
	e.Body = resp.Body
	var cErr couchError
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &cErr) == nil {
		e.Type, e.Reason = cErr.Type, cErr.Reason
	}
	return e
}

// statusError maps a non-success status to the matching error kind.
func statusError(resp *Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return newError(ErrUnauthorized, resp)
	case http.StatusNotFound:
		return newError(ErrNotFound, resp)
	case http.StatusConflict, http.StatusPreconditionFailed:
		return newError(ErrConflict, resp)
	default:
		return newError(ErrUnexpectedStatus, resp)
	}
}

// If an error originated from CouchDB, this convenience function
// returns its shortform error type (e.g. bad_request). If the error
// is from a different source, the function will return an empty string.
func ErrorType(err error) string {
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Type
	}
	return ""
}

// Reason returns the reason text CouchDB gave for err, or an empty string.
func Reason(err error) string {
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Reason
	}
	return ""
}

// IsConflict reports whether err is a conflict answer.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound reports whether err means the database or document is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
