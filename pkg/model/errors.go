package model

import (
	"errors"
	"fmt"
)

// PreconditionError reports missing or invalid input detected before any
// network call is made.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s %s", e.Field, e.Reason)
}

// FetchError reports a non-success HTTP status from the remote API.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// MalformedResponseError reports a response body that could not be decoded
// as a page.
type MalformedResponseError struct {
	URL string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.URL, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Protocol violations detected while paginating.
var (
	ErrTokenCycle = errors.New("continuation token repeated")
	ErrPageLimit  = errors.New("page limit exceeded")
)

// ProtocolError reports a server that does not make forward progress.
type ProtocolError struct {
	Err   error
	Token string
	Pages int
}

func (e *ProtocolError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("pagination protocol error after %d pages: %v (token %q)", e.Pages, e.Err, e.Token)
	}
	return fmt.Sprintf("pagination protocol error after %d pages: %v", e.Pages, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// CancelledError reports that the caller's context ended during a fetch.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("fetch cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// DeliveryError reports a failure handing results to a notifier or export sink.
type DeliveryError struct {
	Sink       string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("deliver to %s: status %d", e.Sink, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("deliver to %s: %v", e.Sink, e.Err)
	default:
		return fmt.Sprintf("deliver to %s failed", e.Sink)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }
