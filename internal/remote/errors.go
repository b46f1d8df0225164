package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Rejection is a completed call the collaborator refused on business rules.
// Message is the collaborator's text and is shown to the user verbatim.
type Rejection struct {
	Status  int
	Message string
}

func (e *Rejection) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rejected with status %d", e.Status)
	}
	return e.Message
}

// NotFound reports a 404 rejection.
func (e *Rejection) NotFound() bool { return e.Status == http.StatusNotFound }

// Reject builds a Rejection with a formatted message.
func Reject(status int, format string, args ...any) *Rejection {
	return &Rejection{Status: status, Message: fmt.Sprintf(format, args...)}
}

// TransportError is a call that did not complete (network, timeout, an
// undecodable response).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}

// RejectionMessage returns the collaborator text carried by err, if any.
func RejectionMessage(err error) (string, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Message, true
	}
	return "", false
}
