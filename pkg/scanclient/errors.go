package scanclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/httpclient"
)

var (
	// ErrNetwork means the backend could not be reached or did not answer
	// with a success status.
	ErrNetwork = errors.New("network error")

	// ErrProtocol means the backend answered but the reply could not be
	// interpreted.
	ErrProtocol = errors.New("protocol error")

	// ErrEmptyRequest is returned for a request without a domain. No call is
	// made.
	ErrEmptyRequest = errors.New("scanclient: empty domain")

	// ErrInvalidBaseURL is returned by New for a backend address that is not
	// an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("scanclient: invalid backend URL")
)

// Error describes why one category call failed. It matches ErrNetwork or
// ErrProtocol with errors.Is, as well as the underlying cause.
type Error struct {
	Category category.Category
	// StatusCode is the backend's HTTP status, 0 when no reply arrived.
	StatusCode int
	// Cause classifies transport failures; empty otherwise.
	Cause httpclient.Cause
	Err   error

	class error
}

func networkError(c category.Category, status int, err error) *Error {
	return &Error{Category: c, StatusCode: status, Cause: httpclient.Classify(err), Err: err, class: ErrNetwork}
}

func protocolError(c category.Category, status int, err error) *Error {
	return &Error{Category: c, StatusCode: status, Err: err, class: ErrProtocol}
}

// Kind returns "network" or "protocol".
func (e *Error) Kind() string {
	if e.class == ErrProtocol {
		return "protocol"
	}
	return "network"
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Category, e.class, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %v: HTTP %d %s", e.Category, e.class, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("%s: %v", e.Category, e.class)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.class}
	}
	return []error{e.class, e.Err}
}

// Retryable reports whether repeating the call could succeed: network
// failures other than cancellation and 4xx replies (429 excepted).
// Protocol errors are never retryable.
func Retryable(err error) bool {
	var se *Error
	if !errors.As(err, &se) || se.class != ErrNetwork {
		return false
	}
	if se.Cause == httpclient.CauseCanceled {
		return false
	}
	if se.StatusCode >= 400 && se.StatusCode < 500 {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode == http.StatusRequestTimeout
	}
	return true
}
