// Package aggregate holds the per-category outcome of a scan and the
// complete, immutable result set produced once every category settles.
//
// A Result is a tagged union: it is either a success carrying the category's
// payload or a failure carrying the error. Readers that only want data call
// Payload, which substitutes the category default for a failure.
package aggregate

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/payload"
)

// Result is the settled outcome of one category.
type Result struct {
	category category.Category
	payload  payload.Payload
	err      error

	// Attempts is how many times the remote call was made.
	Attempts int
	// Duration covers every attempt including backoff.
	Duration time.Duration
}

// Success builds a successful result. It panics when p is not the payload
// type registered for c.
func Success(c category.Category, p payload.Payload) Result {
	want := reflect.TypeOf(category.Describe(c).Default())
	if p == nil || reflect.TypeOf(p) != want {
		panic(fmt.Sprintf("aggregate: %s payload must be %v, got %T", c, want, p))
	}
	return Result{category: c, payload: p, Attempts: 1}
}

// Failure builds a failed result. A nil err is replaced with ErrUnknownFailure
// so the result can never look successful.
func Failure(c category.Category, err error) Result {
	category.Describe(c)
	if err == nil {
		err = ErrUnknownFailure
	}
	return Result{category: c, err: err, Attempts: 1}
}

// WithTiming returns a copy of r carrying attempt count and elapsed time.
func (r Result) WithTiming(attempts int, d time.Duration) Result {
	r.Attempts = attempts
	r.Duration = d
	return r
}

// Category returns the category the result belongs to.
func (r Result) Category() category.Category { return r.category }

// OK reports whether the category succeeded.
func (r Result) OK() bool { return r.err == nil && r.payload != nil }

// Err returns the failure, or nil on success.
func (r Result) Err() error { return r.err }

// Reason returns the failure text, or "" on success.
func (r Result) Reason() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

// Kind returns the failure class reported by the error ("network",
// "protocol", ...), "internal" when the error does not classify itself, and
// "" on success.
func (r Result) Kind() string {
	if r.err == nil {
		return ""
	}
	var k interface{ Kind() string }
	if errors.As(r.err, &k) {
		return k.Kind()
	}
	return "internal"
}

// Payload returns a copy of the realized payload, or the category default
// when the category failed. It never returns nil for a result built by
// Success or Failure.
func (r Result) Payload() payload.Payload {
	if r.OK() {
		return r.payload.Clone()
	}
	return category.Describe(r.category).Default()
}
