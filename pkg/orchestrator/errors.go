package orchestrator

import (
	"errors"
	"fmt"

	"github.com/waftester/reconsuite/pkg/category"
)

// Sentinel errors for orchestrator failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrPrecondition is the parent of every rejection RunScan makes before
	// launching anything. A rejected call has no side effect.
	ErrPrecondition = errors.New("orchestrator: precondition failed")

	// ErrEmptyDomain rejects a scan whose domain is empty or blank.
	ErrEmptyDomain = fmt.Errorf("%w: empty domain", ErrPrecondition)

	// ErrScanInProgress rejects a scan while another one is in flight.
	ErrScanInProgress = fmt.Errorf("%w: scan already in progress", ErrPrecondition)

	// ErrNoClient is returned by New without a scan client.
	ErrNoClient = errors.New("orchestrator: no scan client configured")

	// ErrCategoryPanic marks a category whose task panicked.
	ErrCategoryPanic = errors.New("orchestrator: category task panicked")

	// ErrInvalidResult marks a category whose client returned a result that
	// was empty or belonged to another category.
	ErrInvalidResult = errors.New("orchestrator: client returned an invalid result")
)

// PanicError carries the recovered value of a panicking category task.
type PanicError struct {
	Category category.Category
	Value    any
	Stack    []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrCategoryPanic, e.Category, e.Value)
}

func (e *PanicError) Unwrap() error { return ErrCategoryPanic }

// Kind classifies the failure for the aggregate.
func (e *PanicError) Kind() string { return "internal" }
