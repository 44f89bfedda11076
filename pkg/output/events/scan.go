package events

import (
	"time"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/category"
)

// ScanStarted is emitted once the precondition check passed, before any
// category is launched.
type ScanStarted struct {
	BaseEvent
	Categories []category.Category `json:"categories"`
}

// NewScanStarted creates a ScanStarted event.
func NewScanStarted(scanID, domain string, cats []category.Category) *ScanStarted {
	return &ScanStarted{
		BaseEvent:  base(EventTypeScanStarted, scanID, domain),
		Categories: cats,
	}
}

// CategorySettled is emitted when one category's operation resolved.
type CategorySettled struct {
	BaseEvent
	Category category.Category `json:"category"`
	OK       bool              `json:"ok"`
	Error    string            `json:"error,omitempty"`
	// Kind is "network", "protocol" or "internal" for failures.
	Kind       string `json:"kind,omitempty"`
	Attempts   int    `json:"attempts"`
	Items      int    `json:"items"`
	DurationMs int64  `json:"duration_ms"`

	elapsed time.Duration
}

// NewCategorySettled creates a CategorySettled event from a settled result.
func NewCategorySettled(scanID, domain string, r aggregate.Result) *CategorySettled {
	return &CategorySettled{
		BaseEvent:  base(EventTypeCategorySettled, scanID, domain),
		Category:   r.Category(),
		OK:         r.OK(),
		Error:      r.Reason(),
		Kind:       r.Kind(),
		Attempts:   r.Attempts,
		Items:      r.Payload().Len(),
		DurationMs: r.Duration.Milliseconds(),
		elapsed:    r.Duration,
	}
}

// Elapsed is the category's wall time across all attempts.
func (e *CategorySettled) Elapsed() time.Duration { return e.elapsed }

// ScanSettled is emitted after the aggregate is built, before it is returned
// to the caller.
type ScanSettled struct {
	BaseEvent
	Succeeded  int                 `json:"succeeded"`
	Failed     []category.Category `json:"failed"`
	DurationMs int64               `json:"duration_ms"`

	elapsed time.Duration
}

// NewScanSettled creates a ScanSettled event for a built aggregate.
func NewScanSettled(agg *aggregate.Aggregate) *ScanSettled {
	return &ScanSettled{
		BaseEvent:  base(EventTypeScanSettled, agg.ScanID, agg.Domain),
		Succeeded:  agg.Succeeded(),
		Failed:     agg.Failed(),
		DurationMs: agg.Duration().Milliseconds(),
		elapsed:    agg.Duration(),
	}
}

// Elapsed is the scan's wall time from start to settlement.
func (e *ScanSettled) Elapsed() time.Duration { return e.elapsed }

// AllFailed reports whether no category succeeded.
func (e *ScanSettled) AllFailed() bool { return e.Succeeded == 0 }
