// Package events defines the lifecycle events a scan emits.
// Events are JSON-serializable so they can be logged or forwarded verbatim.
//
// Every scan produces exactly one ScanStarted, one CategorySettled per
// category, and one ScanSettled, in that order for the scan as a whole.
// CategorySettled events of one scan arrive in no particular order.
package events

import "time"

// EventType represents the type of a lifecycle event.
type EventType string

const (
	// EventTypeScanStarted indicates a scan was accepted and its categories launched.
	EventTypeScanStarted EventType = "scan_started"
	// EventTypeCategorySettled indicates one category produced a success or failure.
	EventTypeCategorySettled EventType = "category_settled"
	// EventTypeScanSettled indicates every category settled and the aggregate was built.
	EventTypeScanSettled EventType = "scan_settled"
)

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	ScanID() string
}

// BaseEvent contains common fields for all events.
// It is designed to be embedded in specific event types.
type BaseEvent struct {
	Type   EventType `json:"type"`
	Time   time.Time `json:"timestamp"`
	Scan   string    `json:"scan_id"`
	Domain string    `json:"domain"`
}

// EventType returns the type of this event.
func (e BaseEvent) EventType() EventType { return e.Type }

// Timestamp returns when this event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// ScanID returns the unique identifier for the scan that produced this event.
func (e BaseEvent) ScanID() string { return e.Scan }

func base(t EventType, scanID, domain string) BaseEvent {
	return BaseEvent{Type: t, Time: time.Now(), Scan: scanID, Domain: domain}
}
