// Package events provides a lightweight in-process pub/sub bus for trading
// lifecycle notifications. Delivery is at-most-once and best-effort: a full
// subscriber buffer drops the event rather than blocking the publisher.
package events

import "time"

// Type identifies one kind of lifecycle event.
type Type string

const (
	SignalExpired   Type = "signal_expired"
	CooldownStarted Type = "cooldown_started"
	CooldownEnded   Type = "cooldown_ended"
	OrderSubmitted  Type = "order_submitted"
	PositionClosed  Type = "position_closed"
	ScanComplete    Type = "scan_complete"
	CycleComplete   Type = "cycle_complete"
)

// Event is one flat lifecycle record.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Ticker    string         `json:"ticker,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// New builds an Event stamped with the current time.
func New(t Type, ticker string, fields map[string]any) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now().UTC(),
		Ticker:    ticker,
		Fields:    fields,
	}
}
