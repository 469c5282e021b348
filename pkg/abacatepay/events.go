package abacatepay

import "strings"

// EventType is the webhook event tag.
type EventType string

const (
	EventBillingPaid  EventType = "billing.paid"
	EventPixPaid      EventType = "pix.paid"
	EventPixExpired   EventType = "pix.expired"
	EventWithdrawPaid EventType = "withdraw.paid"
	// EventUnrecognized is the catch-all for tags this package does not know.
	EventUnrecognized EventType = ""
)

// ParseEventType maps a raw tag onto the known set.
func ParseEventType(raw string) EventType {
	switch EventType(strings.TrimSpace(raw)) {
	case EventBillingPaid:
		return EventBillingPaid
	case EventPixPaid:
		return EventPixPaid
	case EventPixExpired:
		return EventPixExpired
	case EventWithdrawPaid:
		return EventWithdrawPaid
	default:
		return EventUnrecognized
	}
}
