package ports

import (
	"context"
	"time"
)

// WebhookEventRecord is one verified webhook delivery and its outcome.
type WebhookEventRecord struct {
	DeliveryID string
	EventType  string
	ResourceID string
	OrderID    int64
	Outcome    string
	Detail     string
	Payload    string
	ReceivedAt time.Time
}

// WebhookAuditStore persists verified deliveries.
type WebhookAuditStore interface {
	RecordWebhookEvent(ctx context.Context, record WebhookEventRecord) error
	ListWebhookEvents(ctx context.Context, limit int) ([]WebhookEventRecord, error)
}

// OrderEvent is published after an order change is applied.
type OrderEvent struct {
	Kind       string
	OrderID    int64
	Status     string
	ProviderID string
	OccurredAt time.Time
}

// OrderNotifier publishes order events.
type OrderNotifier interface {
	NotifyOrderEvent(ctx context.Context, event OrderEvent) error
}
