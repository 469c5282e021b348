package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/internal/db/queries"
)

// Fixed width keeps received_at sortable as text.
const receivedAtLayout = "2006-01-02T15:04:05.000000Z"

// RecordWebhookEvent appends a delivery to the audit log.
func (s *Store) RecordWebhookEvent(ctx context.Context, record ports.WebhookEventRecord) error {
	receivedAt := record.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	orderID := sql.NullInt64{}
	if record.OrderID > 0 {
		orderID = sql.NullInt64{Int64: record.OrderID, Valid: true}
	}
	return s.database.RecordWebhookEvent(ctx, queries.InsertWebhookEventParams{
		DeliveryID: record.DeliveryID,
		EventType:  record.EventType,
		ResourceID: record.ResourceID,
		OrderID:    orderID,
		Outcome:    record.Outcome,
		Detail:     record.Detail,
		Payload:    record.Payload,
		ReceivedAt: receivedAt.UTC().Format(receivedAtLayout),
	})
}

// ListWebhookEvents returns recent deliveries, newest first.
func (s *Store) ListWebhookEvents(ctx context.Context, limit int) ([]ports.WebhookEventRecord, error) {
	rows, err := s.database.ListWebhookEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	records := make([]ports.WebhookEventRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, ports.WebhookEventRecord{
			DeliveryID: row.DeliveryID,
			EventType:  row.EventType,
			ResourceID: row.ResourceID,
			OrderID:    row.OrderID.Int64,
			Outcome:    row.Outcome,
			Detail:     row.Detail,
			Payload:    row.Payload,
			ReceivedAt: parseTimestamp(row.ReceivedAt),
		})
	}
	return records, nil
}
