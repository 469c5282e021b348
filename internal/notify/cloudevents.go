// Package notify publishes order lifecycle events as CloudEvents.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"

	"github.com/fr0stylo/abacate/internal/app/ports"
)

// EventTypePrefix prefixes every published event type, e.g. com.abacatepay.order.paid.
const EventTypePrefix = "com.abacatepay.order."

const defaultTimeout = 10 * time.Second

// ErrMissingTarget is returned when no sink URL is configured.
var ErrMissingTarget = errors.New("notify target is required")

// OrderEventData is the CloudEvent data payload.
type OrderEventData struct {
	OrderID    int64  `json:"orderId"`
	Status     string `json:"status"`
	ProviderID string `json:"providerId,omitempty"`
}

// CloudEventsNotifier sends order events to an HTTP CloudEvents sink.
type CloudEventsNotifier struct {
	client cloudevents.Client
	source string
	newID  func() string
}

// NewCloudEventsNotifier builds a binary-mode HTTP CloudEvents client for target.
func NewCloudEventsNotifier(target, source string, timeout time.Duration) (*CloudEventsNotifier, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, ErrMissingTarget
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = "abacate"
	}

	client, err := cloudevents.NewClientHTTP(
		cloudevents.WithTarget(target),
		cehttp.WithClient(http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create cloudevents client: %w", err)
	}
	return &CloudEventsNotifier{client: client, source: source, newID: uuid.NewString}, nil
}

// NotifyOrderEvent publishes one order event and waits for the sink to acknowledge it.
func (n *CloudEventsNotifier) NotifyOrderEvent(ctx context.Context, event ports.OrderEvent) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	ce := cloudevents.NewEvent()
	ce.SetID(n.newID())
	ce.SetSource(n.source)
	ce.SetType(EventTypePrefix + event.Kind)
	ce.SetSubject(strconv.FormatInt(event.OrderID, 10))
	ce.SetTime(occurredAt.UTC())
	if err := ce.SetData(cloudevents.ApplicationJSON, OrderEventData{
		OrderID:    event.OrderID,
		Status:     event.Status,
		ProviderID: event.ProviderID,
	}); err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}

	result := n.client.Send(ctx, ce)
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("publish order event %s: %w", ce.Type(), result)
	}
	return nil
}

var _ ports.OrderNotifier = (*CloudEventsNotifier)(nil)
