package abacatepay

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type webhookMetrics struct {
	requests metric.Int64Counter
	rejected metric.Int64Counter
	outcomes metric.Int64Counter
	failures metric.Int64Counter
}

func newWebhookMetrics() webhookMetrics {
	meter := otel.Meter("github.com/fr0stylo/abacate/internal/webhooks/abacatepay")
	requests, _ := meter.Int64Counter("abacate.webhook.requests")
	rejected, _ := meter.Int64Counter("abacate.webhook.rejected")
	outcomes, _ := meter.Int64Counter("abacate.webhook.outcomes")
	failures, _ := meter.Int64Counter("abacate.webhook.failures")
	return webhookMetrics{
		requests: requests,
		rejected: rejected,
		outcomes: outcomes,
		failures: failures,
	}
}

func (m webhookMetrics) recordRequest(ctx context.Context) {
	m.requests.Add(ctx, 1)
}

func (m webhookMetrics) recordRejected(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m webhookMetrics) recordOutcome(ctx context.Context, event, outcome string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}

func (m webhookMetrics) recordFailure(ctx context.Context, event string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}
