package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dbTracerName = "abacate/db"

type contextKey string

const (
	adminSubjectKey contextKey = "observability.admin_subject"
	orderIDKey      contextKey = "observability.order_id"
	deliveryIDKey   contextKey = "observability.delivery_id"
	requestIDKey    contextKey = "observability.request_id"
	routeKey        contextKey = "observability.route"
)

// Span is the application-level tracing span contract.
type Span interface {
	End()
	RecordError(error)
}

type otelSpan struct {
	inner trace.Span
}

// StartDBSpan starts a database tracing span for one query operation.
func StartDBSpan(ctx context.Context, queryName, operation string) (context.Context, Span) {
	queryName = strings.TrimSpace(queryName)
	if queryName == "" {
		queryName = "unknown"
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.system.name", "sqlite"),
		attribute.String("db.query_name", queryName),
		attribute.String("db.operation", strings.TrimSpace(operation)),
	}
	if subject, ok := AdminSubjectFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("enduser.id", subject))
	}
	if orderID, ok := OrderIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.Int64("abacate.order_id", orderID))
	}
	if deliveryID, ok := DeliveryIDFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("abacate.webhook.delivery_id", deliveryID))
	}

	ctx, span := otel.Tracer(dbTracerName).Start(ctx, "db."+queryName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, otelSpan{inner: span}
}

// WithAdminSubject records the authenticated operator on context and span.
func WithAdminSubject(ctx context.Context, subject string) context.Context {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, adminSubjectKey, subject)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("enduser.id", subject))
	return ctx
}

// WithOrderID records the order being worked on so DB spans and logs carry it.
func WithOrderID(ctx context.Context, orderID int64) context.Context {
	if orderID <= 0 {
		return ctx
	}
	ctx = context.WithValue(ctx, orderIDKey, orderID)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("abacate.order_id", orderID))
	return ctx
}

// WithDeliveryID tags work done for one verified webhook delivery.
func WithDeliveryID(ctx context.Context, deliveryID string) context.Context {
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, deliveryIDKey, deliveryID)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("abacate.webhook.delivery_id", deliveryID))
	return ctx
}

// WithRequestMetadata enriches context and current span with request metadata.
func WithRequestMetadata(ctx context.Context, requestID, route string) context.Context {
	requestID = strings.TrimSpace(requestID)
	route = strings.TrimSpace(route)
	if requestID != "" {
		ctx = context.WithValue(ctx, requestIDKey, requestID)
	}
	if route != "" {
		ctx = context.WithValue(ctx, routeKey, route)
	}
	setSpanRequestAttributes(ctx, requestID, route)
	return ctx
}

// AdminSubjectFromContext extracts the JWT subject of the operator.
func AdminSubjectFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(adminSubjectKey).(string)
	return value, ok && value != ""
}

// OrderIDFromContext extracts the order id set by WithOrderID.
func OrderIDFromContext(ctx context.Context) (int64, bool) {
	value, ok := ctx.Value(orderIDKey).(int64)
	return value, ok && value > 0
}

// DeliveryIDFromContext extracts the webhook delivery id.
func DeliveryIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(deliveryIDKey).(string)
	return value, ok && value != ""
}

// RequestIDFromContext extracts request id.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(requestIDKey).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// RouteFromContext extracts normalized route path.
func RouteFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(routeKey).(string)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func setSpanRequestAttributes(ctx context.Context, requestID, route string) {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 2)
	if requestID != "" {
		attrs = append(attrs, attribute.String("request.id", requestID))
	}
	if route != "" {
		attrs = append(attrs, attribute.String("http.route", route))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

func (s otelSpan) End() {
	if s.inner == nil {
		return
	}
	s.inner.End()
}

func (s otelSpan) RecordError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.RecordError(err)
	s.inner.SetStatus(codes.Error, err.Error())
}
