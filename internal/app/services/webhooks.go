package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fr0stylo/abacate/internal/app/domain"
	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/internal/observability"
	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

// DefaultNotifyTimeout bounds one background order event publish.
const DefaultNotifyTimeout = 5 * time.Second

var (
	// ErrNoPayload indicates an empty or non-object JSON body.
	ErrNoPayload = errors.New("no payload provided")
	// ErrInvalidSignature indicates the body was not signed with the current key.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrWebhookPanic wraps a recovered panic from a handler.
	ErrWebhookPanic = errors.New("webhook handler panic")
)

// WebhookErrorKind classifies webhook failures for transport mapping.
type WebhookErrorKind string

const (
	// WebhookErrorUnknown is used when error is nil or not classified.
	WebhookErrorUnknown WebhookErrorKind = "unknown"
	// WebhookErrorNoPayload indicates a missing or unparsable body.
	WebhookErrorNoPayload WebhookErrorKind = "no_payload"
	// WebhookErrorInvalidSignature indicates a signature mismatch.
	WebhookErrorInvalidSignature WebhookErrorKind = "invalid_signature"
)

// ClassifyWebhookError classifies a returned webhook error.
func ClassifyWebhookError(err error) WebhookErrorKind {
	switch {
	case err == nil:
		return WebhookErrorUnknown
	case errors.Is(err, ErrNoPayload):
		return WebhookErrorNoPayload
	case errors.Is(err, ErrInvalidSignature):
		return WebhookErrorInvalidSignature
	default:
		return WebhookErrorUnknown
	}
}

// WebhookOutcome names what a verified delivery did.
type WebhookOutcome string

const (
	OutcomeApplied         WebhookOutcome = "applied"
	OutcomeDuplicate       WebhookOutcome = "duplicate"
	OutcomeOrderNotFound   WebhookOutcome = "order_not_found"
	OutcomeMissingResource WebhookOutcome = "missing_resource_id"
	OutcomeIgnored         WebhookOutcome = "ignored"
	OutcomeLogged          WebhookOutcome = "logged"
	OutcomeUnknownEvent    WebhookOutcome = "unknown_event"
	OutcomeFailed          WebhookOutcome = "failed"
)

// WebhookCommand is transport-agnostic webhook input. Body must be the exact bytes received.
type WebhookCommand struct {
	SignatureHeader     string
	AuthorizationHeader string
	RemoteAddr          string
	Body                []byte
}

// WebhookResult describes a processed delivery.
type WebhookResult struct {
	DeliveryID   string
	Event        abacatepay.EventType
	RawEvent     string
	ResourceID   string
	OrderID      int64
	Outcome      WebhookOutcome
	StockReduced bool
}

type webhookPayload struct {
	Event string
	Data  map[string]any
}

func (p webhookPayload) resourceID() string {
	return stringValue(p.Data["id"])
}

// WebhookService authenticates Provider webhooks and reconciles orders.
type WebhookService struct {
	credentials abacatepay.Credentials
	store       ports.OrderStore
	locator     *OrderLocator
	audit       ports.WebhookAuditStore
	notifier    ports.OrderNotifier
	notifyWait  time.Duration
	inflight    sync.WaitGroup
	log         *slog.Logger
	now         func() time.Time
	newID       func() string
}

// WebhookOption customizes a WebhookService.
type WebhookOption func(*WebhookService)

// WithWebhookAudit records verified deliveries.
func WithWebhookAudit(audit ports.WebhookAuditStore) WebhookOption {
	return func(s *WebhookService) { s.audit = audit }
}

// WithWebhookNotifier publishes applied order changes. Publishing runs off the
// request path; each event gets at most timeout (DefaultNotifyTimeout when <= 0).
func WithWebhookNotifier(notifier ports.OrderNotifier, timeout time.Duration) WebhookOption {
	return func(s *WebhookService) {
		s.notifier = notifier
		if timeout > 0 {
			s.notifyWait = timeout
		}
	}
}

// WithWebhookLogger sets the logger.
func WithWebhookLogger(log *slog.Logger) WebhookOption {
	return func(s *WebhookService) {
		if log != nil {
			s.log = log
		}
	}
}

// NewWebhookService constructs the dispatcher. The verification secret is
// taken from settings.Credentials for the active mode.
func NewWebhookService(settings GatewaySettings, store ports.OrderStore, opts ...WebhookOption) *WebhookService {
	s := &WebhookService{
		credentials: settings.Credentials,
		store:       store,
		locator:     NewOrderLocator(store),
		log:         slog.Default(),
		now:         time.Now,
		newID:       uuid.NewString,
		notifyWait:  DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until order events published by earlier deliveries are done.
func (s *WebhookService) Wait() {
	s.inflight.Wait()
}

// Handle verifies and dispatches one delivery.
func (s *WebhookService) Handle(ctx context.Context, cmd WebhookCommand) (result WebhookResult, err error) {
	payload, err := decodeWebhookPayload(cmd.Body)
	if err != nil {
		return WebhookResult{}, err
	}

	signature := abacatepay.ResolveSignature(cmd.SignatureHeader, cmd.AuthorizationHeader)
	if !abacatepay.VerifySignature(cmd.Body, signature, s.credentials.Current()) {
		s.log.WarnContext(ctx, "abacatepay webhook signature rejected",
			"remote_addr", cmd.RemoteAddr,
			"signature_present", signature != "",
			"mode", s.credentials.Mode(),
			"event", payload.Event,
		)
		return WebhookResult{}, ErrInvalidSignature
	}

	deliveryID := s.newID()
	ctx = observability.WithDeliveryID(ctx, deliveryID)
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrWebhookPanic, recovered)
			result = WebhookResult{DeliveryID: deliveryID, RawEvent: payload.Event, Outcome: OutcomeFailed}
			s.log.ErrorContext(ctx, "abacatepay webhook panic", "error", err)
		}
	}()

	s.log.InfoContext(ctx, "abacatepay webhook received",
		"event", payload.Event,
		"payload", string(cmd.Body),
	)

	result, err = s.dispatch(ctx, payload)
	result.DeliveryID = deliveryID
	result.RawEvent = payload.Event
	if err != nil {
		result.Outcome = OutcomeFailed
		s.log.ErrorContext(ctx, "abacatepay webhook failed",
			"event", payload.Event,
			"error", err,
		)
	}
	s.record(ctx, result, cmd.Body, err)
	return result, err
}

func (s *WebhookService) dispatch(ctx context.Context, payload webhookPayload) (WebhookResult, error) {
	event := abacatepay.ParseEventType(payload.Event)
	switch event {
	case abacatepay.EventBillingPaid:
		return s.handlePaid(ctx, event, payload, s.locator.FindByBillingID, "Payment received via AbacatePay. Billing ID: %s")
	case abacatepay.EventPixPaid:
		return s.handlePaid(ctx, event, payload, s.locator.FindByPixID, "PIX payment received. ID: %s")
	case abacatepay.EventPixExpired:
		return s.handlePixExpired(ctx, payload)
	case abacatepay.EventWithdrawPaid:
		return s.handleWithdrawPaid(ctx, payload), nil
	default:
		s.log.InfoContext(ctx, "abacatepay webhook unknown event", "event", payload.Event)
		return WebhookResult{Event: event, Outcome: OutcomeUnknownEvent}, nil
	}
}

type orderFinder func(ctx context.Context, id string) (int64, bool, error)

func (s *WebhookService) handlePaid(ctx context.Context, event abacatepay.EventType, payload webhookPayload, find orderFinder, noteFormat string) (WebhookResult, error) {
	result, orderID, ok, err := s.resolve(ctx, event, payload, find)
	if !ok || err != nil {
		return result, err
	}

	change, err := s.store.Save(ctx, domain.OrderChange{
		OrderID:     orderID,
		Status:      domain.StatusProcessing,
		Notes:       []string{fmt.Sprintf(noteFormat, result.ResourceID)},
		ReduceStock: true,
	})
	switch {
	case errors.Is(err, ports.ErrOrderNotFound):
		s.log.InfoContext(ctx, "order not found for provider id", "event", event, "provider_id", result.ResourceID, "order_id", orderID)
		result.Outcome = OutcomeOrderNotFound
		return result, nil
	case errors.Is(err, ports.ErrIllegalTransition):
		s.log.WarnContext(ctx, "paid event ignored for order status", "event", event, "order_id", orderID, "error", err)
		result.Outcome = OutcomeIgnored
		return result, nil
	case err != nil:
		return result, fmt.Errorf("apply %s to order %d: %w", event, orderID, err)
	}

	result.StockReduced = change.StockReduced
	if change.PreviousStatus == domain.StatusProcessing && !change.StockReduced {
		result.Outcome = OutcomeDuplicate
		return result, nil
	}
	result.Outcome = OutcomeApplied
	s.notify(ctx, "paid", orderID, domain.StatusProcessing, result.ResourceID)
	return result, nil
}

func (s *WebhookService) handlePixExpired(ctx context.Context, payload webhookPayload) (WebhookResult, error) {
	event := abacatepay.EventPixExpired
	result, orderID, ok, err := s.resolve(ctx, event, payload, s.locator.FindByPixID)
	if !ok || err != nil {
		return result, err
	}

	_, err = s.store.Save(ctx, domain.OrderChange{
		OrderID:  orderID,
		Status:   domain.StatusCancelled,
		OnlyFrom: []domain.OrderStatus{domain.StatusPending, domain.StatusOnHold, domain.StatusFailed},
		Notes:    []string{fmt.Sprintf("PIX payment expired. ID: %s", result.ResourceID)},
	})
	switch {
	case errors.Is(err, ports.ErrOrderNotFound):
		result.Outcome = OutcomeOrderNotFound
		return result, nil
	case errors.Is(err, ports.ErrStatusPrecondition), errors.Is(err, ports.ErrIllegalTransition):
		s.log.InfoContext(ctx, "pix expiry ignored, order no longer awaiting payment", "order_id", orderID, "pix_id", result.ResourceID)
		result.Outcome = OutcomeIgnored
		return result, nil
	case err != nil:
		return result, fmt.Errorf("apply %s to order %d: %w", event, orderID, err)
	}

	result.Outcome = OutcomeApplied
	s.notify(ctx, "expired", orderID, domain.StatusCancelled, result.ResourceID)
	return result, nil
}

func (s *WebhookService) handleWithdrawPaid(ctx context.Context, payload webhookPayload) WebhookResult {
	result := WebhookResult{Event: abacatepay.EventWithdrawPaid, ResourceID: payload.resourceID()}
	if result.ResourceID == "" {
		result.Outcome = OutcomeMissingResource
		return result
	}

	amount := payload.Data["amount"]
	if amount == nil {
		amount = json.Number("0")
	}
	status := stringValue(payload.Data["status"])
	if status == "" {
		status = "unknown"
	}
	s.log.InfoContext(ctx, "abacatepay withdrawal paid",
		"event", string(abacatepay.EventWithdrawPaid),
		"withdraw_id", result.ResourceID,
		"amount", amount,
		"status", status,
	)
	result.Outcome = OutcomeLogged
	return result
}

// resolve extracts data.id and locates its order. ok is false when the
// delivery should be acknowledged without further work.
func (s *WebhookService) resolve(ctx context.Context, event abacatepay.EventType, payload webhookPayload, find orderFinder) (WebhookResult, int64, bool, error) {
	result := WebhookResult{Event: event, ResourceID: payload.resourceID()}
	if result.ResourceID == "" {
		s.log.InfoContext(ctx, "abacatepay webhook without resource id", "event", event)
		result.Outcome = OutcomeMissingResource
		return result, 0, false, nil
	}

	orderID, found, err := find(ctx, result.ResourceID)
	if err != nil {
		return result, 0, false, err
	}
	if !found {
		s.log.InfoContext(ctx, "order not found for provider id", "event", event, "provider_id", result.ResourceID)
		result.Outcome = OutcomeOrderNotFound
		return result, 0, false, nil
	}
	result.OrderID = orderID
	return result, orderID, true, nil
}

// notify publishes in the background so a slow sink never delays the
// response to the Provider. The change is already committed at this point.
func (s *WebhookService) notify(ctx context.Context, kind string, orderID int64, status domain.OrderStatus, providerID string) {
	if s.notifier == nil {
		return
	}
	event := ports.OrderEvent{
		Kind:       kind,
		OrderID:    orderID,
		Status:     string(status),
		ProviderID: providerID,
		OccurredAt: s.now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyWait)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		if err := s.notifier.NotifyOrderEvent(ctx, event); err != nil {
			s.log.WarnContext(ctx, "order event notification failed", "kind", kind, "order_id", orderID, "error", err)
		}
	}()
}

func (s *WebhookService) record(ctx context.Context, result WebhookResult, body []byte, handleErr error) {
	if s.audit == nil {
		return
	}
	detail := ""
	if handleErr != nil {
		detail = handleErr.Error()
	}
	err := s.audit.RecordWebhookEvent(ctx, ports.WebhookEventRecord{
		DeliveryID: result.DeliveryID,
		EventType:  result.RawEvent,
		ResourceID: result.ResourceID,
		OrderID:    result.OrderID,
		Outcome:    string(result.Outcome),
		Detail:     detail,
		Payload:    string(body),
		ReceivedAt: s.now().UTC(),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "record webhook event", "error", err)
	}
}

// decodeWebhookPayload accepts any non-empty JSON object. Fields with an
// unexpected shape degrade to empty values rather than rejecting the body.
func decodeWebhookPayload(body []byte) (webhookPayload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return webhookPayload{}, ErrNoPayload
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil || len(fields) == 0 {
		return webhookPayload{}, ErrNoPayload
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return webhookPayload{}, ErrNoPayload
	}

	payload := webhookPayload{Event: stringValue(fields["event"])}
	if data, ok := fields["data"].(map[string]any); ok {
		payload.Data = data
	}
	return payload, nil
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	default:
		return ""
	}
}
