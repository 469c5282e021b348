package abacatepay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/fr0stylo/abacate/internal/app/services"
	provider "github.com/fr0stylo/abacate/pkg/abacatepay"
)

const maxPayloadBytes = 1 << 20

// WebhookProcessor handles one verified-or-not delivery.
type WebhookProcessor interface {
	Handle(ctx context.Context, cmd services.WebhookCommand) (services.WebhookResult, error)
}

// Handler is the HTTP boundary for AbacatePay webhooks.
type Handler struct {
	service WebhookProcessor
	metrics webhookMetrics
}

// NewHandler constructs a webhook handler around the webhook service.
func NewHandler(service WebhookProcessor) *Handler {
	return &Handler{service: service, metrics: newWebhookMetrics()}
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// Handle reads, verifies and dispatches a webhook request.
// The returned error is for logging only; the response is always written.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	h.metrics.recordRequest(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		h.metrics.recordRejected(ctx, string(services.WebhookErrorNoPayload))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No payload provided"})
		return nil
	}

	result, err := h.service.Handle(ctx, services.WebhookCommand{
		SignatureHeader:     r.Header.Get(provider.SignatureHeader),
		AuthorizationHeader: r.Header.Get(provider.AuthorizationHeader),
		RemoteAddr:          r.RemoteAddr,
		Body:                body,
	})
	switch kind := services.ClassifyWebhookError(err); {
	case err == nil:
		h.metrics.recordOutcome(ctx, result.RawEvent, string(result.Outcome))
		writeJSON(w, http.StatusOK, successResponse{Success: true})
		return nil
	case kind == services.WebhookErrorNoPayload:
		h.metrics.recordRejected(ctx, string(kind))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No payload provided"})
		return nil
	case kind == services.WebhookErrorInvalidSignature:
		h.metrics.recordRejected(ctx, string(kind))
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid signature"})
		return nil
	default:
		h.metrics.recordFailure(ctx, result.RawEvent)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
