package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultEventsLimit = 50

func (a *APIRoutes) handleProviderStore(c echo.Context) error {
	store, err := a.gateway.StoreInfo(c.Request().Context())
	if err != nil {
		return providerErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, store)
}

func (a *APIRoutes) handleProviderBilling(c echo.Context) error {
	billingID := strings.TrimSpace(c.Param("id"))
	if billingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "billing id is required")
	}
	billing, err := a.gateway.Billing(c.Request().Context(), billingID)
	if err != nil {
		return providerErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, billing)
}

func (a *APIRoutes) handleSimulatePix(c echo.Context) error {
	pixID := strings.TrimSpace(c.Param("id"))
	if pixID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "pix id is required")
	}
	pix, err := a.gateway.SimulatePixPayment(c.Request().Context(), pixID)
	if err != nil {
		return providerErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, pix)
}

type webhookEventResponse struct {
	DeliveryID string `json:"delivery_id"`
	EventType  string `json:"event_type"`
	ResourceID string `json:"resource_id,omitempty"`
	OrderID    int64  `json:"order_id,omitempty"`
	Outcome    string `json:"outcome"`
	Detail     string `json:"detail,omitempty"`
	ReceivedAt string `json:"received_at"`
}

func (a *APIRoutes) handleWebhookEvents(c echo.Context) error {
	if a.audit == nil {
		return c.JSON(http.StatusOK, []webhookEventResponse{})
	}
	limit := defaultEventsLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		limit = parsed
	}
	records, err := a.audit.ListWebhookEvents(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	out := make([]webhookEventResponse, 0, len(records))
	for _, record := range records {
		out = append(out, webhookEventResponse{
			DeliveryID: record.DeliveryID,
			EventType:  record.EventType,
			ResourceID: record.ResourceID,
			OrderID:    record.OrderID,
			Outcome:    record.Outcome,
			Detail:     record.Detail,
			ReceivedAt: formatTime(record.ReceivedAt),
		})
	}
	return c.JSON(http.StatusOK, out)
}
