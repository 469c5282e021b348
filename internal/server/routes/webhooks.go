package routes

import (
	"github.com/labstack/echo/v4"

	abacatewebhook "github.com/fr0stylo/abacate/internal/webhooks/abacatepay"
)

// WebhookPath is fixed; the configured webhook URL is display only.
const WebhookPath = "/abacatepay/v1/webhook"

// WebhookRoutes registers webhook endpoints.
type WebhookRoutes struct {
	abacatepay *abacatewebhook.Handler
}

// NewWebhookRoutes constructs webhook routes.
func NewWebhookRoutes(processor abacatewebhook.WebhookProcessor) *WebhookRoutes {
	return &WebhookRoutes{
		abacatepay: abacatewebhook.NewHandler(processor),
	}
}

// RegisterRoutes registers webhook endpoints.
func (w *WebhookRoutes) RegisterRoutes(s *echo.Echo) {
	s.POST(WebhookPath, w.handleAbacatePayWebhook)
}

func (w *WebhookRoutes) handleAbacatePayWebhook(c echo.Context) error {
	// The handler always writes its own response; its error is logged, not rendered.
	if err := w.abacatepay.Handle(c.Response(), c.Request()); err != nil {
		c.Logger().Error(err)
	}
	return nil
}
