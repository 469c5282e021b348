package routes

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fr0stylo/abacate/internal/app/domain"
	"github.com/fr0stylo/abacate/internal/app/ports"
	appservices "github.com/fr0stylo/abacate/internal/app/services"
	"github.com/fr0stylo/abacate/internal/observability"
	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

// GatewayService is the checkout gateway surface used by the admin API.
type GatewayService interface {
	Settings() appservices.SettingsView
	Order(ctx context.Context, orderID int64) (domain.Order, error)
	CreateCharge(ctx context.Context, orderID int64) (appservices.Charge, error)
	CreatePixCharge(ctx context.Context, orderID int64) (appservices.PixCharge, error)
	ProcessRefund(ctx context.Context, orderID int64, amount decimal.Decimal, reason string) error
	PaymentLink(ctx context.Context, orderID int64) (appservices.PaymentLink, error)
	StoreInfo(ctx context.Context) (abacatepay.Store, error)
	Billing(ctx context.Context, billingID string) (abacatepay.Billing, error)
	SimulatePixPayment(ctx context.Context, pixID string) (abacatepay.PixQRCode, error)
}

// APIRoutes registers the JWT-protected admin API.
type APIRoutes struct {
	gateway GatewayService
	audit   ports.WebhookAuditStore
	secret  string
}

// NewAPIRoutes constructs admin API routes.
func NewAPIRoutes(gateway GatewayService, audit ports.WebhookAuditStore, adminSecret string) *APIRoutes {
	return &APIRoutes{gateway: gateway, audit: audit, secret: adminSecret}
}

// RegisterRoutes registers API endpoints.
func (a *APIRoutes) RegisterRoutes(s *echo.Echo) {
	api := s.Group("/api", RequireAdminJWT(a.secret))

	api.GET("/gateway", a.handleGatewaySettings)

	orders := api.Group("/orders/:id", withOrderID)
	orders.GET("", a.handleGetOrder)
	orders.POST("/charge", a.handleCreateCharge)
	orders.POST("/pix", a.handleCreatePixCharge)
	orders.POST("/refund", a.handleRefund)
	orders.GET("/payment", a.handlePaymentLink)

	api.GET("/provider/store", a.handleProviderStore)
	api.GET("/provider/billing/:id", a.handleProviderBilling)
	api.POST("/provider/pix/:id/simulate", a.handleSimulatePix)

	api.GET("/webhooks/events", a.handleWebhookEvents)
}

func (a *APIRoutes) handleGatewaySettings(c echo.Context) error {
	return c.JSON(http.StatusOK, a.gateway.Settings())
}

func withOrderID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || orderID <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
		}
		ctx := observability.WithOrderID(c.Request().Context(), orderID)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Set("orderID", orderID)
		return next(c)
	}
}

func orderIDParam(c echo.Context) int64 {
	orderID, _ := c.Get("orderID").(int64)
	return orderID
}

// chargeErrorResponse maps gateway failures to status codes. Unclassified
// errors fall through to echo's error handler as 500.
func chargeErrorResponse(c echo.Context, err error) error {
	body := map[string]any{"error": err.Error()}
	switch appservices.ClassifyChargeError(err) {
	case appservices.ChargeErrorDisabled, appservices.ChargeErrorConflict:
		return c.JSON(http.StatusConflict, body)
	case appservices.ChargeErrorOrderNotFound:
		return c.JSON(http.StatusNotFound, map[string]any{"error": "order not found"})
	case appservices.ChargeErrorProvider:
		var chargeErr *appservices.ChargeError
		body["retryable"] = errors.As(err, &chargeErr) && chargeErr.Retryable
		return c.JSON(http.StatusBadGateway, body)
	case appservices.ChargeErrorNoBillingID, appservices.ChargeErrorInvalidAmount:
		return c.JSON(http.StatusUnprocessableEntity, body)
	case appservices.ChargeErrorNotDevMode:
		return c.JSON(http.StatusForbidden, body)
	default:
		return err
	}
}

// providerErrorResponse maps raw Provider Client errors from diagnostics.
func providerErrorResponse(c echo.Context, err error) error {
	if errors.Is(err, appservices.ErrNotDevMode) {
		return c.JSON(http.StatusForbidden, map[string]any{"error": err.Error()})
	}
	var apiErr *abacatepay.APIError
	if errors.Is(err, abacatepay.ErrMissingCredential) {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
	}
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return c.JSON(http.StatusNotFound, map[string]any{"error": apiErr.Message})
	}
	return c.JSON(http.StatusBadGateway, map[string]any{
		"error":     err.Error(),
		"retryable": abacatepay.IsRetryable(err),
	})
}
