package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fr0stylo/abacate/internal/app/domain"
	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

var (
	// ErrGatewayDisabled indicates the payment method is switched off.
	ErrGatewayDisabled = errors.New("abacatepay gateway is disabled")
	// ErrChargeFailed matches every *ChargeError.
	ErrChargeFailed = errors.New("charge creation failed")
	// ErrMissingBillingID indicates a success response without a billing id.
	ErrMissingBillingID = errors.New("billing id not returned by provider")
	// ErrMissingPixID indicates a success response without a PIX id.
	ErrMissingPixID = errors.New("pix id not returned by provider")
	// ErrNoBillingID indicates the order was never charged through the provider.
	ErrNoBillingID = errors.New("order has no abacatepay billing id")
	// ErrInvalidAmount indicates a non-positive charge or refund amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotDevMode guards sandbox-only operations.
	ErrNotDevMode = errors.New("operation requires dev mode")
)

// ChargeError is a recoverable charge failure. The order is left unmodified.
type ChargeError struct {
	OrderID   int64
	Err       error
	Retryable bool
}

func (e *ChargeError) Error() string {
	return fmt.Sprintf("create charge for order %d: %v", e.OrderID, e.Err)
}

func (e *ChargeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrChargeFailed) match.
func (e *ChargeError) Is(target error) bool {
	return target == ErrChargeFailed
}

// ChargeErrorKind classifies gateway failures for transport mapping.
type ChargeErrorKind string

const (
	ChargeErrorUnknown       ChargeErrorKind = "unknown"
	ChargeErrorDisabled      ChargeErrorKind = "disabled"
	ChargeErrorOrderNotFound ChargeErrorKind = "order_not_found"
	ChargeErrorProvider      ChargeErrorKind = "provider"
	ChargeErrorNoBillingID   ChargeErrorKind = "no_billing_id"
	ChargeErrorInvalidAmount ChargeErrorKind = "invalid_amount"
	ChargeErrorNotDevMode    ChargeErrorKind = "not_dev_mode"
	ChargeErrorConflict      ChargeErrorKind = "conflict"
)

// ClassifyChargeError classifies a returned gateway error.
func ClassifyChargeError(err error) ChargeErrorKind {
	switch {
	case err == nil:
		return ChargeErrorUnknown
	case errors.Is(err, ErrGatewayDisabled):
		return ChargeErrorDisabled
	case errors.Is(err, ports.ErrOrderNotFound):
		return ChargeErrorOrderNotFound
	case errors.Is(err, ErrChargeFailed):
		return ChargeErrorProvider
	case errors.Is(err, ErrNoBillingID):
		return ChargeErrorNoBillingID
	case errors.Is(err, ErrInvalidAmount):
		return ChargeErrorInvalidAmount
	case errors.Is(err, ErrNotDevMode):
		return ChargeErrorNotDevMode
	case errors.Is(err, ports.ErrIllegalTransition), errors.Is(err, ports.ErrMetaImmutable), errors.Is(err, ports.ErrMetaConflict):
		return ChargeErrorConflict
	default:
		return ChargeErrorUnknown
	}
}

// Charge is the linkage between an order and a hosted billing.
type Charge struct {
	OrderID   int64  `json:"order_id"`
	BillingID string `json:"billing_id"`
	URL       string `json:"url"`
	Existing  bool   `json:"existing"`
}

// PixCharge is the linkage between an order and a PIX QR code.
type PixCharge struct {
	OrderID      int64  `json:"order_id"`
	PixID        string `json:"pix_id"`
	BrCode       string `json:"br_code,omitempty"`
	BrCodeBase64 string `json:"br_code_base64,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	Existing     bool   `json:"existing"`
}

// PaymentLink is what the thank-you page and emails show.
type PaymentLink struct {
	OrderID   int64              `json:"order_id"`
	BillingID string             `json:"billing_id"`
	URL       string             `json:"url"`
	Status    domain.OrderStatus `json:"status"`
}

// Gateway creates Provider charges for orders.
type Gateway struct {
	settings GatewaySettings
	store    ports.OrderStore
	provider ports.ProviderFactory
	notifier ports.OrderNotifier
	log      *slog.Logger
	now      func() time.Time
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayNotifier publishes applied order changes.
func WithGatewayNotifier(notifier ports.OrderNotifier) GatewayOption {
	return func(g *Gateway) { g.notifier = notifier }
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(log *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// NewGateway constructs a gateway. provider is bound to the current key on every call.
func NewGateway(settings GatewaySettings, store ports.OrderStore, provider ports.ProviderFactory, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		settings: settings,
		store:    store,
		provider: provider,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Settings returns the public settings projection.
func (g *Gateway) Settings() SettingsView {
	return g.settings.View()
}

// CreateCharge creates a hosted billing for the order and links it. An order
// already linked to a billing returns the stored linkage.
func (g *Gateway) CreateCharge(ctx context.Context, orderID int64) (Charge, error) {
	if !g.settings.Enabled {
		return Charge{}, ErrGatewayDisabled
	}
	order, err := g.store.GetOrder(ctx, orderID)
	if err != nil {
		return Charge{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if billingID := order.BillingID(); billingID != "" {
		return Charge{OrderID: orderID, BillingID: billingID, URL: order.BillingURL(), Existing: true}, nil
	}

	billing, err := g.client().CreateBilling(ctx, g.billingRequest(order))
	if err != nil {
		g.log.ErrorContext(ctx, "abacatepay billing creation failed", "order_id", orderID, "error", err)
		return Charge{}, &ChargeError{OrderID: orderID, Err: err, Retryable: abacatepay.IsRetryable(err)}
	}
	billingID := strings.TrimSpace(billing.ID)
	if billingID == "" {
		return Charge{}, &ChargeError{OrderID: orderID, Err: ErrMissingBillingID}
	}

	meta := map[string]string{domain.MetaBillingID: billingID}
	if url := strings.TrimSpace(billing.URL); url != "" {
		meta[domain.MetaBillingURL] = url
	}
	if _, err := g.store.Save(ctx, domain.OrderChange{
		OrderID: orderID,
		Status:  domain.StatusPending,
		Notes:   []string{fmt.Sprintf("AbacatePay charge created: %s", billingID)},
		Meta:    meta,
	}); err != nil {
		return Charge{}, fmt.Errorf("link billing %s to order %d: %w", billingID, orderID, err)
	}

	g.log.InfoContext(ctx, "abacatepay charge created", "order_id", orderID, "billing_id", billingID)
	g.notify(ctx, "charge_created", orderID, domain.StatusPending, billingID)
	return Charge{OrderID: orderID, BillingID: billingID, URL: billing.URL}, nil
}

// CreatePixCharge creates a PIX QR code for the order total and links its id.
func (g *Gateway) CreatePixCharge(ctx context.Context, orderID int64) (PixCharge, error) {
	if !g.settings.Enabled {
		return PixCharge{}, ErrGatewayDisabled
	}
	order, err := g.store.GetOrder(ctx, orderID)
	if err != nil {
		return PixCharge{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if pixID := order.PixID(); pixID != "" {
		return PixCharge{OrderID: orderID, PixID: pixID, Existing: true}, nil
	}
	amount := domain.MinorUnits(order.Total())
	if amount <= 0 {
		return PixCharge{}, fmt.Errorf("order %d total %s: %w", orderID, order.Total(), ErrInvalidAmount)
	}

	customer := g.customer(order)
	pix, err := g.client().CreatePixQRCode(ctx, abacatepay.CreatePixQRCodeRequest{
		Amount:      amount,
		ExpiresIn:   g.settings.pixExpiresInSeconds(),
		Description: fmt.Sprintf("Order #%d", orderID),
		Customer:    &customer,
	})
	if err != nil {
		g.log.ErrorContext(ctx, "abacatepay pix creation failed", "order_id", orderID, "error", err)
		return PixCharge{}, &ChargeError{OrderID: orderID, Err: err, Retryable: abacatepay.IsRetryable(err)}
	}
	pixID := strings.TrimSpace(pix.ID)
	if pixID == "" {
		return PixCharge{}, &ChargeError{OrderID: orderID, Err: ErrMissingPixID}
	}

	if _, err := g.store.Save(ctx, domain.OrderChange{
		OrderID: orderID,
		Status:  domain.StatusPending,
		Notes:   []string{fmt.Sprintf("AbacatePay PIX charge created: %s", pixID)},
		Meta:    map[string]string{domain.MetaPixID: pixID},
	}); err != nil {
		return PixCharge{}, fmt.Errorf("link pix %s to order %d: %w", pixID, orderID, err)
	}

	g.notify(ctx, "pix_created", orderID, domain.StatusPending, pixID)
	return PixCharge{
		OrderID:      orderID,
		PixID:        pixID,
		BrCode:       pix.BrCode,
		BrCodeBase64: pix.BrCodeBase64,
		ExpiresAt:    pix.ExpiresAt,
	}, nil
}

// ProcessRefund records a manual refund request. No money is moved.
func (g *Gateway) ProcessRefund(ctx context.Context, orderID int64, amount decimal.Decimal, reason string) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	order, err := g.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}
	billingID := order.BillingID()
	if billingID == "" {
		return ErrNoBillingID
	}

	note := fmt.Sprintf("Manual refund of %s requested. Billing ID: %s", formatAmount(amount, order.Currency), billingID)
	if reason = strings.TrimSpace(reason); reason != "" {
		note += ". Reason: " + reason
	}
	if _, err := g.store.Save(ctx, domain.OrderChange{OrderID: orderID, Notes: []string{note}}); err != nil {
		return fmt.Errorf("record refund note on order %d: %w", orderID, err)
	}
	g.notify(ctx, "refund_requested", orderID, order.Status, billingID)
	return nil
}

// PaymentLink returns the hosted payment page for an order.
func (g *Gateway) PaymentLink(ctx context.Context, orderID int64) (PaymentLink, error) {
	order, err := g.store.GetOrder(ctx, orderID)
	if err != nil {
		return PaymentLink{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if order.BillingID() == "" {
		return PaymentLink{}, ErrNoBillingID
	}
	return PaymentLink{OrderID: orderID, BillingID: order.BillingID(), URL: order.BillingURL(), Status: order.Status}, nil
}

// Order returns one order.
func (g *Gateway) Order(ctx context.Context, orderID int64) (domain.Order, error) {
	return g.store.GetOrder(ctx, orderID)
}

// StoreInfo returns the merchant account for the current key.
func (g *Gateway) StoreInfo(ctx context.Context) (abacatepay.Store, error) {
	return g.client().GetStore(ctx)
}

// Billing fetches a billing for the current key.
func (g *Gateway) Billing(ctx context.Context, billingID string) (abacatepay.Billing, error) {
	return g.client().GetBilling(ctx, billingID)
}

// SimulatePixPayment marks a sandbox PIX charge as paid.
func (g *Gateway) SimulatePixPayment(ctx context.Context, pixID string) (abacatepay.PixQRCode, error) {
	if !g.settings.Credentials.DevMode {
		return abacatepay.PixQRCode{}, ErrNotDevMode
	}
	return g.client().SimulatePixPayment(ctx, pixID, nil)
}

func (g *Gateway) client() ports.ProviderClient {
	return g.provider(g.settings.Credentials.Current())
}

func (g *Gateway) billingRequest(order domain.Order) abacatepay.CreateBillingRequest {
	products := make([]abacatepay.BillingProduct, 0, len(order.Items))
	for _, item := range order.Items {
		products = append(products, abacatepay.BillingProduct{
			ExternalID:  strconv.FormatInt(item.ProductID, 10),
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			Price:       domain.MinorUnits(item.UnitPrice),
		})
	}
	returnURL := g.settings.returnURL(order.ID)
	customer := g.customer(order)
	return abacatepay.CreateBillingRequest{
		Frequency:     abacatepay.FrequencyOneTime,
		Methods:       g.settings.methods(),
		Products:      products,
		ReturnURL:     returnURL,
		CompletionURL: returnURL,
		Customer:      &customer,
	}
}

func (g *Gateway) customer(order domain.Order) abacatepay.CustomerMetadata {
	return abacatepay.CustomerMetadata{
		Name:      order.Customer.FullName(),
		Cellphone: order.Customer.Phone,
		Email:     order.Customer.Email,
		TaxID:     g.taxID(order),
	}
}

// taxID uses the stored document, then the sandbox placeholder in dev mode,
// then empty.
func (g *Gateway) taxID(order domain.Order) string {
	if value := strings.TrimSpace(order.Meta[domain.MetaTaxID]); value != "" {
		return value
	}
	if g.settings.Credentials.DevMode {
		return placeholderTaxID
	}
	return ""
}

func (g *Gateway) notify(ctx context.Context, kind string, orderID int64, status domain.OrderStatus, providerID string) {
	if g.notifier == nil {
		return
	}
	err := g.notifier.NotifyOrderEvent(ctx, ports.OrderEvent{
		Kind:       kind,
		OrderID:    orderID,
		Status:     string(status),
		ProviderID: providerID,
		OccurredAt: g.now().UTC(),
	})
	if err != nil {
		g.log.WarnContext(ctx, "order event notification failed", "kind", kind, "order_id", orderID, "error", err)
	}
}

func formatAmount(amount decimal.Decimal, currency string) string {
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return amount.StringFixed(2)
	}
	return currency + " " + amount.StringFixed(2)
}
