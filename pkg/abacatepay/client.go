package abacatepay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Provider API root.
	DefaultBaseURL = "https://api.abacatepay.com/v1"
	// DefaultTimeout bounds every Provider call.
	DefaultTimeout   = 30 * time.Second
	maxResponseBytes = 4 << 20
)

// Client calls the Provider REST API. The zero value targets DefaultBaseURL
// with DefaultTimeout and no API key.
type Client struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// WithAPIKey returns a copy of the client using key.
func (c Client) WithAPIKey(key string) Client {
	c.APIKey = key
	return c
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

// CreateBilling creates a hosted billing.
func (c Client) CreateBilling(ctx context.Context, req CreateBillingRequest) (Billing, error) {
	var out Billing
	err := c.do(ctx, http.MethodPost, "/billing/create", nil, req, &out)
	return out, err
}

// GetBilling fetches one billing by id.
func (c Client) GetBilling(ctx context.Context, id string) (Billing, error) {
	var out Billing
	err := c.do(ctx, http.MethodGet, "/billing/get", idQuery(id), nil, &out)
	return out, err
}

// ListBillings lists the store billings.
func (c Client) ListBillings(ctx context.Context) ([]Billing, error) {
	var out []Billing
	err := c.do(ctx, http.MethodGet, "/billing/list", nil, nil, &out)
	return out, err
}

// CreateCustomer registers a customer.
func (c Client) CreateCustomer(ctx context.Context, req CustomerMetadata) (Customer, error) {
	var out Customer
	err := c.do(ctx, http.MethodPost, "/customer/create", nil, req, &out)
	return out, err
}

// ListCustomers lists the store customers.
func (c Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	err := c.do(ctx, http.MethodGet, "/customer/list", nil, nil, &out)
	return out, err
}

// ErrCustomerNotFound is returned by GetCustomer when the id is not listed.
var ErrCustomerNotFound = errors.New("abacatepay: customer not found")

// GetCustomer resolves one customer. The API has no single-customer
// endpoint, so this filters the list.
func (c Client) GetCustomer(ctx context.Context, id string) (Customer, error) {
	customers, err := c.ListCustomers(ctx)
	if err != nil {
		return Customer{}, err
	}
	for _, customer := range customers {
		if customer.ID == id {
			return customer, nil
		}
	}
	return Customer{}, ErrCustomerNotFound
}

// CreatePixQRCode creates a PIX charge.
func (c Client) CreatePixQRCode(ctx context.Context, req CreatePixQRCodeRequest) (PixQRCode, error) {
	var out PixQRCode
	err := c.do(ctx, http.MethodPost, "/pixQrCode/create", nil, req, &out)
	return out, err
}

// CheckPixQRCode returns the status of a PIX charge.
func (c Client) CheckPixQRCode(ctx context.Context, id string) (PixStatus, error) {
	var out PixStatus
	err := c.do(ctx, http.MethodGet, "/pixQrCode/check", idQuery(id), nil, &out)
	return out, err
}

// SimulatePixPayment marks a dev-mode PIX charge as paid.
func (c Client) SimulatePixPayment(ctx context.Context, id string, metadata map[string]any) (PixQRCode, error) {
	var body any
	if len(metadata) > 0 {
		body = map[string]any{"metadata": metadata}
	}
	var out PixQRCode
	err := c.do(ctx, http.MethodPost, "/pixQrCode/simulate-payment", idQuery(id), body, &out)
	return out, err
}

// CreateCoupon creates a discount coupon.
func (c Client) CreateCoupon(ctx context.Context, req CreateCouponRequest) (Coupon, error) {
	var out Coupon
	err := c.do(ctx, http.MethodPost, "/coupon/create", nil, map[string]any{"data": req}, &out)
	return out, err
}

// ListCoupons lists the store coupons.
func (c Client) ListCoupons(ctx context.Context) ([]Coupon, error) {
	var out []Coupon
	err := c.do(ctx, http.MethodGet, "/coupon/list", nil, nil, &out)
	return out, err
}

// CreateWithdrawal requests a payout.
func (c Client) CreateWithdrawal(ctx context.Context, req CreateWithdrawalRequest) (Withdrawal, error) {
	var out Withdrawal
	err := c.do(ctx, http.MethodPost, "/withdraw/create", nil, req, &out)
	return out, err
}

// GetWithdrawal fetches one payout by id.
func (c Client) GetWithdrawal(ctx context.Context, id string) (Withdrawal, error) {
	var out Withdrawal
	err := c.do(ctx, http.MethodGet, "/withdraw/get", idQuery(id), nil, &out)
	return out, err
}

// ListWithdrawals lists payouts.
func (c Client) ListWithdrawals(ctx context.Context) ([]Withdrawal, error) {
	var out []Withdrawal
	err := c.do(ctx, http.MethodGet, "/withdraw/list", nil, nil, &out)
	return out, err
}

// GetStore returns the merchant account.
func (c Client) GetStore(ctx context.Context) (Store, error) {
	var out Store
	err := c.do(ctx, http.MethodGet, "/store/get", nil, nil, &out)
	return out, err
}

func (c Client) do(ctx context.Context, method, endpoint string, query url.Values, payload any, out any) error {
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" {
		return ErrMissingCredential
	}

	target := c.endpoint(endpoint, query)
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", BearerPrefix+apiKey)

	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logger().LogAttrs(ctx, slog.LevelWarn, "abacatepay api request failed",
			slog.String("method", method),
			slog.String("url", target),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return &TransportError{Method: method, URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Method: method, URL: target, Err: err}
	}

	c.logger().LogAttrs(ctx, slog.LevelInfo, "abacatepay api request",
		slog.String("method", method),
		slog.String("url", target),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
		slog.String("body", string(raw)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &InvalidResponseError{StatusCode: resp.StatusCode, Err: err}
	}
	if message, ok := envelopeError(env.Error); ok {
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &InvalidResponseError{StatusCode: resp.StatusCode, Err: errors.New("response has no data")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &InvalidResponseError{StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

func (c Client) endpoint(path string, query url.Values) string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	target := base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func idQuery(id string) url.Values {
	return url.Values{"id": []string{id}}
}

// errorMessage prefers error.message, then a string error field, then the raw body.
func errorMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if message, ok := envelopeError(env.Error); ok {
			return message
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return "unknown error"
}

func envelopeError(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return "", false
	}
	var structured struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && strings.TrimSpace(structured.Message) != "" {
		return structured.Message, true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return "", false
		}
		return text, true
	}
	return string(raw), true
}
