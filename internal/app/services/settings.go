package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

const (
	placeholderTaxID    = "00000000000"
	orderIDPlaceholder  = "{order_id}"
	defaultPixExpiresIn = time.Hour
	defaultPaymentTitle = "AbacatePay"
)

// GatewaySettings is the read-only configuration shared by the checkout
// gateway and the webhook dispatcher.
type GatewaySettings struct {
	Enabled        bool
	Title          string
	Description    string
	Credentials    abacatepay.Credentials
	PaymentMethods []abacatepay.PaymentMethod
	WebhookURL     string
	ReturnURL      string
	PixExpiresIn   time.Duration
}

// SettingsView is the public projection of GatewaySettings. It never carries keys.
type SettingsView struct {
	Enabled        bool                       `json:"enabled"`
	Title          string                     `json:"title"`
	Description    string                     `json:"description"`
	Mode           string                     `json:"mode"`
	Configured     bool                       `json:"configured"`
	PaymentMethods []abacatepay.PaymentMethod `json:"payment_methods"`
	WebhookURL     string                     `json:"webhook_url"`
}

// View returns the public settings projection.
func (s GatewaySettings) View() SettingsView {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = defaultPaymentTitle
	}
	return SettingsView{
		Enabled:        s.Enabled,
		Title:          title,
		Description:    s.Description,
		Mode:           s.Credentials.Mode(),
		Configured:     s.Credentials.Current() != "",
		PaymentMethods: s.methods(),
		WebhookURL:     s.WebhookURL,
	}
}

func (s GatewaySettings) methods() []abacatepay.PaymentMethod {
	if len(s.PaymentMethods) > 0 {
		return append([]abacatepay.PaymentMethod(nil), s.PaymentMethods...)
	}
	return abacatepay.DefaultPaymentMethods()
}

func (s GatewaySettings) returnURL(orderID int64) string {
	return strings.ReplaceAll(s.ReturnURL, orderIDPlaceholder, strconv.FormatInt(orderID, 10))
}

func (s GatewaySettings) pixExpiresInSeconds() int {
	if s.PixExpiresIn <= 0 {
		return int(defaultPixExpiresIn.Seconds())
	}
	return int(s.PixExpiresIn.Seconds())
}
