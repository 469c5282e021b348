package abacatepay

import "strings"

// Credentials holds the development and production API keys. Exactly one is
// current, selected by DevMode, and it is used both for outbound calls and
// for webhook signature verification.
type Credentials struct {
	DevMode bool
	DevKey  string
	ProdKey string
}

// Current returns the key for the active mode.
func (c Credentials) Current() string {
	if c.DevMode {
		return strings.TrimSpace(c.DevKey)
	}
	return strings.TrimSpace(c.ProdKey)
}

// Mode names the active mode.
func (c Credentials) Mode() string {
	if c.DevMode {
		return "dev"
	}
	return "production"
}
