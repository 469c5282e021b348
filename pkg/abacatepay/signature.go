package abacatepay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
	SignatureHeader = "X-Abacatepay-Signature"
	// AuthorizationHeader is the fallback signature source for proxies that strip custom headers.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the Authorization scheme used by the fallback.
	BearerPrefix = "Bearer "
)

// Sign returns the hex HMAC-SHA256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature authenticates body under secret.
// Missing inputs fail closed.
func VerifySignature(body []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// ResolveSignature picks the signature from the dedicated header, falling back
// to an Authorization bearer token.
func ResolveSignature(signatureHeader, authorizationHeader string) string {
	if value := strings.TrimSpace(signatureHeader); value != "" {
		return value
	}
	if strings.HasPrefix(authorizationHeader, BearerPrefix) {
		return strings.TrimSpace(authorizationHeader[len(BearerPrefix):])
	}
	return ""
}

// SignatureFromHeaders applies ResolveSignature to request headers.
func SignatureFromHeaders(header http.Header) string {
	return ResolveSignature(header.Get(SignatureHeader), header.Get(AuthorizationHeader))
}
