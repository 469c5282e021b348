package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/abacate/internal/observability"
)

const adminSubjectContextKey = "adminSubject"

var errMissingToken = errors.New("missing bearer token")

// IssueAdminToken signs an HS256 admin token for subject.
func IssueAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("admin secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strings.TrimSpace(subject),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// RequireAdminJWT accepts requests carrying a valid HS256 bearer token.
func RequireAdminJWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject, err := parseAdminToken(c.Request().Header.Get(echo.HeaderAuthorization), key)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			ctx := observability.WithAdminSubject(c.Request().Context(), subject)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(adminSubjectContextKey, subject)
			return next(c)
		}
	}
}

// GetAdminSubject returns the authenticated operator subject.
func GetAdminSubject(c echo.Context) (string, bool) {
	subject, ok := c.Get(adminSubjectContextKey).(string)
	return subject, ok && subject != ""
}

func parseAdminToken(header string, key []byte) (string, error) {
	raw := strings.TrimSpace(header)
	if len(raw) < 7 || !strings.EqualFold(raw[:7], "bearer ") {
		return "", errMissingToken
	}
	raw = strings.TrimSpace(raw[7:])
	if raw == "" || len(key) == 0 {
		return "", errMissingToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}
