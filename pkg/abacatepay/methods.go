package abacatepay

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPaymentMethods is returned when a method list selects nothing.
var ErrNoPaymentMethods = errors.New("abacatepay: at least one payment method is required")

// DefaultPaymentMethods accepts both PIX and card.
func DefaultPaymentMethods() []PaymentMethod {
	return []PaymentMethod{MethodPIX, MethodCard}
}

// ParsePaymentMethods parses a comma separated subset of PIX and CARD.
func ParsePaymentMethods(raw string) ([]PaymentMethod, error) {
	seen := make(map[PaymentMethod]struct{}, 2)
	methods := make([]PaymentMethod, 0, 2)
	for _, part := range strings.Split(raw, ",") {
		method := PaymentMethod(strings.ToUpper(strings.TrimSpace(part)))
		if method == "" {
			continue
		}
		if method != MethodPIX && method != MethodCard {
			return nil, fmt.Errorf("abacatepay: unsupported payment method %q", string(method))
		}
		if _, dup := seen[method]; dup {
			continue
		}
		seen[method] = struct{}{}
		methods = append(methods, method)
	}
	if len(methods) == 0 {
		return nil, ErrNoPaymentMethods
	}
	return methods, nil
}
