package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/fr0stylo/abacate/internal/app/domain"
	"github.com/fr0stylo/abacate/internal/app/ports"
)

// OrderLocator maps Provider ids back to local orders. It reads through to
// the store on every call.
type OrderLocator struct {
	store ports.OrderStore
}

// NewOrderLocator constructs a locator over store.
func NewOrderLocator(store ports.OrderStore) *OrderLocator {
	return &OrderLocator{store: store}
}

// FindByBillingID resolves the order linked to a billing id.
func (l *OrderLocator) FindByBillingID(ctx context.Context, billingID string) (int64, bool, error) {
	return l.find(ctx, domain.MetaBillingID, billingID)
}

// FindByPixID resolves the order linked to a PIX charge id.
func (l *OrderLocator) FindByPixID(ctx context.Context, pixID string) (int64, bool, error) {
	return l.find(ctx, domain.MetaPixID, pixID)
}

func (l *OrderLocator) find(ctx context.Context, key, value string) (int64, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, nil
	}
	ids, err := l.store.FindOrdersByMeta(ctx, key, value, 1)
	if err != nil {
		return 0, false, fmt.Errorf("find order by %s: %w", key, err)
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}
