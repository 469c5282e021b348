package services

import (
	"context"
	"errors"
	"testing"

	"github.com/fr0stylo/abacate/internal/app/domain"
)

func TestOrderLocatorFindsLinkedOrder(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(
		domain.Order{ID: 7, Status: domain.StatusPending, Meta: map[string]string{domain.MetaBillingID: "bill_123"}},
		domain.Order{ID: 8, Status: domain.StatusPending, Meta: map[string]string{domain.MetaPixID: "pix_999"}},
	)
	locator := NewOrderLocator(store)
	ctx := context.Background()

	orderID, found, err := locator.FindByBillingID(ctx, "bill_123")
	if err != nil || !found || orderID != 7 {
		t.Fatalf("FindByBillingID: got=(%d,%v,%v) want=(7,true,nil)", orderID, found, err)
	}
	orderID, found, err = locator.FindByPixID(ctx, "pix_999")
	if err != nil || !found || orderID != 8 {
		t.Fatalf("FindByPixID: got=(%d,%v,%v) want=(8,true,nil)", orderID, found, err)
	}
}

func TestOrderLocatorMissIsNotAnError(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(domain.Order{ID: 7, Meta: map[string]string{domain.MetaBillingID: "bill_123"}})
	locator := NewOrderLocator(store)

	for _, id := range []string{"bill_1234", "bill_12", "", "   "} {
		_, found, err := locator.FindByBillingID(context.Background(), id)
		if err != nil || found {
			t.Fatalf("FindByBillingID(%q): found=%v err=%v", id, found, err)
		}
	}
	if _, found, _ := locator.FindByPixID(context.Background(), "bill_123"); found {
		t.Fatal("billing id must not resolve through pix lookup")
	}
}

func TestOrderLocatorWrapsStoreErrors(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore()
	store.findErr = errors.New("disk on fire")
	_, _, err := NewOrderLocator(store).FindByBillingID(context.Background(), "bill_1")
	if !errors.Is(err, store.findErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
