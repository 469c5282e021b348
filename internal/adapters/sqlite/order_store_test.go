package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fr0stylo/abacate/internal/app/domain"
	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/internal/db"
)

func TestCreateAndGetOrderRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	orderID := createOrder(t, ctx, store, map[string]string{domain.MetaTaxID: "12345678901"})

	order, err := store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, order.Status)
	require.Equal(t, "BRL", order.Currency)
	require.Equal(t, "Ana Silva", order.Customer.FullName())
	require.Len(t, order.Items, 2)
	require.True(t, order.Items[0].UnitPrice.Equal(decimal.RequireFromString("25.10")))
	require.True(t, order.Total().Equal(decimal.RequireFromString("55.20")))
	require.Equal(t, "12345678901", order.Meta[domain.MetaTaxID])
	require.False(t, order.StockReduced)
	require.False(t, order.CreatedAt.IsZero())
}

func TestGetOrderMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	_, err := newTestStore(t).GetOrder(context.Background(), 999)
	require.ErrorIs(t, err, ports.ErrOrderNotFound)
}

func TestSaveAppliesPaidChangeAndReducesStockOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	seedProducts(t, ctx, store)
	orderID := createOrder(t, ctx, store, map[string]string{domain.MetaBillingID: "bill_abc"})

	change := domain.OrderChange{
		OrderID:     orderID,
		Status:      domain.StatusProcessing,
		Notes:       []string{"Payment received via AbacatePay. Billing ID: bill_abc"},
		ReduceStock: true,
	}
	first, err := store.Save(ctx, change)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, first.PreviousStatus)
	require.Equal(t, domain.StatusProcessing, first.Status)
	require.True(t, first.StockReduced)

	second, err := store.Save(ctx, change)
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, second.PreviousStatus)
	require.False(t, second.StockReduced)

	stock, err := store.ProductStock(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 8, stock)
	unmanaged, err := store.ProductStock(ctx, 2)
	require.NoError(t, err)
	require.EqualValues(t, 5, unmanaged)

	order, err := store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.True(t, order.StockReduced)
	require.Len(t, order.Notes, 2)
}

func TestSaveRejectsIllegalTransitionWithoutSideEffects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	orderID := createOrder(t, ctx, store, nil)
	require.NoError(t, store.SetStatus(ctx, orderID, domain.StatusProcessing))
	require.NoError(t, store.SetStatus(ctx, orderID, domain.StatusRefunded))

	_, err := store.Save(ctx, domain.OrderChange{
		OrderID: orderID,
		Status:  domain.StatusProcessing,
		Notes:   []string{"should not persist"},
	})
	require.ErrorIs(t, err, ports.ErrIllegalTransition)

	order, err := store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRefunded, order.Status)
	require.Empty(t, order.Notes)
}

func TestSaveHonorsStatusPrecondition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	orderID := createOrder(t, ctx, store, nil)
	require.NoError(t, store.SetStatus(ctx, orderID, domain.StatusProcessing))

	result, err := store.Save(ctx, domain.OrderChange{
		OrderID:  orderID,
		Status:   domain.StatusCancelled,
		OnlyFrom: []domain.OrderStatus{domain.StatusPending, domain.StatusOnHold, domain.StatusFailed},
	})
	require.ErrorIs(t, err, ports.ErrStatusPrecondition)
	require.Equal(t, domain.StatusProcessing, result.PreviousStatus)

	order, err := store.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusProcessing, order.Status)
}

func TestSetMetaOnceIsImmutableAndUnique(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	first := createOrder(t, ctx, store, nil)
	second := createOrder(t, ctx, store, nil)

	require.NoError(t, store.SetMetaOnce(ctx, first, domain.MetaBillingID, "bill_1"))
	require.NoError(t, store.SetMetaOnce(ctx, first, domain.MetaBillingID, "bill_1"))
	require.ErrorIs(t, store.SetMetaOnce(ctx, first, domain.MetaBillingID, "bill_2"), ports.ErrMetaImmutable)
	require.ErrorIs(t, store.SetMetaOnce(ctx, second, domain.MetaBillingID, "bill_1"), ports.ErrMetaConflict)

	ids, err := store.FindOrdersByMeta(ctx, domain.MetaBillingID, "bill_1", 1)
	require.NoError(t, err)
	require.Equal(t, []int64{first}, ids)

	order, err := store.GetOrder(ctx, second)
	require.NoError(t, err)
	require.Empty(t, order.BillingID())
}

func TestSaveRollsBackMetaWhenTransitionFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	orderID := createOrder(t, ctx, store, nil)

	_, err := store.Save(ctx, domain.OrderChange{
		OrderID: orderID,
		Status:  domain.StatusRefunded,
		Meta:    map[string]string{domain.MetaPixID: "pix_1"},
	})
	require.ErrorIs(t, err, ports.ErrIllegalTransition)

	ids, err := store.FindOrdersByMeta(ctx, domain.MetaPixID, "pix_1", 1)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestWebhookAuditRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	receivedAt := time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordWebhookEvent(ctx, ports.WebhookEventRecord{
		DeliveryID: "d-1",
		EventType:  "billing.paid",
		ResourceID: "bill_1",
		OrderID:    7,
		Outcome:    "applied",
		Payload:    `{"event":"billing.paid"}`,
		ReceivedAt: receivedAt,
	}))
	require.NoError(t, store.RecordWebhookEvent(ctx, ports.WebhookEventRecord{
		DeliveryID: "d-2",
		EventType:  "pix.paid",
		Outcome:    "order_not_found",
		Payload:    `{}`,
		ReceivedAt: receivedAt.Add(time.Minute),
	}))

	records, err := store.ListWebhookEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "d-2", records[0].DeliveryID)
	require.Zero(t, records[0].OrderID)
	require.Equal(t, int64(7), records[1].OrderID)
	require.True(t, records[1].ReceivedAt.Equal(receivedAt))
}

func TestDuplicateDeliveryIDIsRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	record := ports.WebhookEventRecord{DeliveryID: "same", EventType: "pix.paid", Outcome: "applied", Payload: "{}"}

	require.NoError(t, store.RecordWebhookEvent(ctx, record))
	err := store.RecordWebhookEvent(ctx, record)
	require.Error(t, err)
	require.True(t, isUniqueViolation(err), "got=%v", err)
	require.False(t, isUniqueViolation(errors.New("plain")))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewStore(database)
}

func seedProducts(t *testing.T, ctx context.Context, store *Store) {
	t.Helper()

	require.NoError(t, store.UpsertProduct(ctx, ports.ProductInput{ID: 1, Name: "Widget", StockQuantity: 10, ManageStock: true}))
	require.NoError(t, store.UpsertProduct(ctx, ports.ProductInput{ID: 2, Name: "Gift card", StockQuantity: 5}))
}

func createOrder(t *testing.T, ctx context.Context, store *Store, meta map[string]string) int64 {
	t.Helper()

	id, err := store.CreateOrder(ctx, ports.OrderInput{
		Customer: domain.Customer{FirstName: "Ana", LastName: "Silva", Email: "ana@example.com", Phone: "11999999999"},
		Items: []domain.LineItem{
			{ProductID: 1, Name: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("25.10")},
			{ProductID: 2, Name: "Gift card", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
		Meta: meta,
	})
	require.NoError(t, err)
	return id
}
