package db

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fr0stylo/abacate/internal/db/queries"
)

func TestLoadOrderReturnsChildRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := newTestDatabase(t)
	orderID := createTestOrder(t, ctx, database)

	if err := database.InsertOrderItem(ctx, queries.InsertOrderItemParams{OrderID: orderID, ProductID: 7, Name: "Widget", Quantity: 2, UnitPrice: "12.50"}); err != nil {
		t.Fatalf("insert item: %v", err)
	}
	if err := database.InsertOrderMeta(ctx, queries.InsertOrderMetaParams{OrderID: orderID, MetaKey: "_abacatepay_billing_id", MetaValue: "bill_1"}); err != nil {
		t.Fatalf("insert meta: %v", err)
	}
	if err := database.InsertOrderNote(ctx, queries.InsertOrderNoteParams{OrderID: orderID, Note: "first"}); err != nil {
		t.Fatalf("insert note: %v", err)
	}

	aggregate, err := database.LoadOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if aggregate.Order.Status != "pending" {
		t.Fatalf("unexpected status: got=%q want=%q", aggregate.Order.Status, "pending")
	}
	if len(aggregate.Items) != 1 || aggregate.Items[0].UnitPrice != "12.50" {
		t.Fatalf("unexpected items: %+v", aggregate.Items)
	}
	if len(aggregate.Meta) != 1 || aggregate.Meta[0].MetaValue != "bill_1" {
		t.Fatalf("unexpected meta: %+v", aggregate.Meta)
	}
	if len(aggregate.Notes) != 1 || aggregate.Notes[0].Note != "first" {
		t.Fatalf("unexpected notes: %+v", aggregate.Notes)
	}
}

func TestLoadOrderMissingReturnsNoRows(t *testing.T) {
	t.Parallel()

	_, err := newTestDatabase(t).LoadOrder(context.Background(), 404)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("unexpected error: got=%v want=%v", err, sql.ErrNoRows)
	}
}

func TestProviderIDMetaIsUniqueAcrossOrders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := newTestDatabase(t)
	first := createTestOrder(t, ctx, database)
	second := createTestOrder(t, ctx, database)

	if err := database.InsertOrderMeta(ctx, queries.InsertOrderMetaParams{OrderID: first, MetaKey: "_abacatepay_pix_id", MetaValue: "pix_1"}); err != nil {
		t.Fatalf("insert first meta: %v", err)
	}
	if err := database.InsertOrderMeta(ctx, queries.InsertOrderMetaParams{OrderID: second, MetaKey: "_abacatepay_pix_id", MetaValue: "pix_1"}); err == nil {
		t.Fatal("expected unique violation for duplicated pix id")
	}

	// Other meta keys may repeat.
	for _, id := range []int64{first, second} {
		if err := database.InsertOrderMeta(ctx, queries.InsertOrderMetaParams{OrderID: id, MetaKey: "_billing_cpf", MetaValue: "123"}); err != nil {
			t.Fatalf("insert shared meta: %v", err)
		}
	}

	ids, err := database.FindOrdersByMeta(ctx, "_billing_cpf", "123", 10)
	if err != nil {
		t.Fatalf("find orders: %v", err)
	}
	if len(ids) != 2 || ids[0] != first || ids[1] != second {
		t.Fatalf("unexpected ids: got=%v want=[%d %d]", ids, first, second)
	}
}

func TestClaimStockReductionWinsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := newTestDatabase(t)
	orderID := createTestOrder(t, ctx, database)

	var claims []bool
	for range 2 {
		err := database.WithTx(ctx, func(q *queries.Queries) error {
			claimed, err := ClaimStockReduction(ctx, q, orderID)
			claims = append(claims, claimed)
			return err
		})
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
	}
	if !claims[0] || claims[1] {
		t.Fatalf("unexpected claims: got=%v want=[true false]", claims)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := newTestDatabase(t)
	orderID := createTestOrder(t, ctx, database)
	boom := errors.New("boom")

	err := database.WithTx(ctx, func(q *queries.Queries) error {
		if err := q.UpdateOrderStatus(ctx, queries.UpdateOrderStatusParams{Status: "processing", ID: orderID}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected error: got=%v want=%v", err, boom)
	}

	order, err := database.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != "pending" {
		t.Fatalf("status was not rolled back: got=%q", order.Status)
	}
}

func TestWebhookEventsListedNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := newTestDatabase(t)

	for _, params := range []queries.InsertWebhookEventParams{
		{DeliveryID: "d1", EventType: "billing.paid", Outcome: "applied", Payload: "{}", ReceivedAt: "2026-02-19T10:00:00Z", OrderID: sql.NullInt64{Int64: 1, Valid: true}},
		{DeliveryID: "d2", EventType: "pix.expired", Outcome: "order_not_found", Payload: "{}", ReceivedAt: "2026-02-19T11:00:00Z"},
	} {
		if err := database.RecordWebhookEvent(ctx, params); err != nil {
			t.Fatalf("record %s: %v", params.DeliveryID, err)
		}
	}

	events, err := database.ListWebhookEvents(ctx, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 || events[0].DeliveryID != "d2" {
		t.Fatalf("unexpected order: %+v", events)
	}
	if events[0].OrderID.Valid {
		t.Fatalf("expected null order id for unmatched delivery")
	}
}

func TestSlowestQueriesTracksNamedQueries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database := newTestDatabase(t)
	createTestOrder(t, ctx, database)

	found := false
	for _, stat := range database.SlowestQueries(0) {
		if stat.Name == "CreateOrder" && stat.Count == 1 && stat.Errors == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CreateOrder sample, got=%+v", database.SlowestQueries(0))
	}
	if got := len(database.SlowestQueries(1)); got != 1 {
		t.Fatalf("unexpected limited stats length: got=%d want=1", got)
	}
}

func TestQueryMetricsOrdersByP95AndCountsErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	metrics := newQueryMetrics()
	metrics.observe(ctx, "GetOrder", 2*time.Millisecond, nil)
	metrics.observe(ctx, "GetOrder", 4*time.Millisecond, errors.New("boom"))
	metrics.observe(ctx, "ListOrderNotes", 9*time.Millisecond, nil)

	stats := metrics.slowest(0)
	if len(stats) != 2 {
		t.Fatalf("unexpected stats length: got=%d want=2", len(stats))
	}
	if stats[0].Name != "ListOrderNotes" {
		t.Fatalf("expected slowest query first, got=%q", stats[0].Name)
	}
	if stats[1].Count != 2 || stats[1].Errors != 1 || stats[1].Max != 4*time.Millisecond {
		t.Fatalf("unexpected GetOrder stats: %+v", stats[1])
	}
}

func TestQueryName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"-- name: GetOrder :one\nSELECT 1":   "GetOrder",
		"\n  -- name: ListOrderMeta :many\n": "ListOrderMeta",
		"SELECT 1":                           "unknown",
		"-- name:":                           "unknown",
	}
	for query, want := range tests {
		if got := queryName(query); got != want {
			t.Fatalf("queryName(%q): got=%q want=%q", query, got, want)
		}
	}
}

func TestSQLiteDSNDefaultsAndOverrides(t *testing.T) {
	t.Parallel()

	dsn := sqliteDSN("data/test")
	if !strings.HasPrefix(dsn, "file:data/test.sqlite?") {
		t.Fatalf("unexpected dsn prefix: got=%q", dsn)
	}
	if !strings.Contains(dsn, "_txlock=immediate") {
		t.Fatalf("expected immediate transactions by default: %q", dsn)
	}

	dsn = sqliteDSN("data/test", "&_txlock=deferred", "", "broken", "_pragma=cache_size(-2000)")
	if strings.Contains(dsn, "_txlock=immediate") || !strings.Contains(dsn, "_txlock=deferred") {
		t.Fatalf("expected open param to override txlock: %q", dsn)
	}
	if !strings.Contains(dsn, url.QueryEscape("cache_size(-2000)")) || !strings.Contains(dsn, url.QueryEscape("foreign_keys(ON)")) {
		t.Fatalf("expected extra pragma appended to defaults: %q", dsn)
	}
}

func TestNewCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	database, err := New(filepath.Join(t.TempDir(), "nested", "dir", "orders"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("close database: %v", err)
	}
}

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	database, err := New(filepath.Join(t.TempDir(), "orders"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func createTestOrder(t *testing.T, ctx context.Context, database *Database) int64 {
	t.Helper()

	id, err := database.CreateOrder(ctx, queries.CreateOrderParams{
		Status:            "pending",
		Currency:          "BRL",
		CustomerFirstName: "Ana",
		CustomerLastName:  "Silva",
		CustomerEmail:     "ana@example.com",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return id
}
