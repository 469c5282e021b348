package sqlite

import (
	"context"

	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/internal/db"
	"github.com/fr0stylo/abacate/internal/db/queries"
)

type storeDatabase interface {
	LoadOrder(ctx context.Context, orderID int64) (db.OrderAggregate, error)
	FindOrdersByMeta(ctx context.Context, key, value string, limit int) ([]int64, error)
	UpsertProduct(ctx context.Context, arg queries.UpsertProductParams) error
	GetProductStock(ctx context.Context, id int64) (int64, error)
	RecordWebhookEvent(ctx context.Context, params queries.InsertWebhookEventParams) error
	ListWebhookEvents(ctx context.Context, limit int) ([]queries.WebhookEvent, error)

	WithTx(ctx context.Context, fn func(*queries.Queries) error) error
}

// Store implements the order, product and webhook audit ports over sqlite.
type Store struct {
	database storeDatabase
}

// NewStore wraps an opened database.
func NewStore(database *db.Database) *Store {
	return &Store{database: database}
}

var (
	_ ports.OrderStore        = (*Store)(nil)
	_ ports.OrderWriter       = (*Store)(nil)
	_ ports.ProductStore      = (*Store)(nil)
	_ ports.WebhookAuditStore = (*Store)(nil)
)
