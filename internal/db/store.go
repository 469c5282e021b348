package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fr0stylo/abacate/internal/db/queries"
)

// OrderAggregate is one order row joined with its items, meta and notes.
type OrderAggregate struct {
	Order queries.Order
	Items []queries.OrderItem
	Meta  []queries.OrderMetum
	Notes []queries.OrderNote
}

// LoadOrder reads the order and its child rows with the given queries handle.
func LoadOrder(ctx context.Context, q *queries.Queries, orderID int64) (OrderAggregate, error) {
	order, err := q.GetOrder(ctx, orderID)
	if err != nil {
		return OrderAggregate{}, err
	}
	items, err := q.ListOrderItems(ctx, orderID)
	if err != nil {
		return OrderAggregate{}, fmt.Errorf("list order items: %w", err)
	}
	meta, err := q.ListOrderMeta(ctx, orderID)
	if err != nil {
		return OrderAggregate{}, fmt.Errorf("list order meta: %w", err)
	}
	notes, err := q.ListOrderNotes(ctx, orderID)
	if err != nil {
		return OrderAggregate{}, fmt.Errorf("list order notes: %w", err)
	}
	return OrderAggregate{Order: order, Items: items, Meta: meta, Notes: notes}, nil
}

// LoadOrder reads one order aggregate outside a transaction.
func (c *Database) LoadOrder(ctx context.Context, orderID int64) (OrderAggregate, error) {
	return LoadOrder(ctx, c.Queries, orderID)
}

// FindOrdersByMeta returns order ids holding the meta key/value pair.
func (c *Database) FindOrdersByMeta(ctx context.Context, key, value string, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 1
	}
	return c.Queries.FindOrdersByMeta(ctx, queries.FindOrdersByMetaParams{
		MetaKey:   key,
		MetaValue: value,
		Limit:     int64(limit),
	})
}

// ClaimStockReduction flips the stock flag once. It reports whether this call won the claim.
func ClaimStockReduction(ctx context.Context, q *queries.Queries, orderID int64) (bool, error) {
	rows, err := q.ClaimStockReduction(ctx, orderID)
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// RecordWebhookEvent appends one audit row.
func (c *Database) RecordWebhookEvent(ctx context.Context, params queries.InsertWebhookEventParams) error {
	return c.Queries.InsertWebhookEvent(ctx, params)
}

// ListWebhookEvents returns the newest audit rows first.
func (c *Database) ListWebhookEvents(ctx context.Context, limit int) ([]queries.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return c.Queries.ListWebhookEvents(ctx, int64(limit))
}

// WithTx runs a function within a transaction.
func (c *Database) WithTx(ctx context.Context, fn func(*queries.Queries) error) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(queries.New(newInstrumentedDBTX(tx, c.metrics))); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}
		return err
	}
	return tx.Commit()
}
