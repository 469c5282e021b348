package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/fr0stylo/abacate/internal/app/domain"
	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/internal/db"
	"github.com/fr0stylo/abacate/internal/db/queries"
)

// GetOrder loads the full order aggregate.
func (s *Store) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	aggregate, err := s.database.LoadOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, mapOrderErr(orderID, err)
	}
	return toDomainOrder(aggregate)
}

// FindOrdersByMeta returns ids of orders whose meta key holds value.
func (s *Store) FindOrdersByMeta(ctx context.Context, key, value string, limit int) ([]int64, error) {
	return s.database.FindOrdersByMeta(ctx, key, value, limit)
}

// SetStatus moves the order along the status graph.
func (s *Store) SetStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	_, err := s.Save(ctx, domain.OrderChange{OrderID: orderID, Status: status})
	return err
}

// AppendNote adds one audit note.
func (s *Store) AppendNote(ctx context.Context, orderID int64, note string) error {
	_, err := s.Save(ctx, domain.OrderChange{OrderID: orderID, Notes: []string{note}})
	return err
}

// DecrementReservedStock reduces product stock for the order's items once.
func (s *Store) DecrementReservedStock(ctx context.Context, orderID int64) (bool, error) {
	result, err := s.Save(ctx, domain.OrderChange{OrderID: orderID, ReduceStock: true})
	return result.StockReduced, err
}

// SetMetaOnce writes a meta value that can never change afterwards.
func (s *Store) SetMetaOnce(ctx context.Context, orderID int64, key, value string) error {
	_, err := s.Save(ctx, domain.OrderChange{OrderID: orderID, Meta: map[string]string{key: value}})
	return err
}

// Save applies one OrderChange inside a transaction.
func (s *Store) Save(ctx context.Context, change domain.OrderChange) (domain.ChangeResult, error) {
	var result domain.ChangeResult
	err := s.database.WithTx(ctx, func(q *queries.Queries) error {
		row, err := q.GetOrder(ctx, change.OrderID)
		if err != nil {
			return mapOrderErr(change.OrderID, err)
		}
		current := domain.OrderStatus(row.Status)
		result = domain.ChangeResult{PreviousStatus: current, Status: current}

		if !change.Allows(current) {
			return ports.ErrStatusPrecondition
		}
		if change.Status != "" && !domain.CanTransition(current, change.Status) {
			return fmt.Errorf("%w: %s -> %s", ports.ErrIllegalTransition, current, change.Status)
		}

		for _, key := range slices.Sorted(maps.Keys(change.Meta)) {
			if err := setMetaOnce(ctx, q, change.OrderID, key, change.Meta[key]); err != nil {
				return err
			}
		}

		if change.Status != "" && change.Status != current {
			if err := q.UpdateOrderStatus(ctx, queries.UpdateOrderStatusParams{Status: string(change.Status), ID: change.OrderID}); err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
			result.Status = change.Status
		}

		for _, note := range change.Notes {
			note = strings.TrimSpace(note)
			if note == "" {
				continue
			}
			if err := q.InsertOrderNote(ctx, queries.InsertOrderNoteParams{OrderID: change.OrderID, Note: note}); err != nil {
				return fmt.Errorf("insert order note: %w", err)
			}
		}

		if change.ReduceStock {
			claimed, err := db.ClaimStockReduction(ctx, q, change.OrderID)
			if err != nil {
				return fmt.Errorf("claim stock reduction: %w", err)
			}
			if claimed {
				if err := decrementItems(ctx, q, change.OrderID); err != nil {
					return err
				}
			}
			result.StockReduced = claimed
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// CreateOrder inserts an order with its items and meta.
func (s *Store) CreateOrder(ctx context.Context, input ports.OrderInput) (int64, error) {
	status := input.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() {
		return 0, fmt.Errorf("unknown order status %q", status)
	}
	currency := strings.TrimSpace(input.Currency)
	if currency == "" {
		currency = "BRL"
	}

	var orderID int64
	err := s.database.WithTx(ctx, func(q *queries.Queries) error {
		id, err := q.CreateOrder(ctx, queries.CreateOrderParams{
			Status:            string(status),
			Currency:          currency,
			CustomerFirstName: input.Customer.FirstName,
			CustomerLastName:  input.Customer.LastName,
			CustomerEmail:     input.Customer.Email,
			CustomerPhone:     input.Customer.Phone,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, item := range input.Items {
			if err := q.InsertOrderItem(ctx, queries.InsertOrderItemParams{
				OrderID:     id,
				ProductID:   item.ProductID,
				Name:        item.Name,
				Description: item.Description,
				Quantity:    int64(item.Quantity),
				UnitPrice:   item.UnitPrice.String(),
			}); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		for _, key := range slices.Sorted(maps.Keys(input.Meta)) {
			if err := setMetaOnce(ctx, q, id, key, input.Meta[key]); err != nil {
				return err
			}
		}
		orderID = id
		return nil
	})
	return orderID, err
}

func setMetaOnce(ctx context.Context, q *queries.Queries, orderID int64, key, value string) error {
	existing, err := q.GetOrderMeta(ctx, queries.GetOrderMetaParams{OrderID: orderID, MetaKey: key})
	switch {
	case err == nil:
		if existing != value {
			return fmt.Errorf("%w: %s", ports.ErrMetaImmutable, key)
		}
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("read order meta %s: %w", key, err)
	}

	err = q.InsertOrderMeta(ctx, queries.InsertOrderMetaParams{OrderID: orderID, MetaKey: key, MetaValue: value})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s=%s", ports.ErrMetaConflict, key, value)
	}
	if err != nil {
		return fmt.Errorf("insert order meta %s: %w", key, err)
	}
	return nil
}

func decrementItems(ctx context.Context, q *queries.Queries, orderID int64) error {
	items, err := q.ListOrderItems(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if err := q.DecrementProductStock(ctx, queries.DecrementProductStockParams{StockQuantity: item.Quantity, ID: item.ProductID}); err != nil {
			return fmt.Errorf("decrement stock for product %d: %w", item.ProductID, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}

func mapOrderErr(orderID int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", ports.ErrOrderNotFound, orderID)
	}
	return err
}

func toDomainOrder(aggregate db.OrderAggregate) (domain.Order, error) {
	row := aggregate.Order
	order := domain.Order{
		ID:       row.ID,
		Status:   domain.OrderStatus(row.Status),
		Currency: row.Currency,
		Customer: domain.Customer{
			FirstName: row.CustomerFirstName,
			LastName:  row.CustomerLastName,
			Email:     row.CustomerEmail,
			Phone:     row.CustomerPhone,
		},
		Meta:         make(map[string]string, len(aggregate.Meta)),
		StockReduced: row.StockReduced != 0,
		CreatedAt:    parseTimestamp(row.CreatedAt),
		UpdatedAt:    parseTimestamp(row.UpdatedAt),
	}

	for _, item := range aggregate.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %d item %d: invalid unit price %q: %w", row.ID, item.ID, item.UnitPrice, err)
		}
		order.Items = append(order.Items, domain.LineItem{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Description: item.Description,
			Quantity:    int(item.Quantity),
			UnitPrice:   price,
		})
	}
	for _, meta := range aggregate.Meta {
		order.Meta[meta.MetaKey] = meta.MetaValue
	}
	for _, note := range aggregate.Notes {
		order.Notes = append(order.Notes, domain.OrderNote{
			ID:        note.ID,
			Note:      note.Note,
			CreatedAt: parseTimestamp(note.CreatedAt),
		})
	}
	return order, nil
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
