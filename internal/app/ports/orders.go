package ports

import (
	"context"
	"errors"

	"github.com/fr0stylo/abacate/internal/app/domain"
)

var (
	// ErrOrderNotFound is returned when an order id has no row.
	ErrOrderNotFound = errors.New("order not found")
	// ErrIllegalTransition is returned when the status graph forbids a change.
	ErrIllegalTransition = errors.New("illegal order status transition")
	// ErrStatusPrecondition is returned when OrderChange.OnlyFrom excludes the current status.
	ErrStatusPrecondition = errors.New("order status precondition failed")
	// ErrMetaImmutable is returned when a set-once meta key already holds a different value.
	ErrMetaImmutable = errors.New("order meta is immutable once set")
	// ErrMetaConflict is returned when a provider id is already linked to another order.
	ErrMetaConflict = errors.New("order meta value already linked to another order")
)

// OrderStore is the order persistence contract.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
	FindOrdersByMeta(ctx context.Context, key, value string, limit int) ([]int64, error)
	SetStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
	AppendNote(ctx context.Context, orderID int64, note string) error
	DecrementReservedStock(ctx context.Context, orderID int64) (bool, error)
	SetMetaOnce(ctx context.Context, orderID int64, key, value string) error
	// Save applies meta, status, notes and stock in one transaction.
	Save(ctx context.Context, change domain.OrderChange) (domain.ChangeResult, error)
}

// OrderInput creates an order. Used by seeding tools and tests.
type OrderInput struct {
	Status   domain.OrderStatus
	Currency string
	Customer domain.Customer
	Items    []domain.LineItem
	Meta     map[string]string
}

// OrderWriter creates orders.
type OrderWriter interface {
	CreateOrder(ctx context.Context, input OrderInput) (int64, error)
}

// ProductInput creates a stock-tracked product.
type ProductInput struct {
	ID            int64
	Name          string
	StockQuantity int64
	ManageStock   bool
}

// ProductStore manages product stock.
type ProductStore interface {
	UpsertProduct(ctx context.Context, input ProductInput) error
	ProductStock(ctx context.Context, productID int64) (int64, error)
}
