package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/internal/db/queries"
)

// UpsertProduct creates or replaces a product row.
func (s *Store) UpsertProduct(ctx context.Context, input ports.ProductInput) error {
	manage := int64(0)
	if input.ManageStock {
		manage = 1
	}
	return s.database.UpsertProduct(ctx, queries.UpsertProductParams{
		ID:            input.ID,
		Name:          input.Name,
		StockQuantity: input.StockQuantity,
		ManageStock:   manage,
	})
}

// ProductStock returns the current stock quantity.
func (s *Store) ProductStock(ctx context.Context, productID int64) (int64, error) {
	stock, err := s.database.GetProductStock(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("product %d not found: %w", productID, err)
	}
	return stock, err
}
