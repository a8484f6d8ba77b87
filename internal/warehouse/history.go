package warehouse

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"ingest-service/internal/models"
)

// HasProductHistory reports whether the history dimension holds any rows.
// A missing or empty table sends the pipeline down the full-rebuild path.
func (s *Store) HasProductHistory(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_name = 'history_product_dimension'
		)`)
	if err != nil {
		return false, fmt.Errorf("failed to check history table: %w", err)
	}
	if !exists {
		return false, nil
	}

	var hasRows bool
	err = s.db.GetContext(ctx, &hasRows,
		"SELECT EXISTS (SELECT 1 FROM history_product_dimension LIMIT 1)")
	if err != nil {
		return false, fmt.Errorf("failed to check history rows: %w", err)
	}
	return hasRows, nil
}

// FetchProductHistory retrieves every stored version of the given products.
func (s *Store) FetchProductHistory(ctx context.Context, productIDs []string) ([]models.ProductVersion, error) {
	if len(productIDs) == 0 {
		return []models.ProductVersion{}, nil
	}

	var versions []models.ProductVersion
	err := s.db.SelectContext(ctx, &versions, `
		SELECT
			product_id,
			product_name,
			price,
			product_cost,
			last_transaction_datetime,
			record_version,
			is_current,
			parent_sku,
			category
		FROM history_product_dimension
		WHERE product_id = ANY($1)`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product history: %w", err)
	}
	return versions, nil
}
