package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockReleaser puts units back on the shelf inside a caller's transaction.
type StockReleaser struct {
	repo Repository
}

func NewStockReleaser(repo Repository) *StockReleaser {
	return &StockReleaser{repo: repo}
}

func (r *StockReleaser) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	return r.repo.WithTx(tx).ReleaseStock(ctx, productID, qty)
}
