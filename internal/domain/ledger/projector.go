package ledger

import (
	"context"
	"fmt"

	"prodplan/internal/core/id"
	"prodplan/internal/domain/catalog/item"
	"prodplan/pkg/logger"
)

// StockProjector rebuilds the cached on-hand figure on item records from the
// canonical movement log. The cache is a derived projection, never a source
// of truth, so the rebuild is idempotent: recomputing from scratch with no
// intervening movements writes the same values.
type StockProjector struct {
	repo     Repository
	itemRepo item.Repository
}

// NewStockProjector creates a new stock projector.
func NewStockProjector(repo Repository, itemRepo item.Repository) *StockProjector {
	return &StockProjector{repo: repo, itemRepo: itemRepo}
}

// RebuildItemStock recomputes every item's global on-hand quantity from the
// movement log and writes back the figures that drifted beyond the standard
// tolerance. Returns the number of items updated.
func (p *StockProjector) RebuildItemStock(ctx context.Context) (int, error) {
	sums, err := p.repo.SumMovementsByItem(ctx)
	if err != nil {
		return 0, fmt.Errorf("sum movements: %w", err)
	}
	if len(sums) == 0 {
		return 0, nil
	}

	ids := make([]id.ID, 0, len(sums))
	for itemID := range sums {
		ids = append(ids, itemID)
	}
	items, err := p.itemRepo.GetByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load items: %w", err)
	}

	updated := 0
	for itemID, stock := range sums {
		it, ok := items[itemID]
		if !ok {
			continue // movement rows for a deleted item
		}
		if it.Stock.WithinEpsilon(stock) {
			continue
		}
		if err := p.itemRepo.UpdateStock(ctx, itemID, stock); err != nil {
			return updated, fmt.Errorf("update stock for %s: %w", it.Code, err)
		}
		updated++
	}

	logger.Info(ctx, "item stock projection rebuilt",
		"items", len(sums),
		"updated", updated,
	)

	return updated, nil
}
