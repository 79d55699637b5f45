package bom

import (
	"context"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/catalog/item"
	"prodplan/internal/domain/ledger"
)

// StockResolver resolves the available stock of an item in a warehouse.
// Resolvers are tried in order; the first one that reports found wins.
// Expressing the fallback chain as a strategy list keeps new stock sources
// out of the calculation logic.
type StockResolver interface {
	Name() string
	Resolve(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, bool, error)
}

// WarehouseBalanceResolver reads the explicit per-warehouse stock record.
type WarehouseBalanceResolver struct {
	repo Repository
}

func NewWarehouseBalanceResolver(repo Repository) *WarehouseBalanceResolver {
	return &WarehouseBalanceResolver{repo: repo}
}

func (r *WarehouseBalanceResolver) Name() string { return "warehouse_balance" }

func (r *WarehouseBalanceResolver) Resolve(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, bool, error) {
	return r.repo.GetWarehouseStock(ctx, itemID, warehouseID)
}

// MovementSumResolver derives warehouse stock by summing signed canonical
// movement deltas for the (item, warehouse) pair.
type MovementSumResolver struct {
	ledgerRepo ledger.Repository
}

func NewMovementSumResolver(ledgerRepo ledger.Repository) *MovementSumResolver {
	return &MovementSumResolver{ledgerRepo: ledgerRepo}
}

func (r *MovementSumResolver) Name() string { return "movement_sum" }

func (r *MovementSumResolver) Resolve(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, bool, error) {
	return r.ledgerRepo.SumMovements(ctx, itemID, warehouseID)
}

// GlobalStockResolver falls back to the item's cached global on-hand figure.
// Always resolves; keep it last in the chain.
type GlobalStockResolver struct {
	itemRepo item.Repository
}

func NewGlobalStockResolver(itemRepo item.Repository) *GlobalStockResolver {
	return &GlobalStockResolver{itemRepo: itemRepo}
}

func (r *GlobalStockResolver) Name() string { return "global_stock" }

func (r *GlobalStockResolver) Resolve(ctx context.Context, itemID, _ id.ID) (types.Quantity, bool, error) {
	it, err := r.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return 0, false, err
	}
	return it.Stock, true, nil
}

// DefaultResolverChain builds the standard fallback order: explicit
// warehouse record, then movement-derived, then global stock.
func DefaultResolverChain(repo Repository, ledgerRepo ledger.Repository, itemRepo item.Repository) []StockResolver {
	return []StockResolver{
		NewWarehouseBalanceResolver(repo),
		NewMovementSumResolver(ledgerRepo),
		NewGlobalStockResolver(itemRepo),
	}
}
