package item

import (
	"context"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// Repository defines read access to the item catalog plus the two derived
// cache writes owned by this core.
type Repository interface {
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)

	// GetByIDs returns the requested items keyed by id. Missing ids are
	// simply absent from the map.
	GetByIDs(ctx context.Context, itemIDs []id.ID) (map[id.ID]*Item, error)

	// ListManufactured returns manufactured items ordered by code.
	ListManufactured(ctx context.Context) ([]*Item, error)

	// UpdateUnitCost writes the derived cost cache. Idempotent.
	UpdateUnitCost(ctx context.Context, itemID id.ID, cost types.Money) error

	// UpdateStock writes the derived on-hand cache. Idempotent.
	UpdateStock(ctx context.Context, itemID id.ID, stock types.Quantity) error
}
