package ledger

import (
	"context"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// Repository defines the three read-only event source adapters plus the
// aggregate queries derived projections are rebuilt from.
//
// Each adapter returns raw domain-tagged rows for one item; no merging or
// policy lives behind this interface.
type Repository interface {
	// LegacyOrderEvents returns sale/purchase/return lines of posted legacy
	// documents for the item.
	LegacyOrderEvents(ctx context.Context, itemID id.ID) ([]LegacyOrderEvent, error)

	// PermitEvents returns transfer/receipt/issue permit lines for the item.
	PermitEvents(ctx context.Context, itemID id.ID) ([]PermitEvent, error)

	// MovementEvents returns canonical movement log rows for the item,
	// unfiltered; warehouse scoping is reconciler policy.
	MovementEvents(ctx context.Context, itemID id.ID) ([]MovementEvent, error)

	// SumMovementsByItem sums signed canonical deltas per item. Used by the
	// stock projection job to rebuild cached on-hand figures from scratch.
	SumMovementsByItem(ctx context.Context) (map[id.ID]types.Quantity, error)

	// SumMovements sums signed canonical deltas for one (item, warehouse).
	// Returns found=false when the pair has no movements at all.
	SumMovements(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, bool, error)
}
