package bom

import (
	"context"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// Repository defines access to BOM headers and lines.
type Repository interface {
	// GetByID retrieves a BOM with its lines.
	GetByID(ctx context.Context, bomID id.ID) (*BOM, error)

	// GetActiveByItem retrieves the active BOM for a finished item.
	GetActiveByItem(ctx context.Context, finishedItemID id.ID) (*BOM, error)

	Create(ctx context.Context, b *BOM) error
	Update(ctx context.Context, b *BOM) error

	// SaveLines replaces the line set of a BOM.
	SaveLines(ctx context.Context, bomID id.ID, lines []BOMLine) error

	// DeactivateSiblings clears the active flag on every other BOM of the
	// same finished item, enforcing at most one active version.
	DeactivateSiblings(ctx context.Context, finishedItemID, keepID id.ID) error

	// GetWarehouseStock returns the explicit per-warehouse stock record for
	// an item, with found=false when no record exists.
	GetWarehouseStock(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, bool, error)
}
