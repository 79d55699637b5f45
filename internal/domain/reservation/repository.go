package reservation

import (
	"context"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// Repository defines access to reservations.
type Repository interface {
	// OutstandingFor sums the net held quantity for an (item, warehouse)
	// pair over active reservations. Reservations without a warehouse are
	// unscoped holds and count in every warehouse view.
	OutstandingFor(ctx context.Context, itemID id.ID, warehouseID id.ID) (types.Quantity, error)

	// Create inserts a reservation. Must be called inside the transaction of
	// the operation creating the production order.
	Create(ctx context.Context, r *Reservation) error
}
