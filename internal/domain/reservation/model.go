// Package reservation provides soft holds on stock for production orders.
// Reservations reduce the quantity visible to requirement calculations
// without altering the movement ledger.
package reservation

import (
	"time"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// Status of a reservation.
type Status string

const (
	StatusReserved          Status = "reserved"
	StatusPartiallyConsumed Status = "partially_consumed"
	StatusFullyConsumed     Status = "fully_consumed"
	StatusReleased          Status = "released"
)

// Reservation is a soft hold on (item, warehouse) stock for one production
// order.
type Reservation struct {
	ID                id.ID          `db:"id" json:"id"`
	ProductionOrderID id.ID          `db:"production_order_id" json:"productionOrderId"`
	ItemID            id.ID          `db:"item_id" json:"itemId"`
	WarehouseID       *id.ID         `db:"warehouse_id" json:"warehouseId,omitempty"`
	QuantityReserved  types.Quantity `db:"quantity_reserved" json:"quantityReserved"`
	QuantityConsumed  types.Quantity `db:"quantity_consumed" json:"quantityConsumed"`
	Status            Status         `db:"status" json:"status"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
}

// Outstanding returns the net quantity still held: reserved minus consumed,
// floored at zero. Released and fully consumed reservations hold nothing.
func (r *Reservation) Outstanding() types.Quantity {
	if r.Status == StatusReleased || r.Status == StatusFullyConsumed {
		return 0
	}
	net := r.QuantityReserved - r.QuantityConsumed
	if net < 0 {
		return 0
	}
	return net
}
