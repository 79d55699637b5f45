// Package production provides production order and routing records consumed
// by the MRP and capacity engines. Order execution itself lives outside this
// core.
package production

import (
	"time"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// OrderStatus of a production order.
type OrderStatus string

const (
	OrderPlanned    OrderStatus = "planned"
	OrderReleased   OrderStatus = "released"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// IsTerminal reports whether the order no longer contributes incoming
// quantity or capacity load.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// Order is a planned or running production order.
type Order struct {
	ID             id.ID          `db:"id" json:"id"`
	Number         string         `db:"number" json:"number"`
	ItemID         id.ID          `db:"item_id" json:"itemId"`
	BOMID          id.ID          `db:"bom_id" json:"bomId"`
	RoutingID      *id.ID         `db:"routing_id" json:"routingId,omitempty"`
	QtyPlanned     types.Quantity `db:"qty_planned" json:"qtyPlanned"`
	QtyFinished    types.Quantity `db:"qty_finished" json:"qtyFinished"`
	Status         OrderStatus    `db:"status" json:"status"`
	ScheduledStart *time.Time     `db:"scheduled_start" json:"scheduledStart,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// Remaining returns the quantity still to be produced.
func (o *Order) Remaining() types.Quantity {
	rem := o.QtyPlanned - o.QtyFinished
	if rem < 0 {
		return 0
	}
	return rem
}

// StepStatus of a production step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepSkipped   StepStatus = "skipped"
)

// Step is one scheduled operation of a production order at a work center.
type Step struct {
	ID                id.ID      `db:"id" json:"id"`
	OrderID           id.ID      `db:"order_id" json:"orderId"`
	WorkCenterID      id.ID      `db:"work_center_id" json:"workCenterId"`
	Sequence          int        `db:"sequence" json:"sequence"`
	SetupMinutes      float64    `db:"setup_minutes" json:"setupMinutes"`
	RunMinutesPerUnit float64    `db:"run_minutes_per_unit" json:"runMinutesPerUnit"`
	PlannedStart      *time.Time `db:"planned_start" json:"plannedStart,omitempty"`
	Status            StepStatus `db:"status" json:"status"`
}

// RoutingStep is a template step copied onto orders at conversion time.
type RoutingStep struct {
	RoutingID         id.ID   `db:"routing_id" json:"routingId"`
	Sequence          int     `db:"sequence" json:"sequence"`
	WorkCenterID      id.ID   `db:"work_center_id" json:"workCenterId"`
	SetupMinutes      float64 `db:"setup_minutes" json:"setupMinutes"`
	RunMinutesPerUnit float64 `db:"run_minutes_per_unit" json:"runMinutesPerUnit"`
}
