// Package item provides the stock-keeping item catalog.
// Items are created and edited by catalog management; this core only reads
// them and refreshes two derived caches: unit cost and on-hand stock.
package item

import (
	"time"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// Item represents a stock-keeping unit.
type Item struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	Unit string `db:"unit" json:"unit"`

	// Stock is the cached global on-hand quantity. It is a periodically
	// reconciled projection of the movement log, not a source of truth.
	Stock types.Quantity `db:"stock" json:"stock"`

	// UnitCost is cached from the active BOM's cost rollup for manufactured
	// items, or from purchasing for raw items.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// MinStock is the safety-stock level used by MRP netting.
	MinStock types.Quantity `db:"min_stock" json:"minStock"`

	// LeadTimeDays offsets MRP suggested start dates.
	LeadTimeDays int `db:"lead_time_days" json:"leadTimeDays"`

	IsManufactured bool `db:"is_manufactured" json:"isManufactured"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// SafetyGap returns how far current stock sits below the safety level,
// floored at zero.
func (i *Item) SafetyGap() types.Quantity {
	gap := i.MinStock - i.Stock
	if gap < 0 {
		return 0
	}
	return gap
}
