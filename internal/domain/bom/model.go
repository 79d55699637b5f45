// Package bom provides bill-of-materials cost rollup and material
// requirement calculation.
package bom

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// BOM is a single-level recipe for one finished item. Many versions may
// exist per item but at most one is active at a time.
type BOM struct {
	ID             id.ID       `db:"id" json:"id"`
	FinishedItemID id.ID       `db:"finished_item_id" json:"finishedItemId"`
	Name           string      `db:"name" json:"name"`
	Active         bool        `db:"active" json:"active"`
	LaborCost      types.Money `db:"labor_cost" json:"laborCost"`
	OverheadCost   types.Money `db:"overhead_cost" json:"overheadCost"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`

	Lines []BOMLine `db:"-" json:"lines"`
}

// BOMLine is one raw-material requirement per unit of finished item.
type BOMLine struct {
	LineID          id.ID          `db:"line_id" json:"lineId"`
	LineNo          int            `db:"line_no" json:"lineNo"`
	RawItemID       id.ID          `db:"raw_item_id" json:"rawItemId"`
	QuantityPerUnit types.Quantity `db:"quantity_per_unit" json:"quantityPerUnit"`

	// WastePercent is applied multiplicatively: 10 means 10% extra material.
	WastePercent decimal.Decimal `db:"waste_percent" json:"wastePercent"`

	Notes string `db:"notes" json:"notes,omitempty"`
}

var oneHundred = decimal.NewFromInt(100)

// WasteFactor returns 1 + wastePercent/100.
func (l *BOMLine) WasteFactor() decimal.Decimal {
	return decimal.New(1, 0).Add(l.WastePercent.Div(oneHundred))
}

// RequiredPerUnit returns the waste-adjusted quantity needed per one unit
// of finished item, as an exact decimal.
func (l *BOMLine) RequiredPerUnit() decimal.Decimal {
	return l.QuantityPerUnit.Decimal().Mul(l.WasteFactor())
}

// Validate checks structural rules; referential checks against the item
// catalog happen in the service.
func (b *BOM) Validate(_ context.Context) error {
	if id.IsNil(b.FinishedItemID) {
		return apperror.NewValidation("finished item is required").
			WithDetail("field", "finishedItemId")
	}
	if len(b.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	if b.LaborCost.IsNegative() || b.OverheadCost.IsNegative() {
		return apperror.NewValidation("costs cannot be negative")
	}
	for i, line := range b.Lines {
		if id.IsNil(line.RawItemID) {
			return apperror.NewValidation("raw item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.QuantityPerUnit.IsPositive() {
			return apperror.NewValidation("quantity per unit must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.WastePercent.IsNegative() || line.WastePercent.GreaterThan(oneHundred) {
			return apperror.NewValidation("waste percent must be between 0 and 100").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// RequirementLine is the derived per-raw-item requirement for a target
// production quantity. Not persisted.
type RequirementLine struct {
	RawItemID   id.ID  `json:"rawItemId"`
	RawItemCode string `json:"rawItemCode"`
	RawItemName string `json:"rawItemName"`
	Unit        string `json:"unit"`

	// RequiredPerUnit is the waste-adjusted quantity per one finished unit.
	RequiredPerUnit types.Quantity `json:"requiredPerUnit"`

	// TotalRequired = requiredPerUnit x targetQuantity.
	TotalRequired types.Quantity `json:"totalRequired"`

	// Available is warehouse-aware and reservation-aware stock.
	Available types.Quantity `json:"available"`

	Shortage    types.Quantity `json:"shortage"`
	HasShortage bool           `json:"hasShortage"`

	UnitCost types.Money `json:"unitCost"`
	LineCost types.Money `json:"lineCost"`
}

// RequirementResult aggregates the requirement check for one BOM run.
type RequirementResult struct {
	BOMID             id.ID             `json:"bomId"`
	FinishedItemID    id.ID             `json:"finishedItemId"`
	TargetQuantity    types.Quantity    `json:"targetQuantity"`
	WarehouseID       *id.ID            `json:"warehouseId,omitempty"`
	Lines             []RequirementLine `json:"lines"`
	TotalMaterialCost types.Money       `json:"totalMaterialCost"`
	HasShortage       bool              `json:"hasShortage"`
}
