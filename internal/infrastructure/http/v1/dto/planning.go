package dto

import (
	"github.com/shopspring/decimal"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/bom"
)

// --- BOM ---

// BOMLineRequest is one raw-material line of a BOM write request.
type BOMLineRequest struct {
	RawItemID       string         `json:"rawItemId" binding:"required"`
	QuantityPerUnit types.Quantity `json:"quantityPerUnit" binding:"required"`
	WastePercent    float64        `json:"wastePercent"`
	Notes           string         `json:"notes"`
}

// SaveBOMRequest creates or updates a BOM with its full line set.
type SaveBOMRequest struct {
	FinishedItemID string           `json:"finishedItemId" binding:"required"`
	Name           string           `json:"name"`
	Active         bool             `json:"active"`
	LaborCost      float64          `json:"laborCost"`
	OverheadCost   float64          `json:"overheadCost"`
	Lines          []BOMLineRequest `json:"lines" binding:"required"`
}

// ToBOM converts the request to the domain shape. Structural and
// referential validation happens in the service.
func (r *SaveBOMRequest) ToBOM() (*bom.BOM, error) {
	finishedItemID, err := id.Parse(r.FinishedItemID)
	if err != nil {
		return nil, err
	}

	b := &bom.BOM{
		FinishedItemID: finishedItemID,
		Name:           r.Name,
		Active:         r.Active,
		LaborCost:      types.NewMoney(r.LaborCost),
		OverheadCost:   types.NewMoney(r.OverheadCost),
		Lines:          make([]bom.BOMLine, 0, len(r.Lines)),
	}
	for _, line := range r.Lines {
		rawItemID, err := id.Parse(line.RawItemID)
		if err != nil {
			return nil, err
		}
		b.Lines = append(b.Lines, bom.BOMLine{
			RawItemID:       rawItemID,
			QuantityPerUnit: line.QuantityPerUnit,
			WastePercent:    decimal.NewFromFloat(line.WastePercent),
			Notes:           line.Notes,
		})
	}
	return b, nil
}

// UnitCostResponse is the derived BOM cost.
type UnitCostResponse struct {
	BOMID    string      `json:"bomId"`
	UnitCost types.Money `json:"unitCost"`
}

// --- MRP ---

// ConvertSuggestionsRequest selects suggestions to turn into orders.
type ConvertSuggestionsRequest struct {
	SuggestionIDs []string `json:"suggestionIds" binding:"required"`
}

// ParseIDs converts the raw id strings.
func (r *ConvertSuggestionsRequest) ParseIDs() ([]id.ID, error) {
	ids := make([]id.ID, 0, len(r.SuggestionIDs))
	for _, raw := range r.SuggestionIDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}
