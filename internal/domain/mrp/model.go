// Package mrp provides material requirements planning: demand aggregation,
// net-requirement netting and replenishment suggestions.
package mrp

import (
	"time"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
)

// Requirement is the derived net requirement for one manufactured item.
type Requirement struct {
	ItemID   id.ID  `json:"itemId"`
	ItemCode string `json:"itemCode"`
	ItemName string `json:"itemName"`
	BOMID    id.ID  `json:"bomId"`

	// Demand breakdown: open sales quantity due on or before the target
	// date, plus the safety-stock gap when enabled.
	SalesDemand  types.Quantity `json:"salesDemand"`
	SafetyDemand types.Quantity `json:"safetyDemand"`
	TotalDemand  types.Quantity `json:"totalDemand"`

	CurrentStock types.Quantity `json:"currentStock"`

	// Incoming is the open quantity of non-terminal production orders.
	Incoming types.Quantity `json:"incoming"`

	// NetRequirement = max(0, demand - (stock + incoming)).
	NetRequirement types.Quantity `json:"netRequirement"`

	LeadTimeDays       int       `json:"leadTimeDays"`
	TargetDate         time.Time `json:"targetDate"`
	SuggestedStartDate time.Time `json:"suggestedStartDate"`
}

// SuggestionStatus of a replenishment suggestion.
type SuggestionStatus string

const (
	SuggestionPending    SuggestionStatus = "pending"
	SuggestionApproved   SuggestionStatus = "approved"
	SuggestionConverted  SuggestionStatus = "converted"
	SuggestionSuperseded SuggestionStatus = "superseded"
	SuggestionRejected   SuggestionStatus = "rejected"
)

// Convertible reports whether the suggestion may still become an order.
func (s SuggestionStatus) Convertible() bool {
	return s == SuggestionPending || s == SuggestionApproved
}

// Suggestion is a persisted replenishment proposal produced from a
// calculated Requirement.
type Suggestion struct {
	ID                 id.ID            `db:"id" json:"id"`
	ItemID             id.ID            `db:"item_id" json:"itemId"`
	BOMID              id.ID            `db:"bom_id" json:"bomId"`
	RoutingID          *id.ID           `db:"routing_id" json:"routingId,omitempty"`
	Quantity           types.Quantity   `db:"quantity" json:"quantity"`
	Status             SuggestionStatus `db:"status" json:"status"`
	TargetDate         time.Time        `db:"target_date" json:"targetDate"`
	SuggestedStartDate time.Time        `db:"suggested_start_date" json:"suggestedStartDate"`
	CreatedAt          time.Time        `db:"created_at" json:"createdAt"`
}

// ConversionResult reports the outcome of converting suggestions to orders.
type ConversionResult struct {
	OrdersCreated int     `json:"ordersCreated"`
	OrderIDs      []id.ID `json:"orderIds"`
	SkippedIDs    []id.ID `json:"skippedIds,omitempty"`
	Message       string  `json:"message,omitempty"`
}
