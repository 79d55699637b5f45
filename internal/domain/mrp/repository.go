package mrp

import (
	"context"
	"time"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/production"
)

// Repository defines the demand, supply and suggestion queries behind the
// netting engine.
type Repository interface {
	// OpenSalesDemand sums open sale line quantities per item from posted,
	// unpaid documents due on or before targetDate.
	OpenSalesDemand(ctx context.Context, targetDate time.Time) (map[id.ID]types.Quantity, error)

	// IncomingProduction sums (qtyPlanned - qtyFinished) per item over
	// non-terminal production orders.
	IncomingProduction(ctx context.Context) (map[id.ID]types.Quantity, error)

	// SupersedePending flips all pending suggestions to superseded.
	SupersedePending(ctx context.Context) error

	// InsertSuggestions persists a freshly generated suggestion batch.
	InsertSuggestions(ctx context.Context, suggestions []Suggestion) error

	// GetSuggestions fetches suggestions by id.
	GetSuggestions(ctx context.Context, ids []id.ID) ([]Suggestion, error)

	// MarkConverted flips one suggestion to converted, linking the order.
	MarkConverted(ctx context.Context, suggestionID, orderID id.ID) error

	// RoutingSteps returns the routing's template steps ordered by sequence.
	RoutingSteps(ctx context.Context, routingID id.ID) ([]production.RoutingStep, error)

	// CreateOrder persists a new production order.
	CreateOrder(ctx context.Context, order *production.Order) error

	// CreateOrderSteps persists the steps copied from a routing.
	CreateOrderSteps(ctx context.Context, steps []production.Step) error
}
