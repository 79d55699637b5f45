package planning_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/mrp"
	"prodplan/internal/domain/production"
	"prodplan/internal/infrastructure/storage/postgres"
)

const (
	suggestionsTable = "mrp_suggestions"
	ordersTable      = "production_orders"
	orderStepsTable  = "production_order_steps"
)

// MRPRepo implements mrp.Repository.
type MRPRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewMRPRepo creates a new MRP repository.
func NewMRPRepo(txm *postgres.TxManager) *MRPRepo {
	return &MRPRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// OpenSalesDemand sums open sale line quantities per item from posted,
// unpaid documents due on or before targetDate.
func (r *MRPRepo) OpenSalesDemand(ctx context.Context, targetDate time.Time) (map[id.ID]types.Quantity, error) {
	sql := `
		SELECT l.item_id, COALESCE(SUM(l.quantity), 0) AS total
		FROM sale_order_lines l
		JOIN sale_orders o ON o.id = l.order_id
		WHERE o.posted AND NOT o.paid AND o.due_date <= $1
		GROUP BY l.item_id
	`
	return r.sumByItem(ctx, sql, targetDate)
}

// IncomingProduction sums (qty_planned - qty_finished) per item over
// non-terminal production orders.
func (r *MRPRepo) IncomingProduction(ctx context.Context) (map[id.ID]types.Quantity, error) {
	sql := `
		SELECT item_id, COALESCE(SUM(GREATEST(qty_planned - qty_finished, 0)), 0) AS total
		FROM production_orders
		WHERE status NOT IN ('completed', 'cancelled')
		GROUP BY item_id
	`
	return r.sumByItem(ctx, sql)
}

func (r *MRPRepo) sumByItem(ctx context.Context, sql string, args ...any) (map[id.ID]types.Quantity, error) {
	querier := r.txm.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("sum by item: %w", err)
	}
	defer rows.Close()

	sums := make(map[id.ID]types.Quantity)
	for rows.Next() {
		var itemID id.ID
		var totalScaled int64
		if err := rows.Scan(&itemID, &totalScaled); err != nil {
			return nil, fmt.Errorf("scan item sum: %w", err)
		}
		sums[itemID] = types.NewQuantityFromInt64Scaled(totalScaled)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item sums: %w", err)
	}
	return sums, nil
}

// SupersedePending flips all pending suggestions to superseded.
func (r *MRPRepo) SupersedePending(ctx context.Context) error {
	q := r.builder.Update(suggestionsTable).
		Set("status", mrp.SuggestionSuperseded).
		Where(squirrel.Eq{"status": mrp.SuggestionPending})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("supersede pending suggestions: %w", err)
	}
	return nil
}

// InsertSuggestions persists a freshly generated suggestion batch.
func (r *MRPRepo) InsertSuggestions(ctx context.Context, suggestions []mrp.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	q := r.builder.Insert(suggestionsTable).Columns(
		"id", "item_id", "bom_id", "routing_id", "quantity", "status",
		"target_date", "suggested_start_date", "created_at",
	)
	for _, s := range suggestions {
		q = q.Values(
			s.ID, s.ItemID, s.BOMID, s.RoutingID, s.Quantity.Int64Scaled(),
			s.Status, s.TargetDate, s.SuggestedStartDate, s.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert suggestions: %w", err)
	}
	return nil
}

// GetSuggestions fetches suggestions by id.
func (r *MRPRepo) GetSuggestions(ctx context.Context, ids []id.ID) ([]mrp.Suggestion, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.builder.Select(
		"id", "item_id", "bom_id", "routing_id", "quantity", "status",
		"target_date", "suggested_start_date", "created_at",
	).From(suggestionsTable).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var suggestions []mrp.Suggestion
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &suggestions, sql, args...); err != nil {
		return nil, fmt.Errorf("select suggestions: %w", err)
	}
	return suggestions, nil
}

// MarkConverted flips one suggestion to converted, linking the order.
func (r *MRPRepo) MarkConverted(ctx context.Context, suggestionID, orderID id.ID) error {
	q := r.builder.Update(suggestionsTable).
		Set("status", mrp.SuggestionConverted).
		Set("order_id", orderID).
		Where(squirrel.Eq{"id": suggestionID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("mark suggestion converted: %w", err)
	}
	return nil
}

// RoutingSteps returns the routing's template steps ordered by sequence.
func (r *MRPRepo) RoutingSteps(ctx context.Context, routingID id.ID) ([]production.RoutingStep, error) {
	q := r.builder.Select(
		"routing_id", "sequence", "work_center_id",
		"setup_minutes", "run_minutes_per_unit",
	).From("routing_steps").
		Where(squirrel.Eq{"routing_id": routingID}).
		OrderBy("sequence")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var steps []production.RoutingStep
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &steps, sql, args...); err != nil {
		return nil, fmt.Errorf("select routing steps: %w", err)
	}
	return steps, nil
}

// CreateOrder persists a new production order.
func (r *MRPRepo) CreateOrder(ctx context.Context, order *production.Order) error {
	q := r.builder.Insert(ordersTable).
		Columns("id", "number", "item_id", "bom_id", "routing_id",
			"qty_planned", "qty_finished", "status", "scheduled_start", "created_at").
		Values(order.ID, order.Number, order.ItemID, order.BOMID, order.RoutingID,
			order.QtyPlanned.Int64Scaled(), order.QtyFinished.Int64Scaled(),
			order.Status, order.ScheduledStart, order.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert production order: %w", err)
	}
	return nil
}

// CreateOrderSteps persists the steps copied from a routing.
func (r *MRPRepo) CreateOrderSteps(ctx context.Context, steps []production.Step) error {
	if len(steps) == 0 {
		return nil
	}

	q := r.builder.Insert(orderStepsTable).Columns(
		"id", "order_id", "work_center_id", "sequence",
		"setup_minutes", "run_minutes_per_unit", "planned_start", "status",
	)
	for _, s := range steps {
		q = q.Values(
			s.ID, s.OrderID, s.WorkCenterID, s.Sequence,
			s.SetupMinutes, s.RunMinutesPerUnit, s.PlannedStart, s.Status,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order steps: %w", err)
	}
	return nil
}

// Ensure interface compliance.
var _ mrp.Repository = (*MRPRepo)(nil)
