package planning_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"prodplan/internal/core/id"
	"prodplan/internal/domain/capacity"
	"prodplan/internal/infrastructure/storage/postgres"
)

const workCentersTable = "work_centers"

// CapacityRepo implements capacity.Repository.
type CapacityRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewCapacityRepo creates a new capacity repository.
func NewCapacityRepo(txm *postgres.TxManager) *CapacityRepo {
	return &CapacityRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListActiveWorkCenters returns active work centers ordered by code.
func (r *CapacityRepo) ListActiveWorkCenters(ctx context.Context, workCenterID *id.ID) ([]*capacity.WorkCenter, error) {
	q := r.builder.Select(
		"id", "code", "name", "capacity_per_hour", "cost_per_hour", "status",
	).From(workCentersTable).
		Where(squirrel.Eq{"status": capacity.WorkCenterActive}).
		OrderBy("code")

	if workCenterID != nil {
		q = q.Where(squirrel.Eq{"id": *workCenterID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var centers []*capacity.WorkCenter
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &centers, sql, args...); err != nil {
		return nil, fmt.Errorf("select work centers: %w", err)
	}
	return centers, nil
}

// ScheduledSteps returns step rows joined with their order for the date
// range. The resolved date uses the same fallback chain the domain applies:
// step planned start, else order scheduled start, else order creation.
func (r *CapacityRepo) ScheduledSteps(ctx context.Context, from, to time.Time, workCenterID *id.ID) ([]capacity.ScheduledStep, error) {
	sql := `
		SELECT s.id AS step_id, s.order_id, o.number AS order_number,
		       s.work_center_id, s.sequence,
		       s.setup_minutes, s.run_minutes_per_unit, s.planned_start,
		       o.qty_planned AS order_qty, o.status AS order_status,
		       s.status AS step_status,
		       o.scheduled_start AS order_scheduled_start,
		       o.created_at AS order_created_at
		FROM production_order_steps s
		JOIN production_orders o ON o.id = s.order_id
		WHERE o.status NOT IN ('completed', 'cancelled')
		  AND COALESCE(s.planned_start, o.scheduled_start, o.created_at) >= $1
		  AND COALESCE(s.planned_start, o.scheduled_start, o.created_at) < $2
	`
	args := []any{from, to.AddDate(0, 0, 1)}
	if workCenterID != nil {
		sql += " AND s.work_center_id = $3"
		args = append(args, *workCenterID)
	}
	sql += " ORDER BY s.order_id, s.sequence"

	var steps []capacity.ScheduledStep
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &steps, sql, args...); err != nil {
		return nil, fmt.Errorf("select scheduled steps: %w", err)
	}
	return steps, nil
}

// Ensure interface compliance.
var _ capacity.Repository = (*CapacityRepo)(nil)
