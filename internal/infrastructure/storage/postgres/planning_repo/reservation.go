package planning_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/reservation"
	"prodplan/internal/infrastructure/storage/postgres"
)

const reservationsTable = "reservations"

// ReservationRepo implements reservation.Repository.
type ReservationRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReservationRepo creates a new reservation repository.
func NewReservationRepo(txm *postgres.TxManager) *ReservationRepo {
	return &ReservationRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// OutstandingFor sums the net held quantity for an (item, warehouse) pair
// over active reservations. Warehouse-null rows are unscoped holds and count
// against every warehouse.
func (r *ReservationRepo) OutstandingFor(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(GREATEST(quantity_reserved - quantity_consumed, 0)), 0)
		FROM reservations
		WHERE item_id = $1
		  AND (warehouse_id = $2 OR warehouse_id IS NULL)
		  AND status IN ('reserved', 'partially_consumed')
	`

	var scaled int64
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, itemID, warehouseID).Scan(&scaled)
	if err != nil && err != pgx.ErrNoRows {
		return 0, fmt.Errorf("sum outstanding reservations: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(scaled), nil
}

// Create inserts a reservation.
func (r *ReservationRepo) Create(ctx context.Context, res *reservation.Reservation) error {
	q := r.builder.Insert(reservationsTable).
		Columns("id", "production_order_id", "item_id", "warehouse_id",
			"quantity_reserved", "quantity_consumed", "status", "created_at").
		Values(res.ID, res.ProductionOrderID, res.ItemID, res.WarehouseID,
			res.QuantityReserved.Int64Scaled(), res.QuantityConsumed.Int64Scaled(),
			res.Status, res.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// Ensure interface compliance.
var _ reservation.Repository = (*ReservationRepo)(nil)
