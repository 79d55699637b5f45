// Package ledger_repo provides the PostgreSQL event source adapters behind
// ledger reconciliation. Read-only rows, no merging policy.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/ledger"
	"prodplan/internal/infrastructure/storage/postgres"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txm *postgres.TxManager
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{txm: txm}
}

// movementRow is the flat scan shape for canonical movement rows; the
// source reference is folded into the domain type after scanning.
type movementRow struct {
	ID            id.ID          `db:"id"`
	Ordinal       int64          `db:"ordinal"`
	ItemID        id.ID          `db:"item_id"`
	WarehouseID   *id.ID         `db:"warehouse_id"`
	WarehouseName *string        `db:"warehouse_name"`
	Quantity      types.Quantity `db:"quantity"`
	Kind          string         `db:"kind"`
	RefKind       string         `db:"ref_kind"`
	RefID         id.ID          `db:"ref_id"`
	LocationClass string         `db:"location_class"`
	Description   *string        `db:"description"`
	OccurredAt    time.Time      `db:"occurred_at"`
}

// MovementEvents returns canonical movement log rows for the item,
// unfiltered; warehouse scoping is reconciler policy.
func (r *LedgerRepo) MovementEvents(ctx context.Context, itemID id.ID) ([]ledger.MovementEvent, error) {
	sql := `
		SELECT m.id, m.ordinal, m.item_id, m.warehouse_id, w.name AS warehouse_name,
		       m.quantity, m.kind, m.ref_kind, m.ref_id, m.location_class,
		       m.description, m.occurred_at
		FROM stock_movements m
		LEFT JOIN warehouses w ON w.id = m.warehouse_id
		WHERE m.item_id = $1
		ORDER BY m.occurred_at, m.ordinal
	`

	var rows []movementRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, itemID); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	events := make([]ledger.MovementEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, ledger.MovementEvent{
			ID:            row.ID,
			Ordinal:       row.Ordinal,
			ItemID:        row.ItemID,
			WarehouseID:   row.WarehouseID,
			WarehouseName: deref(row.WarehouseName),
			Quantity:      row.Quantity,
			Kind:          ledger.MovementKind(row.Kind),
			Ref: ledger.SourceRef{
				Kind: ledger.SourceRefKind(row.RefKind),
				ID:   row.RefID,
			},
			Location:    ledger.LocationClass(row.LocationClass),
			Description: deref(row.Description),
			OccurredAt:  row.OccurredAt,
		})
	}
	return events, nil
}

// LegacyOrderEvents returns sale/purchase/return lines of posted legacy
// documents for the item.
func (r *LedgerRepo) LegacyOrderEvents(ctx context.Context, itemID id.ID) ([]ledger.LegacyOrderEvent, error) {
	sql := `
		SELECT l.ordinal, l.order_id AS document_id, o.number AS document_number,
		       l.item_id, l.warehouse_id, w.name AS warehouse_name,
		       l.quantity, l.kind, o.occurred_at
		FROM legacy_order_lines l
		JOIN legacy_orders o ON o.id = l.order_id
		LEFT JOIN warehouses w ON w.id = l.warehouse_id
		WHERE l.item_id = $1 AND o.posted
		ORDER BY o.occurred_at, l.ordinal
	`

	var events []ledger.LegacyOrderEvent
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &events, sql, itemID); err != nil {
		return nil, fmt.Errorf("select legacy order lines: %w", err)
	}
	return events, nil
}

// PermitEvents returns transfer/receipt/issue permit lines for the item.
func (r *LedgerRepo) PermitEvents(ctx context.Context, itemID id.ID) ([]ledger.PermitEvent, error) {
	sql := `
		SELECT l.ordinal, l.permit_id, p.number AS permit_number, p.kind,
		       l.item_id, l.quantity,
		       p.source_warehouse_id, sw.name AS source_warehouse_name,
		       p.dest_warehouse_id, dw.name AS dest_warehouse_name,
		       p.occurred_at
		FROM permit_lines l
		JOIN permits p ON p.id = l.permit_id
		LEFT JOIN warehouses sw ON sw.id = p.source_warehouse_id
		LEFT JOIN warehouses dw ON dw.id = p.dest_warehouse_id
		WHERE l.item_id = $1 AND p.posted
		ORDER BY p.occurred_at, l.ordinal
	`

	var events []ledger.PermitEvent
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &events, sql, itemID); err != nil {
		return nil, fmt.Errorf("select permit lines: %w", err)
	}
	return events, nil
}

// SumMovementsByItem sums signed canonical deltas per item.
func (r *LedgerRepo) SumMovementsByItem(ctx context.Context) (map[id.ID]types.Quantity, error) {
	sql := `
		SELECT item_id, COALESCE(SUM(quantity), 0) AS total
		FROM stock_movements
		GROUP BY item_id
	`

	querier := r.txm.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("sum movements by item: %w", err)
	}
	defer rows.Close()

	sums := make(map[id.ID]types.Quantity)
	for rows.Next() {
		var itemID id.ID
		var totalScaled int64
		if err := rows.Scan(&itemID, &totalScaled); err != nil {
			return nil, fmt.Errorf("scan movement sum: %w", err)
		}
		sums[itemID] = types.NewQuantityFromInt64Scaled(totalScaled)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movement sums: %w", err)
	}
	return sums, nil
}

// SumMovements sums signed canonical deltas for one (item, warehouse).
// found is false when the pair has no movements at all.
func (r *LedgerRepo) SumMovements(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, bool, error) {
	sql := `
		SELECT COALESCE(SUM(quantity), 0) AS total, COUNT(*) AS cnt
		FROM stock_movements
		WHERE item_id = $1 AND warehouse_id = $2
	`

	var totalScaled, count int64
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, itemID, warehouseID).Scan(&totalScaled, &count)
	if err != nil && err != pgx.ErrNoRows {
		return 0, false, fmt.Errorf("sum movements: %w", err)
	}
	if count == 0 {
		return 0, false, nil
	}
	return types.NewQuantityFromInt64Scaled(totalScaled), true, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
