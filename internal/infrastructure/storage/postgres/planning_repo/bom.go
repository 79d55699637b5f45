// Package planning_repo provides PostgreSQL implementations for the
// planning repositories: BOMs, reservations, MRP suggestions and capacity.
package planning_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/bom"
	"prodplan/internal/infrastructure/storage/postgres"
)

const (
	bomsTable           = "boms"
	bomLinesTable       = "bom_lines"
	warehouseStockTable = "warehouse_stock"
)

// BOMRepo implements bom.Repository.
type BOMRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewBOMRepo creates a new BOM repository.
func NewBOMRepo(txm *postgres.TxManager) *BOMRepo {
	return &BOMRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a BOM with its lines.
func (r *BOMRepo) GetByID(ctx context.Context, bomID id.ID) (*bom.BOM, error) {
	q := r.builder.Select(
		"id", "finished_item_id", "name", "active",
		"labor_cost", "overhead_cost", "created_at", "updated_at",
	).From(bomsTable).
		Where(squirrel.Eq{"id": bomID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b bom.BOM
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("bom", bomID)
		}
		return nil, fmt.Errorf("get bom: %w", err)
	}

	if b.Lines, err = r.loadLines(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetActiveByItem retrieves the active BOM for a finished item.
func (r *BOMRepo) GetActiveByItem(ctx context.Context, finishedItemID id.ID) (*bom.BOM, error) {
	q := r.builder.Select(
		"id", "finished_item_id", "name", "active",
		"labor_cost", "overhead_cost", "created_at", "updated_at",
	).From(bomsTable).
		Where(squirrel.Eq{"finished_item_id": finishedItemID, "active": true}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b bom.BOM
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("active bom", finishedItemID)
		}
		return nil, fmt.Errorf("get active bom: %w", err)
	}

	if b.Lines, err = r.loadLines(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BOMRepo) loadLines(ctx context.Context, bomID id.ID) ([]bom.BOMLine, error) {
	q := r.builder.Select(
		"line_id", "line_no", "raw_item_id",
		"quantity_per_unit", "waste_percent", "notes",
	).From(bomLinesTable).
		Where(squirrel.Eq{"bom_id": bomID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []bom.BOMLine
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select bom lines: %w", err)
	}
	return lines, nil
}

// Create inserts a BOM header. Lines are saved separately via SaveLines.
func (r *BOMRepo) Create(ctx context.Context, b *bom.BOM) error {
	q := r.builder.Insert(bomsTable).
		Columns("id", "finished_item_id", "name", "active",
			"labor_cost", "overhead_cost", "created_at", "updated_at").
		Values(b.ID, b.FinishedItemID, b.Name, b.Active,
			b.LaborCost, b.OverheadCost, b.CreatedAt, b.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bom: %w", err)
	}
	return nil
}

// Update rewrites a BOM header.
func (r *BOMRepo) Update(ctx context.Context, b *bom.BOM) error {
	q := r.builder.Update(bomsTable).
		Set("name", b.Name).
		Set("active", b.Active).
		Set("labor_cost", b.LaborCost).
		Set("overhead_cost", b.OverheadCost).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": b.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update bom: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("bom", b.ID)
	}
	return nil
}

// SaveLines replaces the line set of a BOM.
func (r *BOMRepo) SaveLines(ctx context.Context, bomID id.ID, lines []bom.BOMLine) error {
	querier := r.txm.GetQuerier(ctx)

	delSQL, delArgs, err := r.builder.Delete(bomLinesTable).
		Where(squirrel.Eq{"bom_id": bomID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete bom lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.builder.Insert(bomLinesTable).Columns(
		"line_id", "bom_id", "line_no", "raw_item_id",
		"quantity_per_unit", "waste_percent", "notes",
	)
	for i, line := range lines {
		q = q.Values(
			line.LineID, bomID, i+1, line.RawItemID,
			line.QuantityPerUnit.Int64Scaled(), line.WastePercent, line.Notes,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bom lines: %w", err)
	}
	return nil
}

// DeactivateSiblings clears the active flag on every other BOM of the same
// finished item.
func (r *BOMRepo) DeactivateSiblings(ctx context.Context, finishedItemID, keepID id.ID) error {
	q := r.builder.Update(bomsTable).
		Set("active", false).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"finished_item_id": finishedItemID}).
		Where(squirrel.NotEq{"id": keepID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("deactivate sibling boms: %w", err)
	}
	return nil
}

// GetWarehouseStock returns the explicit per-warehouse stock record for an
// item, with found=false when no record exists.
func (r *BOMRepo) GetWarehouseStock(ctx context.Context, itemID, warehouseID id.ID) (types.Quantity, bool, error) {
	q := r.builder.Select("quantity").
		From(warehouseStockTable).
		Where(squirrel.Eq{"item_id": itemID, "warehouse_id": warehouseID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build query: %w", err)
	}

	var scaled int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&scaled); err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get warehouse stock: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(scaled), true, nil
}

// Ensure interface compliance.
var _ bom.Repository = (*BOMRepo)(nil)
