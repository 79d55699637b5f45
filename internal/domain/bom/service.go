package bom

import (
	"context"
	"fmt"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/internal/core/tx"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/catalog/item"
	"prodplan/internal/domain/reservation"
	"prodplan/pkg/logger"
)

// Service provides BOM cost rollup and material requirement calculation.
type Service struct {
	repo      Repository
	itemRepo  item.Repository
	resRepo   reservation.Repository
	resolvers []StockResolver
	txManager tx.Manager
}

// NewService creates a new BOM service.
func NewService(
	repo Repository,
	itemRepo item.Repository,
	resRepo reservation.Repository,
	resolvers []StockResolver,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		itemRepo:  itemRepo,
		resRepo:   resRepo,
		resolvers: resolvers,
		txManager: txManager,
	}
}

// GetUnitCost computes the derived unit cost of a BOM:
// labor + overhead + sum(quantityPerUnit x wasteFactor x rawItem.unitCost).
// Raw items with no cost contribute zero. When the BOM is active, the
// result is written back onto the finished item as a cost cache; inactive
// BOMs never touch the item.
func (s *Service) GetUnitCost(ctx context.Context, bomID id.ID) (types.Money, error) {
	b, err := s.repo.GetByID(ctx, bomID)
	if err != nil {
		return types.Zero(), err
	}

	total, err := s.rollupCost(ctx, b)
	if err != nil {
		return types.Zero(), err
	}

	if b.Active {
		err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.itemRepo.UpdateUnitCost(ctx, b.FinishedItemID, total)
		})
		if err != nil {
			return types.Zero(), fmt.Errorf("cache unit cost: %w", err)
		}
	}

	return total, nil
}

func (s *Service) rollupCost(ctx context.Context, b *BOM) (types.Money, error) {
	items, err := s.rawItems(ctx, b)
	if err != nil {
		return types.Zero(), err
	}

	total := b.LaborCost.Add(b.OverheadCost)
	for _, line := range b.Lines {
		unitCost := types.Zero()
		if raw, ok := items[line.RawItemID]; ok {
			unitCost = raw.UnitCost
		}
		total = total.Add(line.RequiredPerUnit().Mul(unitCost))
	}
	return total, nil
}

func (s *Service) rawItems(ctx context.Context, b *BOM) (map[id.ID]*item.Item, error) {
	ids := make([]id.ID, 0, len(b.Lines))
	for _, line := range b.Lines {
		ids = append(ids, line.RawItemID)
	}
	items, err := s.itemRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load raw items: %w", err)
	}
	return items, nil
}

// ComputeRequirements calculates per-component required quantity (with
// waste), available stock (warehouse-aware, reservation-aware) and shortage
// for producing targetQty units.
func (s *Service) ComputeRequirements(ctx context.Context, bomID id.ID, targetQty types.Quantity, warehouseID *id.ID) (*RequirementResult, error) {
	if !targetQty.IsPositive() {
		return nil, apperror.NewInvalidInput("target quantity must be positive").
			WithDetail("targetQuantity", targetQty)
	}

	b, err := s.repo.GetByID(ctx, bomID)
	if err != nil {
		return nil, err
	}

	items, err := s.rawItems(ctx, b)
	if err != nil {
		return nil, err
	}

	result := &RequirementResult{
		BOMID:             b.ID,
		FinishedItemID:    b.FinishedItemID,
		TargetQuantity:    targetQty,
		WarehouseID:       warehouseID,
		Lines:             make([]RequirementLine, 0, len(b.Lines)),
		TotalMaterialCost: types.Zero(),
	}

	for _, line := range b.Lines {
		reqLine, err := s.computeLine(ctx, line, targetQty, warehouseID, items)
		if err != nil {
			return nil, err
		}
		result.TotalMaterialCost = result.TotalMaterialCost.Add(reqLine.LineCost)
		if reqLine.HasShortage {
			result.HasShortage = true
		}
		result.Lines = append(result.Lines, reqLine)
	}

	return result, nil
}

func (s *Service) computeLine(
	ctx context.Context,
	line BOMLine,
	targetQty types.Quantity,
	warehouseID *id.ID,
	items map[id.ID]*item.Item,
) (RequirementLine, error) {
	perUnit := line.RequiredPerUnit()
	totalRequired := types.NewQuantityFromDecimal(perUnit.Mul(targetQty.Decimal()))

	reqLine := RequirementLine{
		RawItemID:       line.RawItemID,
		RequiredPerUnit: types.NewQuantityFromDecimal(perUnit),
		TotalRequired:   totalRequired,
		UnitCost:        types.Zero(),
	}

	if raw, ok := items[line.RawItemID]; ok {
		reqLine.RawItemCode = raw.Code
		reqLine.RawItemName = raw.Name
		reqLine.Unit = raw.Unit
		reqLine.UnitCost = raw.UnitCost
	}
	reqLine.LineCost = totalRequired.Decimal().Mul(reqLine.UnitCost)

	available, err := s.availableStock(ctx, line.RawItemID, warehouseID, items)
	if err != nil {
		return reqLine, err
	}
	reqLine.Available = available

	shortage := totalRequired - available
	if shortage < 0 {
		shortage = 0
	}
	reqLine.Shortage = shortage
	// Tolerance absorbs rounding accumulated across movements: a 0.0005
	// deficit is not a real shortage.
	reqLine.HasShortage = shortage > types.QuantityEpsilon

	return reqLine, nil
}

// availableStock resolves stock through the ordered strategy chain when a
// warehouse is requested, then subtracts outstanding reservations (both
// warehouse-scoped and unscoped holds). The global view uses the item's
// cached figure directly and skips reservations.
func (s *Service) availableStock(
	ctx context.Context,
	itemID id.ID,
	warehouseID *id.ID,
	items map[id.ID]*item.Item,
) (types.Quantity, error) {
	if warehouseID == nil {
		if raw, ok := items[itemID]; ok {
			return raw.Stock, nil
		}
		return 0, nil
	}

	var available types.Quantity
	resolved := false
	for _, resolver := range s.resolvers {
		qty, found, err := resolver.Resolve(ctx, itemID, *warehouseID)
		if err != nil {
			return 0, fmt.Errorf("resolve stock via %s: %w", resolver.Name(), err)
		}
		if found {
			available = qty
			resolved = true
			break
		}
	}
	if !resolved {
		logger.Debug(ctx, "no stock source resolved, assuming zero",
			"item_id", itemID, "warehouse_id", *warehouseID)
	}

	held, err := s.resRepo.OutstandingFor(ctx, itemID, *warehouseID)
	if err != nil {
		return 0, fmt.Errorf("sum reservations: %w", err)
	}

	return available - held, nil
}

// Create validates and persists a new BOM with its lines, enforces the
// single-active-version rule, and refreshes the finished item's cost cache,
// all within one transaction.
func (s *Service) Create(ctx context.Context, b *BOM) error {
	return s.save(ctx, b, true)
}

// Update modifies an existing BOM under the same rules as Create.
func (s *Service) Update(ctx context.Context, b *BOM) error {
	return s.save(ctx, b, false)
}

func (s *Service) save(ctx context.Context, b *BOM, create bool) error {
	if err := b.Validate(ctx); err != nil {
		return err
	}

	if err := s.checkLineReferences(ctx, b); err != nil {
		return err
	}

	if id.IsNil(b.ID) {
		b.ID = id.New()
	}
	for i := range b.Lines {
		if id.IsNil(b.Lines[i].LineID) {
			b.Lines[i].LineID = id.New()
		}
		b.Lines[i].LineNo = i + 1
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if create {
			if err := s.repo.Create(ctx, b); err != nil {
				return fmt.Errorf("create bom: %w", err)
			}
		} else {
			if err := s.repo.Update(ctx, b); err != nil {
				return fmt.Errorf("update bom: %w", err)
			}
		}

		if err := s.repo.SaveLines(ctx, b.ID, b.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		if b.Active {
			if err := s.repo.DeactivateSiblings(ctx, b.FinishedItemID, b.ID); err != nil {
				return fmt.Errorf("deactivate siblings: %w", err)
			}

			cost, err := s.rollupCost(ctx, b)
			if err != nil {
				return err
			}
			if err := s.itemRepo.UpdateUnitCost(ctx, b.FinishedItemID, cost); err != nil {
				return fmt.Errorf("cache unit cost: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "bom saved",
		"bom_id", b.ID,
		"finished_item_id", b.FinishedItemID,
		"active", b.Active,
		"lines", len(b.Lines),
	)

	return nil
}

// checkLineReferences rejects lines pointing at unknown raw items before the
// transaction opens.
func (s *Service) checkLineReferences(ctx context.Context, b *BOM) error {
	items, err := s.rawItems(ctx, b)
	if err != nil {
		return err
	}
	for _, line := range b.Lines {
		if _, ok := items[line.RawItemID]; !ok {
			return apperror.NewReferentialViolation("raw item", line.RawItemID)
		}
	}
	return nil
}
