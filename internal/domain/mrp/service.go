package mrp

import (
	"context"
	"fmt"
	"time"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/internal/core/tx"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/bom"
	"prodplan/internal/domain/catalog/item"
	"prodplan/internal/domain/production"
	"prodplan/internal/domain/reservation"
	"prodplan/pkg/logger"
)

// CalculateOptions control which demand components enter the netting.
type CalculateOptions struct {
	TargetDate             time.Time
	IncludeOpenSalesOrders bool
	IncludeSafetyStock     bool
}

// Service provides MRP netting and suggestion management.
type Service struct {
	repo      Repository
	itemRepo  item.Repository
	bomRepo   bom.Repository
	resRepo   reservation.Repository
	txManager tx.Manager
}

// NewService creates a new MRP service.
func NewService(
	repo Repository,
	itemRepo item.Repository,
	bomRepo bom.Repository,
	resRepo reservation.Repository,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		itemRepo:  itemRepo,
		bomRepo:   bomRepo,
		resRepo:   resRepo,
		txManager: txManager,
	}
}

// Calculate nets demand against on-hand stock and incoming production for
// every manufactured item with an active BOM. Items with nothing to plan
// for are omitted. Output order follows the manufactured item listing
// (by code), so a given snapshot always yields the same sequence.
func (s *Service) Calculate(ctx context.Context, opts CalculateOptions) ([]Requirement, error) {
	if opts.TargetDate.IsZero() {
		return nil, apperror.NewInvalidInput("target date is required")
	}

	items, err := s.itemRepo.ListManufactured(ctx)
	if err != nil {
		return nil, fmt.Errorf("list manufactured items: %w", err)
	}

	var sales map[id.ID]types.Quantity
	if opts.IncludeOpenSalesOrders {
		sales, err = s.repo.OpenSalesDemand(ctx, opts.TargetDate)
		if err != nil {
			return nil, fmt.Errorf("load open sales demand: %w", err)
		}
	}

	incoming, err := s.repo.IncomingProduction(ctx)
	if err != nil {
		return nil, fmt.Errorf("load incoming production: %w", err)
	}

	requirements := make([]Requirement, 0, len(items))
	for _, it := range items {
		activeBOM, err := s.bomRepo.GetActiveByItem(ctx, it.ID)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue // nothing to plan without a recipe
			}
			return nil, fmt.Errorf("load active bom for %s: %w", it.Code, err)
		}

		req := Requirement{
			ItemID:       it.ID,
			ItemCode:     it.Code,
			ItemName:     it.Name,
			BOMID:        activeBOM.ID,
			CurrentStock: it.Stock,
			Incoming:     incoming[it.ID],
			LeadTimeDays: it.LeadTimeDays,
			TargetDate:   opts.TargetDate,
		}

		req.SalesDemand = sales[it.ID]
		if opts.IncludeSafetyStock {
			req.SafetyDemand = it.SafetyGap()
		}
		req.TotalDemand = req.SalesDemand + req.SafetyDemand

		net := req.TotalDemand - (req.CurrentStock + req.Incoming)
		if net <= 0 {
			continue
		}
		req.NetRequirement = net
		req.SuggestedStartDate = opts.TargetDate.AddDate(0, 0, -it.LeadTimeDays)

		requirements = append(requirements, req)
	}

	logger.Debug(ctx, "mrp calculated",
		"target_date", opts.TargetDate,
		"items_considered", len(items),
		"requirements", len(requirements),
	)

	return requirements, nil
}

// GenerateSuggestions recalculates requirements and persists them as
// pending suggestions, superseding any prior pending batch, in one
// transaction.
func (s *Service) GenerateSuggestions(ctx context.Context, opts CalculateOptions) ([]Suggestion, error) {
	requirements, err := s.Calculate(ctx, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	suggestions := make([]Suggestion, 0, len(requirements))
	for _, req := range requirements {
		suggestions = append(suggestions, Suggestion{
			ID:                 id.New(),
			ItemID:             req.ItemID,
			BOMID:              req.BOMID,
			Quantity:           req.NetRequirement,
			Status:             SuggestionPending,
			TargetDate:         req.TargetDate,
			SuggestedStartDate: req.SuggestedStartDate,
			CreatedAt:          now,
		})
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SupersedePending(ctx); err != nil {
			return fmt.Errorf("supersede pending suggestions: %w", err)
		}
		if len(suggestions) == 0 {
			return nil
		}
		if err := s.repo.InsertSuggestions(ctx, suggestions); err != nil {
			return fmt.Errorf("insert suggestions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "mrp suggestions generated", "count", len(suggestions))

	return suggestions, nil
}

// ConvertToOrders turns pending or approved suggestions into production
// orders, copying routing steps with their sequence numbers and reserving
// the active BOM's materials, all within one transaction. Already converted
// suggestions are skipped; when nothing is convertible the call is a no-op
// reporting "no valid suggestions found", not an error.
func (s *Service) ConvertToOrders(ctx context.Context, suggestionIDs []id.ID) (*ConversionResult, error) {
	if len(suggestionIDs) == 0 {
		return nil, apperror.NewInvalidInput("at least one suggestion id is required")
	}

	suggestions, err := s.repo.GetSuggestions(ctx, suggestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load suggestions: %w", err)
	}

	result := &ConversionResult{}
	convertible := make([]Suggestion, 0, len(suggestions))
	for _, sug := range suggestions {
		if sug.Status.Convertible() {
			convertible = append(convertible, sug)
		} else {
			result.SkippedIDs = append(result.SkippedIDs, sug.ID)
		}
	}

	if len(convertible) == 0 {
		result.Message = "no valid suggestions found"
		return result, nil
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, sug := range convertible {
			orderID, err := s.convertOne(ctx, sug)
			if err != nil {
				return err
			}
			result.OrderIDs = append(result.OrderIDs, orderID)
			result.OrdersCreated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "mrp suggestions converted",
		"orders_created", result.OrdersCreated,
		"skipped", len(result.SkippedIDs),
	)

	return result, nil
}

func (s *Service) convertOne(ctx context.Context, sug Suggestion) (id.ID, error) {
	start := sug.SuggestedStartDate
	order := &production.Order{
		ID:             id.New(),
		ItemID:         sug.ItemID,
		BOMID:          sug.BOMID,
		RoutingID:      sug.RoutingID,
		QtyPlanned:     sug.Quantity,
		Status:         production.OrderPlanned,
		ScheduledStart: &start,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return id.Nil(), fmt.Errorf("create order: %w", err)
	}

	if sug.RoutingID != nil {
		routingSteps, err := s.repo.RoutingSteps(ctx, *sug.RoutingID)
		if err != nil {
			return id.Nil(), fmt.Errorf("load routing steps: %w", err)
		}
		steps := make([]production.Step, 0, len(routingSteps))
		for _, rs := range routingSteps {
			steps = append(steps, production.Step{
				ID:                id.New(),
				OrderID:           order.ID,
				WorkCenterID:      rs.WorkCenterID,
				Sequence:          rs.Sequence,
				SetupMinutes:      rs.SetupMinutes,
				RunMinutesPerUnit: rs.RunMinutesPerUnit,
				Status:            production.StepPending,
			})
		}
		if len(steps) > 0 {
			if err := s.repo.CreateOrderSteps(ctx, steps); err != nil {
				return id.Nil(), fmt.Errorf("copy routing steps: %w", err)
			}
		}
	}

	if err := s.reserveMaterials(ctx, order); err != nil {
		return id.Nil(), err
	}

	if err := s.repo.MarkConverted(ctx, sug.ID, order.ID); err != nil {
		return id.Nil(), fmt.Errorf("mark converted: %w", err)
	}

	return order.ID, nil
}

// reserveMaterials places a soft hold on each BOM component for the order
// quantity. Reservations reduce requirement-visible stock without touching
// the ledger.
func (s *Service) reserveMaterials(ctx context.Context, order *production.Order) error {
	b, err := s.bomRepo.GetByID(ctx, order.BOMID)
	if err != nil {
		return fmt.Errorf("load bom: %w", err)
	}

	now := time.Now().UTC()
	for _, line := range b.Lines {
		qty := types.NewQuantityFromDecimal(line.RequiredPerUnit().Mul(order.QtyPlanned.Decimal()))
		// The order has not committed to a source warehouse yet, so the hold
		// stays unscoped and reduces availability in every warehouse view.
		res := &reservation.Reservation{
			ID:                id.New(),
			ProductionOrderID: order.ID,
			ItemID:            line.RawItemID,
			QuantityReserved:  qty,
			Status:            reservation.StatusReserved,
			CreatedAt:         now,
		}
		if err := s.resRepo.Create(ctx, res); err != nil {
			return fmt.Errorf("reserve material %s: %w", line.RawItemID, err)
		}
	}

	return nil
}
