package ledger

import (
	"context"
	"fmt"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/pkg/logger"
)

// Service provides the item ledger view. Pure reads over a snapshot fetched
// at call time; performs no writes and no locking.
type Service struct {
	repo       Repository
	reconciler Reconciler
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetItemLedger returns the reconciled movement history for an item,
// newest-first, optionally scoped to one warehouse. An item with no history
// yields an empty slice, not an error.
func (s *Service) GetItemLedger(ctx context.Context, itemID id.ID, warehouseID *id.ID) ([]LedgerRow, error) {
	if id.IsNil(itemID) {
		return nil, apperror.NewInvalidInput("item id is required")
	}

	legacy, err := s.repo.LegacyOrderEvents(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load legacy order events: %w", err)
	}

	permits, err := s.repo.PermitEvents(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load permit events: %w", err)
	}

	canonical, err := s.repo.MovementEvents(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load movement events: %w", err)
	}

	rows := s.reconciler.Reconcile(legacy, permits, canonical, warehouseID)

	logger.Debug(ctx, "item ledger reconciled",
		"item_id", itemID,
		"rows", len(rows),
		"legacy", len(legacy),
		"permits", len(permits),
		"canonical", len(canonical),
	)

	return rows, nil
}
