package capacity

import (
	"context"
	"time"

	"prodplan/internal/core/id"
)

// Repository defines the work-center and schedule queries behind the load
// aggregation.
type Repository interface {
	// ListActiveWorkCenters returns active work centers ordered by code,
	// optionally narrowed to a single one.
	ListActiveWorkCenters(ctx context.Context, workCenterID *id.ID) ([]*WorkCenter, error)

	// ScheduledSteps returns step rows joined with their order, for steps
	// whose resolved date falls inside [from, to], optionally narrowed to
	// one work center. Terminal orders are excluded at the query level.
	ScheduledSteps(ctx context.Context, from, to time.Time, workCenterID *id.ID) ([]ScheduledStep, error)
}
