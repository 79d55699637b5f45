package capacity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/pkg/logger"
)

const (
	// DefaultHoursPerDay is the working-day length assumed when the caller
	// does not supply one.
	DefaultHoursPerDay = 8.0

	// DefaultBottleneckThreshold is the load percent at which a day counts
	// as a bottleneck.
	DefaultBottleneckThreshold = 90
)

// Service aggregates schedule load per work center and day.
type Service struct {
	repo Repository
}

// NewService creates a new capacity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetCapacityLoad returns one row per active work center per calendar day in
// [from, to], with planned minutes, capacity minutes and the load percent.
func (s *Service) GetCapacityLoad(ctx context.Context, from, to time.Time, workCenterID *id.ID, hoursPerDay float64) ([]DayLoad, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	if hoursPerDay <= 0 {
		hoursPerDay = DefaultHoursPerDay
	}

	centers, err := s.repo.ListActiveWorkCenters(ctx, workCenterID)
	if err != nil {
		return nil, fmt.Errorf("list work centers: %w", err)
	}
	planned, err := s.plannedByCenterAndDay(ctx, from, to, workCenterID)
	if err != nil {
		return nil, err
	}

	from = dateOnly(from)
	to = dateOnly(to)

	loads := make([]DayLoad, 0, len(centers))
	for _, wc := range centers {
		capacityMinutes := wc.CapacityPerHour * hoursPerDay * 60
		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			plannedMinutes := planned[wc.ID][day]
			pct := loadPercent(plannedMinutes, capacityMinutes)
			loads = append(loads, DayLoad{
				WorkCenterID:    wc.ID,
				WorkCenterCode:  wc.Code,
				WorkCenterName:  wc.Name,
				Date:            day,
				PlannedMinutes:  plannedMinutes,
				CapacityMinutes: capacityMinutes,
				LoadPercent:     pct,
				IsBottleneck:    pct > DefaultBottleneckThreshold,
				IsOverloaded:    pct > 100,
			})
		}
	}

	logger.Debug(ctx, "capacity load computed",
		"work_centers", len(centers),
		"rows", len(loads),
	)

	return loads, nil
}

// GetCapacitySummary aggregates load over the whole range per work center.
func (s *Service) GetCapacitySummary(ctx context.Context, from, to time.Time, workCenterID *id.ID, hoursPerDay float64) ([]Summary, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	if hoursPerDay <= 0 {
		hoursPerDay = DefaultHoursPerDay
	}

	centers, err := s.repo.ListActiveWorkCenters(ctx, workCenterID)
	if err != nil {
		return nil, fmt.Errorf("list work centers: %w", err)
	}
	planned, err := s.plannedByCenterAndDay(ctx, from, to, workCenterID)
	if err != nil {
		return nil, err
	}

	from = dateOnly(from)
	to = dateOnly(to)
	days := int(to.Sub(from).Hours()/24) + 1

	summaries := make([]Summary, 0, len(centers))
	for _, wc := range centers {
		var plannedMinutes float64
		for _, minutes := range planned[wc.ID] {
			plannedMinutes += minutes
		}
		capacityMinutes := wc.CapacityPerHour * hoursPerDay * 60 * float64(days)
		pct := loadPercent(plannedMinutes, capacityMinutes)
		summaries = append(summaries, Summary{
			WorkCenterID:    wc.ID,
			WorkCenterCode:  wc.Code,
			WorkCenterName:  wc.Name,
			From:            from,
			To:              to,
			PlannedMinutes:  plannedMinutes,
			CapacityMinutes: capacityMinutes,
			LoadPercent:     pct,
			IsBottleneck:    pct > DefaultBottleneckThreshold,
			IsOverloaded:    pct > 100,
		})
	}

	return summaries, nil
}

// GetBottlenecks returns the day rows whose load meets or exceeds the
// threshold. A threshold of zero or less falls back to the default.
func (s *Service) GetBottlenecks(ctx context.Context, from, to time.Time, workCenterID *id.ID, hoursPerDay float64, threshold int) ([]DayLoad, error) {
	if threshold <= 0 {
		threshold = DefaultBottleneckThreshold
	}

	loads, err := s.GetCapacityLoad(ctx, from, to, workCenterID, hoursPerDay)
	if err != nil {
		return nil, err
	}

	bottlenecks := make([]DayLoad, 0)
	for _, load := range loads {
		if load.LoadPercent >= threshold {
			bottlenecks = append(bottlenecks, load)
		}
	}
	return bottlenecks, nil
}

// GetSchedule returns the raw step rows grouped by calendar day, oldest day
// first, each day's steps ordered by order number then sequence.
func (s *Service) GetSchedule(ctx context.Context, from, to time.Time, workCenterID *id.ID) ([]DaySchedule, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	steps, err := s.repo.ScheduledSteps(ctx, from, to, workCenterID)
	if err != nil {
		return nil, fmt.Errorf("load scheduled steps: %w", err)
	}

	byDay := make(map[time.Time][]ScheduledStep)
	for _, step := range steps {
		day := step.ScheduledDate()
		byDay[day] = append(byDay[day], step)
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	schedule := make([]DaySchedule, 0, len(days))
	for _, day := range days {
		daySteps := byDay[day]
		sort.Slice(daySteps, func(i, j int) bool {
			if daySteps[i].OrderNumber != daySteps[j].OrderNumber {
				return daySteps[i].OrderNumber < daySteps[j].OrderNumber
			}
			return daySteps[i].Sequence < daySteps[j].Sequence
		})
		schedule = append(schedule, DaySchedule{Date: day, Steps: daySteps})
	}
	return schedule, nil
}

func (s *Service) plannedByCenterAndDay(ctx context.Context, from, to time.Time, workCenterID *id.ID) (map[id.ID]map[time.Time]float64, error) {
	steps, err := s.repo.ScheduledSteps(ctx, from, to, workCenterID)
	if err != nil {
		return nil, fmt.Errorf("load scheduled steps: %w", err)
	}

	planned := make(map[id.ID]map[time.Time]float64)
	for _, step := range steps {
		if !step.CountsTowardLoad() {
			continue
		}
		day := step.ScheduledDate()
		if planned[step.WorkCenterID] == nil {
			planned[step.WorkCenterID] = make(map[time.Time]float64)
		}
		planned[step.WorkCenterID][day] += step.PlannedMinutes()
	}
	return planned, nil
}

func loadPercent(plannedMinutes, capacityMinutes float64) int {
	if capacityMinutes <= 0 {
		return 0
	}
	return int(math.Round(plannedMinutes / capacityMinutes * 100))
}

func validateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return apperror.NewInvalidInput("date range is required")
	}
	if from.After(to) {
		return apperror.NewInvalidInput("date range start must not be after its end")
	}
	return nil
}
