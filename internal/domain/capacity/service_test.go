package capacity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/production"
)

var (
	millID  = id.MustParse("018f0000-0000-7000-8000-000000000040")
	latheID = id.MustParse("018f0000-0000-7000-8000-000000000041")
)

type fakeCapacityRepo struct {
	centers []*WorkCenter
	steps   []ScheduledStep
}

func (f *fakeCapacityRepo) ListActiveWorkCenters(_ context.Context, workCenterID *id.ID) ([]*WorkCenter, error) {
	if workCenterID == nil {
		return f.centers, nil
	}
	var out []*WorkCenter
	for _, wc := range f.centers {
		if wc.ID == *workCenterID {
			out = append(out, wc)
		}
	}
	return out, nil
}

func (f *fakeCapacityRepo) ScheduledSteps(_ context.Context, _, _ time.Time, workCenterID *id.ID) ([]ScheduledStep, error) {
	if workCenterID == nil {
		return f.steps, nil
	}
	var out []ScheduledStep
	for _, step := range f.steps {
		if step.WorkCenterID == *workCenterID {
			out = append(out, step)
		}
	}
	return out, nil
}

func mill() *WorkCenter {
	return &WorkCenter{
		ID: millID, Code: "WC-MILL", Name: "Milling",
		CapacityPerHour: 10,
		CostPerHour:     types.NewMoney(45),
		Status:          WorkCenterActive,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func step(wc id.ID, planned time.Time, setup, runPerUnit float64, qty float64) ScheduledStep {
	start := planned
	return ScheduledStep{
		StepID:            id.New(),
		OrderID:           id.New(),
		OrderNumber:       "PO-100",
		WorkCenterID:      wc,
		Sequence:          10,
		SetupMinutes:      setup,
		RunMinutesPerUnit: runPerUnit,
		PlannedStart:      &start,
		OrderQty:          types.NewQuantityFromFloat64(qty),
		OrderStatus:       production.OrderReleased,
		StepStatus:        production.StepPending,
	}
}

func TestGetCapacityLoadOverloadFlags(t *testing.T) {
	monday := day(2025, 6, 2)
	repo := &fakeCapacityRepo{
		centers: []*WorkCenter{mill()},
		// 200 setup + 2 min/unit x 2400 units = 5000 planned minutes.
		steps: []ScheduledStep{step(millID, monday, 200, 2, 2400)},
	}
	svc := NewService(repo)

	loads, err := svc.GetCapacityLoad(context.Background(), monday, monday, nil, 8)
	require.NoError(t, err)
	require.Len(t, loads, 1)

	// capacityPerHour 10 x 8h x 60 = 4800; 5000/4800 rounds to 104%.
	assert.Equal(t, float64(4800), loads[0].CapacityMinutes)
	assert.Equal(t, float64(5000), loads[0].PlannedMinutes)
	assert.Equal(t, 104, loads[0].LoadPercent)
	assert.True(t, loads[0].IsOverloaded)
	assert.True(t, loads[0].IsBottleneck)
}

func TestGetCapacityLoadZeroCapacity(t *testing.T) {
	monday := day(2025, 6, 2)
	idle := mill()
	idle.CapacityPerHour = 0
	repo := &fakeCapacityRepo{
		centers: []*WorkCenter{idle},
		steps:   []ScheduledStep{step(millID, monday, 30, 1, 10)},
	}
	svc := NewService(repo)

	loads, err := svc.GetCapacityLoad(context.Background(), monday, monday, nil, 8)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, 0, loads[0].LoadPercent)
	assert.False(t, loads[0].IsBottleneck)
	assert.False(t, loads[0].IsOverloaded)
}

func TestGetCapacityLoadIgnoresFinishedWork(t *testing.T) {
	monday := day(2025, 6, 2)
	done := step(millID, monday, 100, 1, 100)
	done.StepStatus = production.StepCompleted
	cancelled := step(millID, monday, 100, 1, 100)
	cancelled.OrderStatus = production.OrderCancelled
	live := step(millID, monday, 60, 0, 0)

	repo := &fakeCapacityRepo{
		centers: []*WorkCenter{mill()},
		steps:   []ScheduledStep{done, cancelled, live},
	}
	svc := NewService(repo)

	loads, err := svc.GetCapacityLoad(context.Background(), monday, monday, nil, 8)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, float64(60), loads[0].PlannedMinutes)
}

func TestScheduledDateFallbackChain(t *testing.T) {
	explicit := day(2025, 6, 3)
	orderStart := day(2025, 6, 4)
	created := time.Date(2025, 6, 5, 14, 30, 0, 0, time.UTC)

	s := ScheduledStep{
		PlannedStart:        &explicit,
		OrderScheduledStart: &orderStart,
		OrderCreatedAt:      created,
	}
	assert.Equal(t, explicit, s.ScheduledDate())

	s.PlannedStart = nil
	assert.Equal(t, orderStart, s.ScheduledDate())

	s.OrderScheduledStart = nil
	assert.Equal(t, day(2025, 6, 5), s.ScheduledDate())
}

func TestGetCapacitySummaryAggregatesRange(t *testing.T) {
	monday := day(2025, 6, 2)
	tuesday := day(2025, 6, 3)
	repo := &fakeCapacityRepo{
		centers: []*WorkCenter{mill()},
		steps: []ScheduledStep{
			step(millID, monday, 0, 1, 2400), // 2400
			step(millID, tuesday, 0, 1, 2400),
		},
	}
	svc := NewService(repo)

	summaries, err := svc.GetCapacitySummary(context.Background(), monday, tuesday, nil, 8)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	// Two days: 9600 capacity, 4800 planned, 50%.
	assert.Equal(t, float64(9600), summaries[0].CapacityMinutes)
	assert.Equal(t, float64(4800), summaries[0].PlannedMinutes)
	assert.Equal(t, 50, summaries[0].LoadPercent)
	assert.False(t, summaries[0].IsBottleneck)
}

func TestGetBottlenecksFiltersByThreshold(t *testing.T) {
	monday := day(2025, 6, 2)
	tuesday := day(2025, 6, 3)
	repo := &fakeCapacityRepo{
		centers: []*WorkCenter{mill()},
		steps: []ScheduledStep{
			step(millID, monday, 0, 1, 4600), // 96%
			step(millID, tuesday, 0, 1, 2400), // 50%
		},
	}
	svc := NewService(repo)

	// Default threshold 90 keeps only the loaded day.
	hot, err := svc.GetBottlenecks(context.Background(), monday, tuesday, nil, 8, 0)
	require.NoError(t, err)
	require.Len(t, hot, 1)
	assert.Equal(t, monday, hot[0].Date)
	assert.Equal(t, 96, hot[0].LoadPercent)

	all, err := svc.GetBottlenecks(context.Background(), monday, tuesday, nil, 8, 50)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetScheduleGroupsByDay(t *testing.T) {
	monday := day(2025, 6, 2)
	tuesday := day(2025, 6, 3)
	first := step(millID, monday, 10, 1, 5)
	second := step(latheID, tuesday, 10, 1, 5)
	third := step(millID, monday, 10, 1, 5)
	third.Sequence = 5

	repo := &fakeCapacityRepo{steps: []ScheduledStep{second, first, third}}
	svc := NewService(repo)

	schedule, err := svc.GetSchedule(context.Background(), monday, tuesday, nil)
	require.NoError(t, err)
	require.Len(t, schedule, 2)

	assert.Equal(t, monday, schedule[0].Date)
	require.Len(t, schedule[0].Steps, 2)
	assert.Equal(t, 5, schedule[0].Steps[0].Sequence)
	assert.Equal(t, tuesday, schedule[1].Date)
}

func TestCapacityLoadRejectsInvertedRange(t *testing.T) {
	svc := NewService(&fakeCapacityRepo{})

	_, err := svc.GetCapacityLoad(context.Background(), day(2025, 6, 3), day(2025, 6, 2), nil, 8)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidInput(err))
}
