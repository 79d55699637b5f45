// Package capacity aggregates planned work-center minutes from scheduled
// production steps and flags bottleneck and overload days. Pure read side,
// no persistence of its own.
package capacity

import (
	"time"

	"prodplan/internal/core/id"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/production"
)

// WorkCenterStatus of a work center.
type WorkCenterStatus string

const (
	WorkCenterActive      WorkCenterStatus = "active"
	WorkCenterMaintenance WorkCenterStatus = "maintenance"
	WorkCenterInactive    WorkCenterStatus = "inactive"
)

// WorkCenter is a machine or station with an hourly throughput capacity.
type WorkCenter struct {
	ID              id.ID            `db:"id" json:"id"`
	Code            string           `db:"code" json:"code"`
	Name            string           `db:"name" json:"name"`
	CapacityPerHour float64          `db:"capacity_per_hour" json:"capacityPerHour"`
	CostPerHour     types.Money      `db:"cost_per_hour" json:"costPerHour"`
	Status          WorkCenterStatus `db:"status" json:"status"`
}

// ScheduledStep is a production step joined with the order fields needed to
// place it on the calendar and size its load.
type ScheduledStep struct {
	StepID            id.ID                  `db:"step_id" json:"stepId"`
	OrderID           id.ID                  `db:"order_id" json:"orderId"`
	OrderNumber       string                 `db:"order_number" json:"orderNumber"`
	WorkCenterID      id.ID                  `db:"work_center_id" json:"workCenterId"`
	Sequence          int                    `db:"sequence" json:"sequence"`
	SetupMinutes      float64                `db:"setup_minutes" json:"setupMinutes"`
	RunMinutesPerUnit float64                `db:"run_minutes_per_unit" json:"runMinutesPerUnit"`
	PlannedStart      *time.Time             `db:"planned_start" json:"plannedStart,omitempty"`
	OrderQty          types.Quantity         `db:"order_qty" json:"orderQty"`
	OrderStatus       production.OrderStatus `db:"order_status" json:"orderStatus"`
	StepStatus        production.StepStatus  `db:"step_status" json:"stepStatus"`

	OrderScheduledStart *time.Time `db:"order_scheduled_start" json:"-"`
	OrderCreatedAt      time.Time  `db:"order_created_at" json:"-"`
}

// PlannedMinutes is the step's load contribution: setup plus run time for
// the order's full planned quantity.
func (s *ScheduledStep) PlannedMinutes() float64 {
	return s.SetupMinutes + s.RunMinutesPerUnit*s.OrderQty.Float64()
}

// ScheduledDate resolves the step's calendar day: explicit planned start,
// else the order's scheduled start, else the order's creation date.
func (s *ScheduledStep) ScheduledDate() time.Time {
	switch {
	case s.PlannedStart != nil:
		return dateOnly(*s.PlannedStart)
	case s.OrderScheduledStart != nil:
		return dateOnly(*s.OrderScheduledStart)
	default:
		return dateOnly(s.OrderCreatedAt)
	}
}

// CountsTowardLoad reports whether the step still consumes capacity:
// finished or abandoned work does not.
func (s *ScheduledStep) CountsTowardLoad() bool {
	if s.OrderStatus.IsTerminal() {
		return false
	}
	return s.StepStatus != production.StepCompleted && s.StepStatus != production.StepSkipped
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayLoad is the planned load of one work center on one calendar day.
type DayLoad struct {
	WorkCenterID    id.ID     `json:"workCenterId"`
	WorkCenterCode  string    `json:"workCenterCode"`
	WorkCenterName  string    `json:"workCenterName"`
	Date            time.Time `json:"date"`
	PlannedMinutes  float64   `json:"plannedMinutes"`
	CapacityMinutes float64   `json:"capacityMinutes"`
	LoadPercent     int       `json:"loadPercent"`
	IsBottleneck    bool      `json:"isBottleneck"`
	IsOverloaded    bool      `json:"isOverloaded"`
}

// Summary aggregates a work center's load over a whole date range.
type Summary struct {
	WorkCenterID    id.ID     `json:"workCenterId"`
	WorkCenterCode  string    `json:"workCenterCode"`
	WorkCenterName  string    `json:"workCenterName"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	PlannedMinutes  float64   `json:"plannedMinutes"`
	CapacityMinutes float64   `json:"capacityMinutes"`
	LoadPercent     int       `json:"loadPercent"`
	IsBottleneck    bool      `json:"isBottleneck"`
	IsOverloaded    bool      `json:"isOverloaded"`
}

// DaySchedule groups the raw step rows of one calendar day, for schedule
// display alongside the derived load figures.
type DaySchedule struct {
	Date  time.Time       `json:"date"`
	Steps []ScheduledStep `json:"steps"`
}
