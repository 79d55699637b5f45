package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/id"
	"prodplan/internal/domain/capacity"
	"prodplan/internal/infrastructure/http/v1/dto"
)

// CapacityHandler handles HTTP requests for work-center capacity planning.
type CapacityHandler struct {
	*BaseHandler
	service *capacity.Service
}

// NewCapacityHandler creates a new capacity handler.
func NewCapacityHandler(base *BaseHandler, service *capacity.Service) *CapacityHandler {
	return &CapacityHandler{BaseHandler: base, service: service}
}

func (h *CapacityHandler) rangeParams(c *gin.Context) (from, to time.Time, workCenterID *id.ID, ok bool) {
	if from, ok = h.ParseDateQuery(c, "from"); !ok {
		return
	}
	if to, ok = h.ParseDateQuery(c, "to"); !ok {
		return
	}
	if from.After(to) {
		h.Error(c, apperror.NewValidation("from must not be after to"))
		ok = false
		return
	}
	workCenterID, ok = h.ParseOptionalIDQuery(c, "workCenterId")
	return
}

// GetLoad handles GET /capacity/load
func (h *CapacityHandler) GetLoad(c *gin.Context) {
	from, to, workCenterID, ok := h.rangeParams(c)
	if !ok {
		return
	}
	hoursPerDay := h.ParseFloatQuery(c, "hoursPerDay", capacity.DefaultHoursPerDay)

	loads, err := h.service.GetCapacityLoad(c.Request.Context(), from, to, workCenterID, hoursPerDay)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: loads, Count: len(loads)})
}

// GetSummary handles GET /capacity/summary
func (h *CapacityHandler) GetSummary(c *gin.Context) {
	from, to, workCenterID, ok := h.rangeParams(c)
	if !ok {
		return
	}
	hoursPerDay := h.ParseFloatQuery(c, "hoursPerDay", capacity.DefaultHoursPerDay)

	summaries, err := h.service.GetCapacitySummary(c.Request.Context(), from, to, workCenterID, hoursPerDay)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: summaries, Count: len(summaries)})
}

// GetBottlenecks handles GET /capacity/bottlenecks
func (h *CapacityHandler) GetBottlenecks(c *gin.Context) {
	from, to, workCenterID, ok := h.rangeParams(c)
	if !ok {
		return
	}
	hoursPerDay := h.ParseFloatQuery(c, "hoursPerDay", capacity.DefaultHoursPerDay)
	threshold := h.ParseIntQuery(c, "threshold", capacity.DefaultBottleneckThreshold)

	bottlenecks, err := h.service.GetBottlenecks(c.Request.Context(), from, to, workCenterID, hoursPerDay, threshold)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: bottlenecks, Count: len(bottlenecks)})
}

// GetSchedule handles GET /capacity/schedule
func (h *CapacityHandler) GetSchedule(c *gin.Context) {
	from, to, workCenterID, ok := h.rangeParams(c)
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(c.Request.Context(), from, to, workCenterID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: schedule, Count: len(schedule)})
}
