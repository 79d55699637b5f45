package handlers

import (
	"github.com/gin-gonic/gin"

	"prodplan/internal/core/apperror"
	"prodplan/internal/domain/mrp"
	"prodplan/internal/infrastructure/http/v1/dto"
)

// MRPHandler handles HTTP requests for MRP netting and suggestions.
type MRPHandler struct {
	*BaseHandler
	service *mrp.Service
}

// NewMRPHandler creates a new MRP handler.
func NewMRPHandler(base *BaseHandler, service *mrp.Service) *MRPHandler {
	return &MRPHandler{BaseHandler: base, service: service}
}

func (h *MRPHandler) calculateOptions(c *gin.Context) (mrp.CalculateOptions, bool) {
	targetDate, ok := h.ParseDateQuery(c, "targetDate")
	if !ok {
		return mrp.CalculateOptions{}, false
	}
	return mrp.CalculateOptions{
		TargetDate:             targetDate,
		IncludeOpenSalesOrders: c.Query("includeSalesOrders") != "false",
		IncludeSafetyStock:     c.Query("includeSafetyStock") != "false",
	}, true
}

// Calculate handles GET /mrp/requirements
func (h *MRPHandler) Calculate(c *gin.Context) {
	opts, ok := h.calculateOptions(c)
	if !ok {
		return
	}

	requirements, err := h.service.Calculate(c.Request.Context(), opts)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: requirements, Count: len(requirements)})
}

// GenerateSuggestions handles POST /mrp/suggestions
func (h *MRPHandler) GenerateSuggestions(c *gin.Context) {
	opts, ok := h.calculateOptions(c)
	if !ok {
		return
	}

	suggestions, err := h.service.GenerateSuggestions(c.Request.Context(), opts)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: suggestions, Count: len(suggestions)})
}

// ConvertToOrders handles POST /mrp/suggestions/convert
func (h *MRPHandler) ConvertToOrders(c *gin.Context) {
	var req dto.ConvertSuggestionsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ids, err := req.ParseIDs()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid suggestion id format"))
		return
	}

	result, err := h.service.ConvertToOrders(c.Request.Context(), ids)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}
