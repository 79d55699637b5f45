package handlers

import (
	"github.com/gin-gonic/gin"

	"prodplan/internal/core/apperror"
	"prodplan/internal/core/types"
	"prodplan/internal/domain/bom"
	"prodplan/internal/infrastructure/http/v1/dto"
)

// BOMHandler handles HTTP requests for bills of materials.
type BOMHandler struct {
	*BaseHandler
	service *bom.Service
}

// NewBOMHandler creates a new BOM handler.
func NewBOMHandler(base *BaseHandler, service *bom.Service) *BOMHandler {
	return &BOMHandler{BaseHandler: base, service: service}
}

// GetUnitCost handles GET /boms/:bomId/cost
func (h *BOMHandler) GetUnitCost(c *gin.Context) {
	bomID, ok := h.ParseIDParam(c, "bomId")
	if !ok {
		return
	}

	cost, err := h.service.GetUnitCost(c.Request.Context(), bomID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.UnitCostResponse{BOMID: bomID.String(), UnitCost: cost})
}

// GetRequirements handles GET /boms/:bomId/requirements
func (h *BOMHandler) GetRequirements(c *gin.Context) {
	bomID, ok := h.ParseIDParam(c, "bomId")
	if !ok {
		return
	}

	raw := c.Query("quantity")
	if raw == "" {
		h.Error(c, apperror.NewValidation("quantity is required"))
		return
	}
	var targetQty types.Quantity
	if err := targetQty.UnmarshalJSON([]byte(raw)); err != nil {
		h.Error(c, apperror.NewValidation("invalid quantity format"))
		return
	}

	warehouseID, ok := h.ParseOptionalIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	result, err := h.service.ComputeRequirements(c.Request.Context(), bomID, targetQty, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// Create handles POST /boms
func (h *BOMHandler) Create(c *gin.Context) {
	var req dto.SaveBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := req.ToBOM()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("error", err.Error()))
		return
	}

	if err := h.service.Create(c.Request.Context(), b); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, b.ID)
}

// Update handles PUT /boms/:bomId
func (h *BOMHandler) Update(c *gin.Context) {
	bomID, ok := h.ParseIDParam(c, "bomId")
	if !ok {
		return
	}

	var req dto.SaveBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := req.ToBOM()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("error", err.Error()))
		return
	}
	b.ID = bomID

	if err := h.service.Update(c.Request.Context(), b); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewIDResponse(b.ID))
}
