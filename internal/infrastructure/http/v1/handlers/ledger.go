package handlers

import (
	"github.com/gin-gonic/gin"

	"prodplan/internal/domain/ledger"
	"prodplan/internal/infrastructure/http/v1/dto"
)

// LedgerHandler handles HTTP requests for the item movement ledger.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// GetItemLedger handles GET /items/:itemId/ledger
func (h *LedgerHandler) GetItemLedger(c *gin.Context) {
	itemID, ok := h.ParseIDParam(c, "itemId")
	if !ok {
		return
	}

	warehouseID, ok := h.ParseOptionalIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	rows, err := h.service.GetItemLedger(c.Request.Context(), itemID, warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: rows, Count: len(rows)})
}
