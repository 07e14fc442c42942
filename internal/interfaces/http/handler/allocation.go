package handler

import (
	allocationapp "github.com/cellar/backend/internal/application/allocation"
	"github.com/gin-gonic/gin"
)

// AllocationHandler handles allocation ledger read endpoints
type AllocationHandler struct {
	BaseHandler
	ledgerService *allocationapp.LedgerService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(ledgerService *allocationapp.LedgerService) *AllocationHandler {
	return &AllocationHandler{
		ledgerService: ledgerService,
	}
}

// GetByID godoc
// @ID           getAllocationById
// @Summary      Get allocation by ID
// @Description  Retrieve an allocation with its quantity ledger
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Allocation ID" format(uuid)
// @Success      200 {object} APIResponse[allocationapp.AllocationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /allocations/{id} [get]
func (h *AllocationHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	result, err := h.ledgerService.GetAllocation(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetCapacity godoc
// @ID           getAllocationCapacity
// @Summary      Get allocation capacity
// @Description  Report sold quantity, active holds and remaining capacity
// @Tags         allocations
// @Produce      json
// @Param        id path string true "Allocation ID" format(uuid)
// @Success      200 {object} APIResponse[allocationapp.CapacityResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /allocations/{id}/capacity [get]
func (h *AllocationHandler) GetCapacity(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	result, err := h.ledgerService.GetCapacity(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
