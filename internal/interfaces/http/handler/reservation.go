package handler

import (
	allocationapp "github.com/cellar/backend/internal/application/allocation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReservationHandler handles temporary reservation endpoints
type ReservationHandler struct {
	BaseHandler
	ledgerService *allocationapp.LedgerService
}

// NewReservationHandler creates a new ReservationHandler
func NewReservationHandler(ledgerService *allocationapp.LedgerService) *ReservationHandler {
	return &ReservationHandler{
		ledgerService: ledgerService,
	}
}

// CreateReservationRequest represents a request to hold allocation capacity
// @Description Request body for placing a temporary reservation
type CreateReservationRequest struct {
	AllocationID  string `json:"allocation_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	CustomerID    string `json:"customer_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	Quantity      int64  `json:"quantity" binding:"required,gt=0" example:"6"`
	SaleReference string `json:"sale_reference" binding:"required,max=100" example:"SALE-2024-1001"`
}

// Create godoc
// @ID           createReservation
// @Summary      Reserve allocation capacity
// @Description  Place a short-lived hold on allocation capacity for a checkout
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        request body CreateReservationRequest true "Reservation details"
// @Success      201 {object} APIResponse[allocationapp.ReservationResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid X-Actor-ID header")
		return
	}

	result, err := h.ledgerService.Reserve(c.Request.Context(), allocationapp.ReserveRequest{
		AllocationID:  uuid.MustParse(req.AllocationID),
		CustomerID:    uuid.MustParse(req.CustomerID),
		Quantity:      req.Quantity,
		SaleReference: req.SaleReference,
		ActorID:       actorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID godoc
// @ID           getReservationById
// @Summary      Get reservation by ID
// @Tags         reservations
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      200 {object} APIResponse[allocationapp.ReservationResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	result, err := h.ledgerService.GetReservation(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Confirm godoc
// @ID           confirmReservation
// @Summary      Confirm a reservation
// @Description  Convert an active hold into sold quantity and mint vouchers
// @Tags         reservations
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      200 {object} APIResponse[allocationapp.ConfirmResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /reservations/{id}/confirm [post]
func (h *ReservationHandler) Confirm(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid X-Actor-ID header")
		return
	}

	result, err := h.ledgerService.Confirm(c.Request.Context(), id, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Release godoc
// @ID           releaseReservation
// @Summary      Release a reservation
// @Description  Return a held quantity to the allocation pool
// @Tags         reservations
// @Produce      json
// @Param        id path string true "Reservation ID" format(uuid)
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /reservations/{id}/release [post]
func (h *ReservationHandler) Release(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid reservation ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid X-Actor-ID header")
		return
	}

	if err := h.ledgerService.Release(c.Request.Context(), id, actorID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
