package handler

import (
	voucherapp "github.com/cellar/backend/internal/application/voucher"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler handles gift transfer endpoints
type TransferHandler struct {
	BaseHandler
	transferService *voucherapp.TransferService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transferService *voucherapp.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// InitiateTransferRequest represents a request to offer a voucher as a gift
// @Description Request body for initiating a transfer
type InitiateTransferRequest struct {
	ToCustomerID string `json:"to_customer_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
}

// Initiate godoc
// @ID           initiateTransfer
// @Summary      Offer a voucher to another customer
// @Description  Open a pending transfer with an acceptance window
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Param        id path string true "Voucher ID" format(uuid)
// @Param        request body InitiateTransferRequest true "Recipient"
// @Success      201 {object} APIResponse[voucherapp.TransferResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /vouchers/{id}/transfers [post]
func (h *TransferHandler) Initiate(c *gin.Context) {
	voucherID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid voucher ID format")
		return
	}

	var req InitiateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid X-Actor-ID header")
		return
	}

	result, err := h.transferService.Initiate(c.Request.Context(), voucherID, uuid.MustParse(req.ToCustomerID), actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID godoc
// @ID           getTransferById
// @Summary      Get transfer by ID
// @Tags         transfers
// @Produce      json
// @Param        id path string true "Transfer ID" format(uuid)
// @Success      200 {object} APIResponse[voucherapp.TransferResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /transfers/{id} [get]
func (h *TransferHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	result, err := h.transferService.GetTransfer(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Accept godoc
// @ID           acceptTransfer
// @Summary      Accept a pending transfer
// @Description  Move voucher ownership to the recipient
// @Tags         transfers
// @Produce      json
// @Param        id path string true "Transfer ID" format(uuid)
// @Success      200 {object} APIResponse[voucherapp.TransferResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /transfers/{id}/accept [post]
func (h *TransferHandler) Accept(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid X-Actor-ID header")
		return
	}

	result, err := h.transferService.Accept(c.Request.Context(), id, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel godoc
// @ID           cancelTransfer
// @Summary      Cancel a pending transfer
// @Description  Withdraw the offer before it is accepted
// @Tags         transfers
// @Produce      json
// @Param        id path string true "Transfer ID" format(uuid)
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid X-Actor-ID header")
		return
	}

	if err := h.transferService.Cancel(c.Request.Context(), id, actorID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
