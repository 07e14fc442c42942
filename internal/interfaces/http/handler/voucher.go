package handler

import (
	"context"

	voucherapp "github.com/cellar/backend/internal/application/voucher"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VoucherHandler handles voucher lifecycle endpoints
type VoucherHandler struct {
	BaseHandler
	lifecycleService *voucherapp.LifecycleService
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(lifecycleService *voucherapp.LifecycleService) *VoucherHandler {
	return &VoucherHandler{
		lifecycleService: lifecycleService,
	}
}

// GetByID godoc
// @ID           getVoucherById
// @Summary      Get voucher by ID
// @Tags         vouchers
// @Produce      json
// @Param        id path string true "Voucher ID" format(uuid)
// @Success      200 {object} APIResponse[voucherapp.VoucherResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /vouchers/{id} [get]
func (h *VoucherHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid voucher ID format")
		return
	}

	result, err := h.lifecycleService.GetVoucher(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Lock godoc
// @ID           lockVoucher
// @Summary      Lock a voucher for fulfilment
// @Description  Move the voucher to locked while a shipment is prepared
// @Tags         vouchers
// @Produce      json
// @Param        id path string true "Voucher ID" format(uuid)
// @Success      200 {object} APIResponse[voucherapp.VoucherResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /vouchers/{id}/lock [post]
func (h *VoucherHandler) Lock(c *gin.Context) {
	h.applyLifecycle(c, h.lifecycleService.Lock)
}

// Redeem godoc
// @ID           redeemVoucher
// @Summary      Redeem a voucher
// @Description  Terminal transition: the bottle has shipped
// @Tags         vouchers
// @Produce      json
// @Param        id path string true "Voucher ID" format(uuid)
// @Success      200 {object} APIResponse[voucherapp.VoucherResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /vouchers/{id}/redeem [post]
func (h *VoucherHandler) Redeem(c *gin.Context) {
	h.applyLifecycle(c, h.lifecycleService.Redeem)
}

// Suspend godoc
// @ID           suspendVoucher
// @Summary      Suspend a voucher
// @Description  Freeze all voucher operations pending investigation
// @Tags         vouchers
// @Produce      json
// @Param        id path string true "Voucher ID" format(uuid)
// @Success      200 {object} APIResponse[voucherapp.VoucherResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /vouchers/{id}/suspend [post]
func (h *VoucherHandler) Suspend(c *gin.Context) {
	h.applyLifecycle(c, h.lifecycleService.Suspend)
}

// Unsuspend godoc
// @ID           unsuspendVoucher
// @Summary      Lift a voucher suspension
// @Tags         vouchers
// @Produce      json
// @Param        id path string true "Voucher ID" format(uuid)
// @Success      200 {object} APIResponse[voucherapp.VoucherResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /vouchers/{id}/unsuspend [post]
func (h *VoucherHandler) Unsuspend(c *gin.Context) {
	h.applyLifecycle(c, h.lifecycleService.Unsuspend)
}

// applyLifecycle runs one lifecycle operation against the voucher in the
// path parameter.
func (h *VoucherHandler) applyLifecycle(
	c *gin.Context,
	op func(ctx context.Context, voucherID uuid.UUID, actorID *uuid.UUID) (*voucherapp.VoucherResponse, error),
) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid voucher ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "Invalid X-Actor-ID header")
		return
	}

	result, err := op(c.Request.Context(), id, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
