package handler

import (
	voucherapp "github.com/cellar/backend/internal/application/voucher"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TradingHandler handles the trading platform completion callback.
// The route is mounted behind signature verification middleware; by the time
// a request reaches this handler it is authenticated.
type TradingHandler struct {
	BaseHandler
	tradingService *voucherapp.TradingService
}

// NewTradingHandler creates a new TradingHandler
func NewTradingHandler(tradingService *voucherapp.TradingService) *TradingHandler {
	return &TradingHandler{
		tradingService: tradingService,
	}
}

// TradingCompleteRequest represents the trading platform settlement callback
// @Description Request body for completing an off-platform trade
type TradingCompleteRequest struct {
	NewCustomerID    string `json:"new_customer_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	TradingReference string `json:"trading_reference" binding:"required,max=255" example:"TRD-2024-0042"`
}

// Complete godoc
// @ID           completeTrading
// @Summary      Complete an off-platform trade
// @Description  Reassign voucher ownership after the trading platform settles a sale
// @Tags         trading
// @Accept       json
// @Produce      json
// @Param        X-Signature header string true "Hex HMAC-SHA256 over timestamp.body"
// @Param        X-Timestamp header string true "Unix seconds"
// @Param        id path string true "Voucher ID" format(uuid)
// @Param        request body TradingCompleteRequest true "Settlement details"
// @Success      200 {object} APIResponse[voucherapp.TradingResult]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /vouchers/{id}/trading-complete [post]
func (h *TradingHandler) Complete(c *gin.Context) {
	voucherID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid voucher ID format")
		return
	}

	var req TradingCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	newCustomerID, err := uuid.Parse(req.NewCustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	result, err := h.tradingService.CompleteTrading(c.Request.Context(), voucherapp.CompleteTradingRequest{
		VoucherID:        voucherID,
		NewCustomerID:    newCustomerID,
		TradingReference: req.TradingReference,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
