package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/utils"
)

type reasonInput struct {
	Reason string `json:"reason"`
}

// ListOrders GET /api/orders
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	page, limit := handlers.Pagination(c, 10)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	orders, total, err := h.Orders.ListForUser(ctx, userID, page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "orders", orders, page, limit, total)
}

// GetOrder GET /api/orders/:orderId
func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.Orders.GetForUser(ctx, userID, c.Param("orderId"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// CancelOrder POST /api/orders/:orderId/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var input reasonInput
	_ = c.ShouldBindJSON(&input)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.Orders.Cancel(ctx, userID, c.Param("orderId"), input.Reason)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.Audit.LogAction(c, utils.ACTION_ORDER_CANCEL, utils.RESOURCE_ORDER, o.OrderID, gin.H{"reason": input.Reason})
	c.JSON(http.StatusOK, gin.H{"message": "Commande annulée", "order": o})
}

// CancelOrderItem POST /api/orders/:orderId/items/:productId/cancel
func (h *Handler) CancelOrderItem(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	productID, ok := handlers.ObjectIDParam(c, "productId")
	if !ok {
		return
	}
	var input reasonInput
	_ = c.ShouldBindJSON(&input)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.Orders.CancelItem(ctx, userID, c.Param("orderId"), productID, input.Reason)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.Audit.LogAction(c, utils.ACTION_ORDER_CANCEL, utils.RESOURCE_ORDER, o.OrderID,
		gin.H{"product": productID.Hex(), "reason": input.Reason})
	c.JSON(http.StatusOK, gin.H{"message": "Article annulé", "order": o})
}

// ReturnOrderItem POST /api/orders/:orderId/items/:productId/return
func (h *Handler) ReturnOrderItem(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	productID, ok := handlers.ObjectIDParam(c, "productId")
	if !ok {
		return
	}
	var input struct {
		Reason      string `json:"reason" binding:"required"`
		Explanation string `json:"explanation"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Motif du retour requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.Orders.RequestReturn(ctx, userID, c.Param("orderId"), productID, input.Reason, input.Explanation)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Demande de retour enregistrée", "order": o})
}
