package payement

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/utils"
)

// AdminListOrders GET /api/admin/orders?status=&searchQuery=
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, limit := handlers.Pagination(c, 10)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	orders, total, err := h.Orders.List(ctx, c.Query("status"), c.Query("searchQuery"), page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "orders", orders, page, limit, total)
}

// AdminGetOrder GET /api/admin/orders/:orderId
func (h *Handler) AdminGetOrder(c *gin.Context) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.Orders.Get(ctx, c.Param("orderId"))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// UpdateOrderStatus POST /api/admin/orders/:orderId/status
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "Statut requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.Orders.UpdateStatus(ctx, c.Param("orderId"), req.Status)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.Audit.LogAction(c, utils.ACTION_ORDER_STATUS, utils.RESOURCE_ORDER, o.OrderID, gin.H{"status": req.Status})
	c.JSON(http.StatusOK, o)
}

// DecideReturn POST /api/admin/orders/:orderId/items/:productId/return
func (h *Handler) DecideReturn(c *gin.Context) {
	productID, ok := handlers.ObjectIDParam(c, "productId")
	if !ok {
		return
	}
	var req struct {
		Decision string `json:"decision" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "Décision requise (accepted ou rejected)", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	o, err := h.Orders.DecideReturn(ctx, c.Param("orderId"), productID, req.Decision)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.Audit.LogAction(c, utils.ACTION_ORDER_RETURN, utils.RESOURCE_ORDER, o.OrderID,
		gin.H{"product": productID.Hex(), "decision": req.Decision})
	c.JSON(http.StatusOK, o)
}
