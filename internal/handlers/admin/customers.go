package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
)

// ListCustomers GET /api/admin/customers?search=
func (h *Handler) ListCustomers(c *gin.Context) {
	page, limit := handlers.Pagination(c, 10)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	users, total, err := h.Customers.List(ctx, c.Query("search"), page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "customers", users, page, limit, total)
}

func (h *Handler) setBlocked(c *gin.Context, blocked bool) {
	id, ok := handlers.ObjectIDParam(c, "userId")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Customers.SetBlocked(ctx, id, blocked); err != nil {
		handlers.Fail(c, err)
		return
	}
	msg := "Client débloqué"
	if blocked {
		msg = "Client bloqué"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "isBlocked": blocked})
}

// BlockCustomer PATCH /api/admin/customers/:userId/block
func (h *Handler) BlockCustomer(c *gin.Context) { h.setBlocked(c, true) }

// UnblockCustomer PATCH /api/admin/customers/:userId/unblock
func (h *Handler) UnblockCustomer(c *gin.Context) { h.setBlocked(c, false) }
