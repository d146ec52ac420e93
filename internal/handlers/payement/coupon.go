package payement

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/service"
	"stc_back_end/internal/utils"
)

// SuitableCoupons GET /api/coupons/suitable?amount=
func (h *Handler) SuitableCoupons(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Montant invalide"})
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	coupons, err := h.Coupons.Suitable(ctx, userID, amount)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}

// ApplyCoupon POST /api/coupons/apply
func (h *Handler) ApplyCoupon(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var req struct {
		CouponCode string  `json:"couponCode" binding:"required"`
		Amount     float64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "Code coupon et montant requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	res, err := h.Coupons.Apply(ctx, userID, req.CouponCode, req.Amount)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListCoupons GET /api/admin/coupons
func (h *Handler) ListCoupons(c *gin.Context) {
	page, limit := handlers.Pagination(c, 10)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	coupons, total, err := h.Coupons.List(ctx, page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "coupons", coupons, page, limit, total)
}

// CreateCoupon POST /api/admin/coupons
func (h *Handler) CreateCoupon(c *gin.Context) {
	var input service.CouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Champs coupon manquants", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	coupon, err := h.Coupons.Create(ctx, input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.Audit.LogAction(c, utils.ACTION_COUPON_CREATE, utils.RESOURCE_COUPON, coupon.ID.Hex(), gin.H{"code": coupon.CouponCode})
	c.JSON(http.StatusCreated, coupon)
}

// UpdateCoupon PUT /api/admin/coupons/:couponId
func (h *Handler) UpdateCoupon(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "couponId")
	if !ok {
		return
	}
	var input service.CouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Champs coupon manquants", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	coupon, err := h.Coupons.Update(ctx, id, input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

// DeleteCoupon DELETE /api/admin/coupons/:couponId
func (h *Handler) DeleteCoupon(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "couponId")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Coupons.Delete(ctx, id); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon supprimé"})
}
