package payement

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/services"
)

// maxWebhookBody borne la lecture du payload Stripe
const maxWebhookBody = 65536

type orderRef struct {
	OrderID string `json:"orderId" binding:"required"`
}

// VerifyPayment POST /api/payments/verify
func (h *Handler) VerifyPayment(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var req orderRef
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "orderId requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	res, err := h.Payments.Verify(ctx, userID, req.OrderID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RetryPayment POST /api/payments/retry
func (h *Handler) RetryPayment(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var req orderRef
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "orderId requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	res, err := h.Payments.Retry(ctx, userID, req.OrderID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// StripeWebhook POST /api/payments/webhook
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Lecture du webhook impossible"})
		return
	}

	evt, err := h.Webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("⚠️ Webhook Stripe rejeté: %v", err)
		if errors.Is(err, services.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload invalide"})
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Payments.HandleWebhook(ctx, evt); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
