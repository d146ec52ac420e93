package payement

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/service"
	"stc_back_end/internal/utils"
)

// Checkout POST /api/checkout : les montants sont recalculés à partir du panier stocké
func (h *Handler) Checkout(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var req struct {
		AddressID     string `json:"addressId" binding:"required"`
		PaymentMethod string `json:"paymentMethod" binding:"required"`
		CouponCode    string `json:"couponCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "Adresse et mode de paiement requis", err)
		return
	}
	addressID, err := primitive.ObjectIDFromHex(req.AddressID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant d'adresse invalide"})
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	res, err := h.CheckoutSvc.PlaceOrder(ctx, userID, service.CheckoutInput{
		AddressID:     addressID,
		PaymentMethod: req.PaymentMethod,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		handlers.Fail(c, err)
		return
	}

	h.Audit.LogAction(c, utils.ACTION_ORDER_CREATE, utils.RESOURCE_ORDER, res.Order.OrderID, gin.H{
		"amount":        res.Order.PayableAmount + res.Order.ShippingFee,
		"paymentMethod": res.Order.PaymentMethod,
	})
	log.Printf("🛒 Commande %s créée (%s)", res.Order.OrderID, res.Order.PaymentMethod)
	c.JSON(http.StatusCreated, res)
}
