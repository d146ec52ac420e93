package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/handlers"
)

// GetCart GET /api/cart : recharge les produits et recalcule les totaux
func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	cart, err := h.Cart.Refresh(ctx, userID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddToCart POST /api/cart/items
func (h *Handler) AddToCart(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var input struct {
		ProductID string `json:"productId" binding:"required"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Produit requis", err)
		return
	}
	productID, err := primitive.ObjectIDFromHex(input.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant produit invalide"})
		return
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	cart, err := h.Cart.AddItem(ctx, userID, productID, input.Quantity)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// UpdateCartItem PUT /api/cart/items/:productId
func (h *Handler) UpdateCartItem(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	productID, ok := handlers.ObjectIDParam(c, "productId")
	if !ok {
		return
	}
	var input struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Quantité requise", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	cart, err := h.Cart.UpdateQuantity(ctx, userID, productID, input.Quantity)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// RemoveFromCart DELETE /api/cart/items/:productId
func (h *Handler) RemoveFromCart(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	productID, ok := handlers.ObjectIDParam(c, "productId")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	cart, err := h.Cart.RemoveItem(ctx, userID, productID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ClearCart DELETE /api/cart
func (h *Handler) ClearCart(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Cart.Clear(ctx, userID); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé"})
}
