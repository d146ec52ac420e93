package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/handlers"
)

// GetWishlist GET /api/wishlist
func (h *Handler) GetWishlist(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	page, limit := handlers.Pagination(c, 10)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	w, err := h.Wishlist.List(ctx, userID, page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// AddToWishlist POST /api/wishlist
func (h *Handler) AddToWishlist(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var input struct {
		ProductID string `json:"productId" binding:"required"`
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
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Wishlist.Add(ctx, userID, productID); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Produit ajouté à la liste d'envies"})
}

// RemoveFromWishlist DELETE /api/wishlist/:productId
func (h *Handler) RemoveFromWishlist(c *gin.Context) {
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

	if err := h.Wishlist.Remove(ctx, userID, productID); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Produit retiré de la liste d'envies"})
}

// InWishlist GET /api/wishlist/:productId
func (h *Handler) InWishlist(c *gin.Context) {
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

	found, err := h.Wishlist.Contains(ctx, userID, productID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inWishlist": found})
}
