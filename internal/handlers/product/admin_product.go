package product

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/service"
)

// AddProduct POST /api/admin/products
func (h *Handler) AddProduct(c *gin.Context) {
	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Champs produit manquants", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	p, err := h.Admin.AddProduct(ctx, input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// AdminListProducts GET /api/admin/products?search=
func (h *Handler) AdminListProducts(c *gin.Context) {
	page, limit := handlers.Pagination(c, 10)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	products, total, err := h.Admin.ListProducts(ctx, c.Query("search"), page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "products", products, page, limit, total)
}

// AdminGetProduct GET /api/admin/products/:id (produits bloqués inclus)
func (h *Handler) AdminGetProduct(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	p, err := h.Admin.GetProduct(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProduct PUT /api/admin/products/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Champs produit manquants", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	p, err := h.Admin.UpdateProduct(ctx, id, input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ToggleBlock PATCH /api/admin/products/:id/block
func (h *Handler) ToggleBlock(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	blocked, err := h.Admin.ToggleBlock(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isBlocked": blocked})
}

// SetProductOffer PATCH /api/admin/products/:id/offer
func (h *Handler) SetProductOffer(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	var input offerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Offre requise", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	p, err := h.Admin.SetProductOffer(ctx, id, *input.Offer)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
