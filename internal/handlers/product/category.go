package product

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/service"
)

// AddCategory POST /api/admin/categories
func (h *Handler) AddCategory(c *gin.Context) {
	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Nom de catégorie requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	cat, err := h.Admin.AddCategory(ctx, input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// ListCategories GET /api/admin/categories?search=
func (h *Handler) ListCategories(c *gin.Context) {
	page, limit := handlers.Pagination(c, 10)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	categories, total, err := h.Admin.ListCategories(ctx, c.Query("search"), page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "categories", categories, page, limit, total)
}

// GetCategory GET /api/admin/categories/:id
func (h *Handler) GetCategory(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	cat, err := h.Admin.GetCategory(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// UpdateCategory PUT /api/admin/categories/:id
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	var input service.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Nom de catégorie requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	cat, err := h.Admin.UpdateCategory(ctx, id, input)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) setCategoryBlocked(c *gin.Context, blocked bool) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Admin.SetCategoryBlocked(ctx, id, blocked); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Catégorie mise à jour", "isBlocked": blocked})
}

// BlockCategory PATCH /api/admin/categories/:id/block
func (h *Handler) BlockCategory(c *gin.Context) { h.setCategoryBlocked(c, true) }

// UnblockCategory PATCH /api/admin/categories/:id/unblock
func (h *Handler) UnblockCategory(c *gin.Context) { h.setCategoryBlocked(c, false) }

type offerInput struct {
	Offer *float64 `json:"offer" binding:"required"`
}

// SetCategoryOffer PATCH /api/admin/categories/:id/offer : recalcule les prix des produits
func (h *Handler) SetCategoryOffer(c *gin.Context) {
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

	updated, err := h.Admin.SetCategoryOffer(ctx, id, *input.Offer)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Offre appliquée", "productsUpdated": updated})
}
