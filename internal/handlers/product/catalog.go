package product

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/models"
)

const defaultPageSize = 12

// GetProduct GET /api/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	p, err := h.Catalog.Product(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetQuantity GET /api/products/:id/quantity
func (h *Handler) GetQuantity(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	qty, err := h.Catalog.Quantity(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quantity": qty})
}

// ListProducts GET /api/products
func (h *Handler) ListProducts(c *gin.Context) {
	page, limit := handlers.Pagination(c, defaultPageSize)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	products, total, err := h.Catalog.List(ctx, page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "products", products, page, limit, total)
}

// ByCategory GET /api/products/category/:categoryId
func (h *Handler) ByCategory(c *gin.Context) {
	categoryID, ok := handlers.ObjectIDParam(c, "categoryId")
	if !ok {
		return
	}
	page, limit := handlers.Pagination(c, defaultPageSize)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	products, total, err := h.Catalog.ByCategory(ctx, categoryID, page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "products", products, page, limit, total)
}

// Categories GET /api/categories
func (h *Handler) Categories(c *gin.Context) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	categories, err := h.Catalog.Categories(ctx)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// FilterOptions GET /api/products/filters
func (h *Handler) FilterOptions(c *gin.Context) {
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	opts, err := h.Catalog.FilterOptions(ctx)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// queryList accepte ?brand=a,b comme ?brand=a&brand=b
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func queryFloat(c *gin.Context, key string) (float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	return v, err == nil
}

// ParseFilter lit les critères boutique de la query string
func ParseFilter(c *gin.Context) (models.ProductFilter, bool) {
	page, limit := handlers.Pagination(c, defaultPageSize)
	f := models.ProductFilter{
		Brands:          queryList(c, "brand"),
		ProcessorBrands: queryList(c, "processor"),
		Generations:     queryList(c, "generation"),
		RAMSizes:        queryList(c, "ram"),
		Storage:         queryList(c, "storage"),
		Graphics:        queryList(c, "graphics"),
		DisplaySizes:    queryList(c, "display"),
		OS:              queryList(c, "os"),
		Colors:          queryList(c, "color"),
		Sort:            c.Query("sort"),
		Page:            page,
		Limit:           limit,
	}
	var ok bool
	if f.MinPrice, ok = queryFloat(c, "minPrice"); !ok {
		return f, false
	}
	if f.MaxPrice, ok = queryFloat(c, "maxPrice"); !ok {
		return f, false
	}
	if raw := c.Query("category"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return f, false
		}
		f.CategoryID = &id
	}
	return f, true
}

// FilterProducts GET /api/products/filter
func (h *Handler) FilterProducts(c *gin.Context) {
	f, ok := ParseFilter(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètres de filtre invalides"})
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	products, total, err := h.Catalog.Filter(ctx, f)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "products", products, f.Page, f.Limit, total)
}

// Search GET /api/products/search?q=
func (h *Handler) Search(c *gin.Context) {
	page, limit := handlers.Pagination(c, defaultPageSize)

	var userID *primitive.ObjectID
	if id, err := primitive.ObjectIDFromHex(c.GetString("user_id")); err == nil {
		userID = &id
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	products, total, err := h.Catalog.Search(ctx, userID, c.Query("q"), page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	handlers.Paginated(c, "products", products, page, limit, total)
}
