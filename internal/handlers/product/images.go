package product

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/services"
)

const signedURLTTL = 15 * time.Minute

// =========================
// 🟢 UPLOAD IMAGE PRODUIT
// =========================

// UploadImage POST /api/admin/products/:id/images (multipart, champ "file")
func (h *Handler) UploadImage(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
		return
	}
	defer file.Close()

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	url, err := h.Admin.AddImage(ctx, id, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		imageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "✅ Image uploadée avec succès", "image_url": url})
}

// =========================
// 🔴 SUPPRIMER IMAGE PRODUIT
// =========================

// DeleteImage DELETE /api/admin/products/:id/images
func (h *Handler) DeleteImage(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		ImageURL string `json:"image_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, "URL d'image requise", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Admin.RemoveImage(ctx, id, req.ImageURL); err != nil {
		imageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image supprimée"})
}

// SignedImages GET /api/products/:id/images/signed : URLs de lecture temporaires
func (h *Handler) SignedImages(c *gin.Context) {
	id, ok := handlers.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	if !h.Images.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stockage d'images indisponible"})
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	p, err := h.Catalog.Product(ctx, id)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	urls := make([]string, 0, len(p.ProductImage))
	for _, img := range p.ProductImage {
		signed, err := h.Images.SignedURL(ctx, img, signedURLTTL)
		if err != nil {
			// image externe au bucket : l'URL publique reste utilisable
			urls = append(urls, img)
			continue
		}
		urls = append(urls, signed)
	}
	c.JSON(http.StatusOK, gin.H{"images": urls, "expiresIn": int(signedURLTTL.Seconds())})
}

func imageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnsupportedImage), errors.Is(err, services.ErrImageTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Stockage d'images indisponible"})
	default:
		handlers.Fail(c, err)
	}
}
