package invoice

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/service"
)

type Handler struct {
	Invoices *service.InvoiceService
}

// Download GET /api/orders/:orderId/invoice
func (h *Handler) Download(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	orderID := c.Param("orderId")

	// chromedp peut dépasser RequestTimeout au premier lancement du navigateur
	pdf, err := h.Invoices.Invoice(c.Request.Context(), userID, orderID)
	if err != nil {
		log.Printf("❌ Facture %s: %v", orderID, err)
		handlers.Fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, orderID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Send POST /api/orders/:orderId/invoice/send
func (h *Handler) Send(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	if err := h.Invoices.Send(c.Request.Context(), userID, c.Param("orderId")); err != nil {
		log.Println("❌ erreur envoi facture:", err)
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "facture envoyée"})
}
