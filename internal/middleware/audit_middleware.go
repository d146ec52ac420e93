package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/utils"
)

// pricingFields sont les champs dont la modification est tracée
var pricingFields = []string{"regularPrice", "offer", "quantity"}

func succeeded(c *gin.Context) bool {
	return c.Writer.Status() >= 200 && c.Writer.Status() < 300
}

// resourceID cherche l'identifiant de la ressource dans les paramètres de route
func resourceID(c *gin.Context) string {
	for _, p := range []string{"id", "orderId", "userId", "couponId"} {
		if v := c.Param(p); v != "" {
			return v
		}
	}
	return ""
}

// AuditPriceChanges trace les changements de prix, d'offre et de stock d'un produit
func AuditPriceChanges(audit *utils.AuditLogger, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Capturer le body de la requête
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		// Restaurer le body pour les handlers suivants
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		var requestData map[string]interface{}
		if err := json.Unmarshal(bodyBytes, &requestData); err != nil {
			c.Next()
			return
		}
		changes := gin.H{}
		for _, f := range pricingFields {
			if v, ok := requestData[f]; ok {
				changes[f] = v
			}
		}

		c.Next()

		if len(changes) == 0 || !succeeded(c) {
			return
		}
		audit.LogAction(c, action, utils.RESOURCE_PRODUCT, resourceID(c), changes)
		log.Printf("💰 Changement de prix audité: produit %s %v", resourceID(c), changes)
	}
}

// AuditCriticalActions trace le résultat de toute action d'administration
func AuditCriticalActions(audit *utils.AuditLogger, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := resourceID(c)

		c.Next()

		if succeeded(c) {
			audit.LogAction(c, action, resource, id, nil)
		} else {
			audit.LogFailedAction(c, action, resource, id, "Action échouée")
		}
	}
}
