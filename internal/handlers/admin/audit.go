package admin

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/models"
	"stc_back_end/internal/utils"
)

// GetAuditLogs GET /api/admin/audit?limit=&action=&resource=
func (h *Handler) GetAuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit > 500 {
		limit = 500
	}
	action := c.Query("action")
	resource := c.Query("resource")

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	logs, err := h.Audit.Recent(ctx, limit)
	if err != nil {
		if errors.Is(err, utils.ErrAuditDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Journal d'audit désactivé"})
			return
		}
		log.Printf("❌ Lecture des logs d'audit: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture des logs"})
		return
	}

	// filtrage côté application : la partition est le jour, pas l'action
	filtered := logs[:0]
	for _, entry := range logs {
		if action != "" && entry.Action != action {
			continue
		}
		if resource != "" && entry.Resource != resource {
			continue
		}
		filtered = append(filtered, entry)
	}
	if filtered == nil {
		filtered = []models.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": filtered, "count": len(filtered)})
}
