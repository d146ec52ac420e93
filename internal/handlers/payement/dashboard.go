package payement

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/service"
)

func bindReportQuery(c *gin.Context) (service.ReportQuery, bool) {
	var q service.ReportQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		handlers.BadRequest(c, "Période ou intervalle de dates invalide", err)
		return q, false
	}
	return q, true
}

// SalesReport POST /api/admin/sales-report
func (h *Handler) SalesReport(c *gin.Context) {
	q, ok := bindReportQuery(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	report, err := h.Reports.SalesReport(ctx, q)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Dashboard POST /api/admin/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	q, ok := bindReportQuery(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	dash, err := h.Reports.Dashboard(ctx, q)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}
