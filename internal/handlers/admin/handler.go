package admin

import (
	"stc_back_end/internal/service"
	"stc_back_end/internal/utils"
)

// Handler regroupe la gestion des clients et le journal d'audit
type Handler struct {
	Customers *service.CustomerService
	Audit     *utils.AuditLogger
	Feed      *OrderFeed
}
