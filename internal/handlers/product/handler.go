package product

import (
	"stc_back_end/internal/service"
	"stc_back_end/internal/services"
	"stc_back_end/internal/utils"
)

// Handler sert le catalogue boutique et son back-office
type Handler struct {
	Catalog *service.CatalogService
	Admin   *service.AdminCatalogService
	Images  *services.ImageStore
	Audit   *utils.AuditLogger
}
