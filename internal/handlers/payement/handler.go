package payement

import (
	"stc_back_end/internal/service"
	"stc_back_end/internal/services"
	"stc_back_end/internal/utils"
)

// WebhookParser vérifie et décode les événements Stripe
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*services.WebhookEvent, error)
}

// Handler regroupe paiement, coupons, commandes admin et rapports
type Handler struct {
	CheckoutSvc *service.CheckoutService
	Payments    *service.PaymentService
	Coupons     *service.CouponService
	Orders      *service.OrderService
	Reports     *service.ReportService
	Webhooks    WebhookParser
	Audit       *utils.AuditLogger
}
