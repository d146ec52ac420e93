package service

import (
	"time"

	"stc_back_end/internal/models"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderCancelled = "order.cancelled"
	EventOrderPaid      = "order.paid"
	EventOrderStatus    = "order.status"
	EventReturnRequest  = "order.return_requested"
)

// EventPublisher diffuse les événements de commande (flux admin temps réel)
type EventPublisher interface {
	Publish(evt models.OrderEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.OrderEvent) {}

func orderEvent(kind string, o *models.Order, now time.Time) models.OrderEvent {
	return models.OrderEvent{
		Type:          kind,
		OrderID:       o.OrderID,
		UserID:        o.User.Hex(),
		Amount:        o.PayableAmount + o.ShippingFee,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		At:            now,
	}
}
