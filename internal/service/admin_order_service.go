package service

import (
	"context"
	"log"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/utils"
)

const (
	ReturnDecisionAccepted = "accepted"
	ReturnDecisionRejected = "rejected"
)

func (s *OrderService) List(ctx context.Context, status, search string, page, limit int) ([]models.Order, int64, error) {
	if status != "" && !models.IsValidOrderStatus(status) {
		return nil, 0, invalid("statut inconnu: %q", status)
	}
	return s.orders.List(ctx, status, search, page, limit)
}

func (s *OrderService) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.orders.GetByOrderID(ctx, orderID)
}

// UpdateStatus applique le statut choisi par l'administrateur aux lignes non annulées
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, invalid("statut inconnu: %q", status)
	}
	o, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OrderStatus == models.OrderCancelled {
		return nil, invalidAs(ErrOrderCancelled, "une commande annulée ne peut plus changer de statut")
	}
	if o.OrderStatus == models.OrderDelivered {
		if status != models.OrderDelivered {
			return nil, invalidAs(ErrOrderDelivered, "une commande livrée ne peut plus changer de statut")
		}
		// déjà livrée : les lignes retournées et leurs remboursements restent en l'état
		return o, nil
	}

	now := s.now()
	refundable := o.RefundableToWallet()
	restock := []stockLine{}
	for i := range o.OrderItems {
		it := &o.OrderItems[i]
		if it.OrderStatus == models.OrderCancelled || it.OrderStatus == models.OrderReturned ||
			it.OrderStatus == models.OrderReturnRejected {
			continue
		}
		if status == models.OrderCancelled {
			restock = append(restock, stockLine{it.Product, it.Quantity})
		}
		it.OrderStatus = status
		if status == models.OrderDelivered {
			delivered := now
			it.DeliveredOn = &delivered
			if o.PaymentMethod == models.MethodCOD {
				it.PaymentStatus = models.PaymentCompleted
			}
		}
		if status == models.OrderCancelled && refundable {
			it.PaymentStatus = models.PaymentRefunded
		}
	}

	refund := 0.0
	switch {
	case status == models.OrderDelivered && o.PaymentMethod == models.MethodCOD:
		o.PaymentStatus = models.PaymentCompleted
	case status == models.OrderCancelled && refundable:
		refund = o.PayableAmount + o.ShippingFee
		o.PaymentStatus = models.PaymentRefunded
		o.PayableAmount = 0
	case status == models.OrderCancelled:
		o.PaymentStatus = models.PaymentCancelled
		o.PayableAmount = 0
	}
	o.OrderStatus = status

	err = s.commit(ctx, o, settlement{
		restock:     restock,
		refund:      refund,
		description: "Amount retrieved from cancelled order " + o.OrderID,
	})
	if err != nil {
		return nil, err
	}
	s.notifyStatus(o, status)
	s.publisher.Publish(orderEvent(EventOrderStatus, o, now))
	log.Printf("📦 Commande %s → %s", o.OrderID, status)
	return o, nil
}

// notifyStatus prévient le client par email, sans bloquer la requête
func (s *OrderService) notifyStatus(o *models.Order, status string) {
	snapshot := *o
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		to := snapshot.ShippingAddress.Email
		if u, err := s.users.GetByID(ctx, snapshot.User); err == nil && u.Email != "" {
			to = u.Email
		}
		if to == "" {
			return
		}
		subject, html, err := utils.OrderStatusEmail(&snapshot, status)
		if err != nil {
			log.Printf("❌ Template email statut: %v", err)
			return
		}
		if err := s.mailer.Send(ctx, to, subject, html); err != nil {
			log.Printf("❌ Email statut %s non envoyé à %s: %v", snapshot.OrderID, to, err)
		}
	}()
}

// DecideReturn accepte ou refuse une demande de retour en attente
func (s *OrderService) DecideReturn(ctx context.Context, orderID string, productID primitive.ObjectID, decision string) (*models.Order, error) {
	if decision != ReturnDecisionAccepted && decision != ReturnDecisionRejected {
		return nil, invalid("décision attendue : accepted ou rejected")
	}
	o, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	idx := o.FindItem(productID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	item := &o.OrderItems[idx]
	if item.ReturnRequest == nil || item.ReturnRequest.RequestStatus != models.ReturnPending {
		return nil, invalid("aucune demande de retour en attente pour ce produit")
	}

	st := settlement{description: "Refund for returned product " + item.ProductName + " of order " + o.OrderID}
	if decision == ReturnDecisionRejected {
		item.ReturnRequest.RequestStatus = models.ReturnRejected
		item.OrderStatus = models.OrderReturnRejected
	} else {
		item.ReturnRequest.RequestStatus = models.ReturnApproved
		item.OrderStatus = models.OrderReturned
		if item.PaymentStatus == models.PaymentCompleted || o.PaymentStatus == models.PaymentCompleted {
			amount := item.TotalPrice
			if o.CouponDiscount > 0 {
				amount -= math.Round(o.CouponDiscount / float64(len(o.OrderItems)))
			}
			st.refund = amount + o.ShippingFee
			st.restock = []stockLine{{item.Product, item.Quantity}}
			item.PaymentStatus = models.PaymentRefunded
		}
	}

	if o.AllItems(func(it models.OrderItem) bool { return it.PaymentStatus == models.PaymentRefunded }) {
		o.PaymentStatus = models.PaymentRefunded
	}
	o.IsReturnReq = !o.AllItems(func(it models.OrderItem) bool {
		return it.ReturnRequest == nil || it.ReturnRequest.RequestStatus != models.ReturnPending
	})

	if err := s.commit(ctx, o, st); err != nil {
		return nil, err
	}
	return o, nil
}
