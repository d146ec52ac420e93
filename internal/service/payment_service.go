package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
	"stc_back_end/internal/services"
)

// PaymentResult est la réponse de vérification / relance d'un paiement en ligne
type PaymentResult struct {
	OrderID       string `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
	IntentStatus  string `json:"intentStatus,omitempty"`
	ClientSecret  string `json:"client_secret,omitempty"`
}

type PaymentService struct {
	orders    repository.OrderRepository
	wallets   repository.WalletRepository
	tx        TxRunner
	gateway   PaymentGateway
	publisher EventPublisher
	now       func() time.Time
}

func NewPaymentService(store *repository.Store, gateway PaymentGateway, publisher EventPublisher) *PaymentService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &PaymentService{
		orders:    store.Orders,
		wallets:   store.Wallets,
		tx:        store,
		gateway:   gateway,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *PaymentService) onlineOrder(ctx context.Context, userID primitive.ObjectID, orderID string) (*models.Order, error) {
	o, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.User != userID {
		return nil, ErrNotFound
	}
	if o.PaymentMethod != models.MethodOnline {
		return nil, invalid("la commande n'est pas payée en ligne")
	}
	return o, nil
}

// markPaid passe la commande et ses lignes actives à Completed; sans effet si déjà fait.
// captured est le montant encaissé par Stripe, en paise.
func (s *PaymentService) markPaid(ctx context.Context, o *models.Order, captured int64) error {
	if o.OrderStatus == models.OrderCancelled {
		return s.refundLatePayment(ctx, o, captured)
	}
	if o.PaymentStatus == models.PaymentCompleted {
		return nil
	}
	o.PaymentStatus = models.PaymentCompleted
	for i := range o.OrderItems {
		if o.OrderItems[i].OrderStatus != models.OrderCancelled {
			o.OrderItems[i].PaymentStatus = models.PaymentCompleted
		}
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return err
	}
	s.publisher.Publish(orderEvent(EventOrderPaid, o, s.now()))
	log.Printf("✅ Paiement confirmé pour la commande %s", o.OrderID)
	return nil
}

// refundLatePayment reverse au portefeuille un paiement arrivé après l'annulation
// (annulation client ou commande expirée); rejouer l'événement ne crédite qu'une fois
func (s *PaymentService) refundLatePayment(ctx context.Context, o *models.Order, captured int64) error {
	if o.PaymentStatus == models.PaymentRefunded || o.PaymentStatus == models.PaymentCompleted {
		return nil
	}
	amount := float64(captured) / 100
	if captured <= 0 {
		amount = o.TotalAmount + o.ShippingFee
	}

	o.PaymentStatus = models.PaymentRefunded
	for i := range o.OrderItems {
		o.OrderItems[i].PaymentStatus = models.PaymentRefunded
	}
	version := o.Version
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o.Version = version
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		if _, err := s.wallets.Credit(ctx, o.User, amount, "Amount retrieved from cancelled order "+o.OrderID); err != nil {
			return fmt.Errorf("remboursement portefeuille: %w", err)
		}
		return nil
	})
	if err != nil {
		o.Version = version
		return err
	}
	log.Printf("💰 Paiement tardif de la commande annulée %s : %.2f reversés au portefeuille", o.OrderID, amount)
	return nil
}

func (s *PaymentService) markFailed(ctx context.Context, o *models.Order) error {
	if o.PaymentStatus != models.PaymentPending {
		return nil
	}
	o.PaymentStatus = models.PaymentFailed
	for i := range o.OrderItems {
		if o.OrderItems[i].OrderStatus != models.OrderCancelled {
			o.OrderItems[i].PaymentStatus = models.PaymentFailed
		}
	}
	return s.orders.Update(ctx, o)
}

// Verify interroge Stripe et confirme la commande quand le paiement a abouti
func (s *PaymentService) Verify(ctx context.Context, userID primitive.ObjectID, orderID string) (*PaymentResult, error) {
	o, err := s.onlineOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentIntentID == "" {
		return nil, invalid("aucun paiement associé à cette commande")
	}
	intent, err := s.gateway.GetIntent(ctx, o.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if intent.Status == services.IntentSucceeded {
		if err := s.markPaid(ctx, o, intent.Amount); err != nil {
			return nil, err
		}
	}
	return &PaymentResult{OrderID: o.OrderID, PaymentStatus: o.PaymentStatus, IntentStatus: intent.Status}, nil
}

// Retry crée un nouveau PaymentIntent pour une commande en attente ou en échec
func (s *PaymentService) Retry(ctx context.Context, userID primitive.ObjectID, orderID string) (*PaymentResult, error) {
	o, err := s.onlineOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.OrderStatus == models.OrderCancelled {
		return nil, invalidAs(ErrOrderCancelled, "la commande est annulée")
	}
	if o.PaymentStatus != models.PaymentPending && o.PaymentStatus != models.PaymentFailed {
		return nil, invalid("aucun paiement à relancer (statut %s)", o.PaymentStatus)
	}

	intent, err := s.gateway.CreateIntent(ctx, o.PayableAmount+o.ShippingFee, map[string]string{
		"order_id": o.OrderID,
		"user_id":  userID.Hex(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	o.PaymentIntentID = intent.ID
	o.PaymentStatus = models.PaymentPending
	for i := range o.OrderItems {
		if o.OrderItems[i].OrderStatus != models.OrderCancelled {
			o.OrderItems[i].PaymentStatus = models.PaymentPending
		}
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	return &PaymentResult{
		OrderID:       o.OrderID,
		PaymentStatus: o.PaymentStatus,
		IntentStatus:  intent.Status,
		ClientSecret:  intent.ClientSecret,
	}, nil
}

// HandleWebhook applique un événement Stripe déjà vérifié
func (s *PaymentService) HandleWebhook(ctx context.Context, evt *services.WebhookEvent) error {
	if evt.Type != services.EventIntentSucceeded && evt.Type != services.EventIntentFailed {
		log.Printf("ℹ️ Événement ignoré : %s", evt.Type)
		return nil
	}
	if evt.IntentID == "" {
		return invalid("événement sans PaymentIntent")
	}

	o, err := s.orders.GetByPaymentIntent(ctx, evt.IntentID)
	if errors.Is(err, repository.ErrNotFound) {
		// intent remplacé par une relance : l'ancien ne concerne plus aucune commande
		log.Printf("⚠️ PaymentIntent %s sans commande", evt.IntentID)
		return nil
	}
	if err != nil {
		return err
	}

	if evt.Type == services.EventIntentSucceeded {
		return s.markPaid(ctx, o, evt.Amount)
	}
	return s.markFailed(ctx, o)
}
