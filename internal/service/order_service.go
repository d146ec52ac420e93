package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
	"stc_back_end/internal/utils"
)

// TxRunner exécute fn dans une transaction : tout ou rien
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderService porte le cycle de vie des commandes : annulation, retour, remboursement.
// Une transition, son crédit portefeuille et son retour en stock sont écrits dans la même
// transaction; l'écriture versionnée de la commande empêche de rejouer un remboursement.
type OrderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	wallets   repository.WalletRepository
	users     repository.UserRepository
	tx        TxRunner
	cache     ProductCache
	mailer    utils.Mailer
	publisher EventPublisher
	now       func() time.Time
}

func NewOrderService(store *repository.Store, mailer utils.Mailer, publisher EventPublisher) *OrderService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if mailer == nil {
		mailer = utils.LogMailer{}
	}
	return &OrderService{
		orders:    store.Orders,
		products:  store.Products,
		wallets:   store.Wallets,
		users:     store.Users,
		tx:        store,
		mailer:    mailer,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithProductCache invalide les fiches produit en cache quand le stock bouge
func (s *OrderService) WithProductCache(c ProductCache) *OrderService {
	s.cache = c
	return s
}

type stockLine struct {
	product  primitive.ObjectID
	quantity int
}

func (s *OrderService) restoreStock(ctx context.Context, lines []stockLine) error {
	for _, l := range lines {
		if err := s.products.IncrementStock(ctx, l.product, l.quantity); err != nil {
			return fmt.Errorf("restauration stock %s (+%d): %w", l.product.Hex(), l.quantity, err)
		}
	}
	return nil
}

func (s *OrderService) refund(ctx context.Context, userID primitive.ObjectID, amount float64, description string) error {
	if amount <= 0 {
		return nil
	}
	if _, err := s.wallets.Credit(ctx, userID, amount, description); err != nil {
		return fmt.Errorf("remboursement portefeuille: %w", err)
	}
	return nil
}

// settlement regroupe les effets d'une transition de commande
type settlement struct {
	restock     []stockLine
	refund      float64
	description string
}

// commit écrit la commande, le crédit et le stock ensemble; en cas d'échec rien n'est
// appliqué et la transition peut être retentée
func (s *OrderService) commit(ctx context.Context, o *models.Order, st settlement) error {
	version := o.Version
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o.Version = version
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		if err := s.refund(ctx, o.User, st.refund, st.description); err != nil {
			return err
		}
		return s.restoreStock(ctx, st.restock)
	})
	if err != nil {
		o.Version = version
		return err
	}
	if st.refund > 0 {
		log.Printf("💰 %.2f remboursés au portefeuille de %s", st.refund, o.User.Hex())
	}
	s.invalidateProducts(ctx, st.restock)
	return nil
}

func (s *OrderService) invalidateProducts(ctx context.Context, lines []stockLine) {
	if s.cache == nil || len(lines) == 0 {
		return
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.product.Hex())
	}
	if err := s.cache.InvalidateProducts(ctx, ids...); err != nil {
		log.Printf("⚠️ Invalidation cache produits: %v", err)
	}
}

func (s *OrderService) ListForUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.Order, int64, error) {
	return s.orders.ListByUser(ctx, userID, page, limit)
}

// GetForUser masque l'existence des commandes d'autrui
func (s *OrderService) GetForUser(ctx context.Context, userID primitive.ObjectID, orderID string) (*models.Order, error) {
	o, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.User != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// Cancel annule toute la commande et rembourse le montant payé au portefeuille
func (s *OrderService) Cancel(ctx context.Context, userID primitive.ObjectID, orderID, reason string) (*models.Order, error) {
	o, err := s.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	switch o.OrderStatus {
	case models.OrderDelivered:
		return nil, invalidAs(ErrOrderDelivered, "la commande est déjà livrée")
	case models.OrderCancelled:
		return nil, invalidAs(ErrOrderCancelled, "la commande est déjà annulée")
	}

	refundable := o.RefundableToWallet()
	restock := make([]stockLine, 0, len(o.OrderItems))
	for i := range o.OrderItems {
		it := &o.OrderItems[i]
		if it.OrderStatus == models.OrderCancelled {
			continue
		}
		it.OrderStatus = models.OrderCancelled
		it.CancellationReason = reason
		if refundable {
			it.PaymentStatus = models.PaymentRefunded
		}
		restock = append(restock, stockLine{it.Product, it.Quantity})
	}

	refund := 0.0
	switch {
	case refundable:
		refund = o.PayableAmount + o.ShippingFee
		o.PaymentStatus = models.PaymentRefunded
	case o.PaymentMethod == models.MethodCOD:
		o.PaymentStatus = models.PaymentCancelled
	}
	o.OrderStatus = models.OrderCancelled
	o.PayableAmount = 0

	err = s.commit(ctx, o, settlement{
		restock:     restock,
		refund:      refund,
		description: "Amount retrieved from cancelled order " + o.OrderID,
	})
	if err != nil {
		log.Printf("❌ Annulation de %s abandonnée: %v", o.OrderID, err)
		return nil, err
	}
	s.publisher.Publish(orderEvent(EventOrderCancelled, o, s.now()))
	log.Printf("🚫 Commande %s annulée (remboursement %.2f)", o.OrderID, refund)
	return o, nil
}

// CancelItem annule une seule ligne; la part de coupon de la ligne reste acquise
func (s *OrderService) CancelItem(ctx context.Context, userID primitive.ObjectID, orderID string, productID primitive.ObjectID, reason string) (*models.Order, error) {
	o, err := s.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.OrderStatus == models.OrderDelivered {
		return nil, invalidAs(ErrOrderDelivered, "la commande est déjà livrée")
	}
	idx := o.FindItem(productID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	item := &o.OrderItems[idx]
	if item.OrderStatus == models.OrderCancelled {
		return nil, invalidAs(ErrOrderCancelled, "ce produit est déjà annulé")
	}

	refundable := o.RefundableToWallet()
	item.OrderStatus = models.OrderCancelled
	item.CancellationReason = reason
	if o.PaymentStatus == models.PaymentCompleted {
		item.PaymentStatus = models.PaymentRefunded
	}

	avgCoupon := math.Floor(o.CouponDiscount / float64(len(o.OrderItems)))
	reduced := item.TotalPrice - avgCoupon
	o.PayableAmount = math.Max(0, o.PayableAmount-reduced)

	allCancelled := o.AllItems(func(it models.OrderItem) bool { return it.OrderStatus == models.OrderCancelled })
	refund := reduced
	if allCancelled {
		o.OrderStatus = models.OrderCancelled
		refund += o.ShippingFee
		switch {
		case o.PaymentMethod == models.MethodCOD:
			o.PaymentStatus = models.PaymentCancelled
		case refundable:
			o.PaymentStatus = models.PaymentRefunded
		}
	}

	st := settlement{restock: []stockLine{{item.Product, item.Quantity}}}
	if refundable {
		st.refund = refund
		st.description = fmt.Sprintf("Amount retrieved from cancelled order %s for the cancelled product %s", o.OrderID, item.ProductName)
	}
	if err := s.commit(ctx, o, st); err != nil {
		log.Printf("❌ Annulation de ligne sur %s abandonnée: %v", o.OrderID, err)
		return nil, err
	}
	if allCancelled {
		s.publisher.Publish(orderEvent(EventOrderCancelled, o, s.now()))
	}
	return o, nil
}

// RequestReturn ouvre une demande de retour sur une ligne livrée
func (s *OrderService) RequestReturn(ctx context.Context, userID primitive.ObjectID, orderID string, productID primitive.ObjectID, reason, explanation string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("le motif du retour est obligatoire")
	}
	o, err := s.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	idx := o.FindItem(productID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	item := &o.OrderItems[idx]
	if item.OrderStatus != models.OrderDelivered {
		return nil, invalid("seul un produit livré peut être retourné")
	}
	if item.ReturnRequest != nil && item.ReturnRequest.RequestStatus != "" {
		return nil, invalid("un retour a déjà été demandé pour ce produit")
	}

	item.ReturnRequest = &models.ReturnRequest{
		RequestStatus: models.ReturnPending,
		Reason:        reason,
		Explanation:   strings.TrimSpace(explanation),
	}
	o.IsReturnReq = true
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	s.publisher.Publish(orderEvent(EventReturnRequest, o, s.now()))
	return o, nil
}

// CancelStalePending annule les commandes en ligne jamais payées passées avant la date limite
func (s *OrderService) CancelStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.orders.FindStalePending(ctx, models.MethodOnline, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range stale {
		o := &stale[i]
		restock := make([]stockLine, 0, len(o.OrderItems))
		for j := range o.OrderItems {
			it := &o.OrderItems[j]
			if it.OrderStatus != models.OrderCancelled {
				restock = append(restock, stockLine{it.Product, it.Quantity})
			}
			it.OrderStatus = models.OrderCancelled
			it.PaymentStatus = models.PaymentFailed
		}
		o.OrderStatus = models.OrderCancelled
		o.PaymentStatus = models.PaymentFailed

		if err := s.commit(ctx, o, settlement{restock: restock}); err != nil {
			log.Printf("⚠️ Commande %s non annulée: %v", o.OrderID, err)
			continue
		}
		s.publisher.Publish(orderEvent(EventOrderCancelled, o, s.now()))
		cancelled++
	}
	return cancelled, nil
}
