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

// PaymentGateway est la passerelle de paiement en ligne (Stripe)
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount float64, metadata map[string]string) (*services.PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*services.PaymentIntent, error)
}

type CheckoutInput struct {
	AddressID     primitive.ObjectID
	PaymentMethod string
	CouponCode    string
}

type CheckoutResult struct {
	Order        *models.Order `json:"order"`
	ClientSecret string        `json:"client_secret,omitempty"`
}

type CheckoutService struct {
	cart      *CartService
	coupons   *CouponService
	addresses repository.AddressRepository
	products  repository.ProductRepository
	wallets   repository.WalletRepository
	orders    repository.OrderRepository
	carts     repository.CartRepository
	gateway   PaymentGateway
	publisher EventPublisher
	cache     ProductCache
	now       func() time.Time
}

func NewCheckoutService(store *repository.Store, cart *CartService, coupons *CouponService, gateway PaymentGateway, publisher EventPublisher) *CheckoutService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &CheckoutService{
		cart:      cart,
		coupons:   coupons,
		addresses: store.Addresses,
		products:  store.Products,
		wallets:   store.Wallets,
		orders:    store.Orders,
		carts:     store.Carts,
		gateway:   gateway,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithProductCache branche l'invalidation des fiches produit après réservation du stock
func (s *CheckoutService) WithProductCache(c ProductCache) *CheckoutService {
	s.cache = c
	return s
}

// PlaceOrder transforme le panier en commande; les montants sont recalculés ici
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID primitive.ObjectID, in CheckoutInput) (*CheckoutResult, error) {
	method, ok := models.NormalizePaymentMethod(in.PaymentMethod)
	if !ok {
		return nil, invalid("mode de paiement inconnu: %q", in.PaymentMethod)
	}

	// 1. Panier à jour
	cart, err := s.cart.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := cart.PurchasableItems()
	if len(items) == 0 {
		return nil, &InputError{Kind: ErrEmptyCart, Msg: "le panier est vide"}
	}

	// 2. Adresse de livraison
	address, err := s.addresses.GetByID(ctx, in.AddressID)
	if err != nil {
		return nil, err
	}
	if address.UserID != userID {
		return nil, ErrNotFound
	}

	// 3. Montants
	now := s.now()
	order := &models.Order{
		User:            userID,
		OrderID:         models.NewOrderID(now),
		ShippingAddress: address.ToShipping(),
		PaymentMethod:   method,
		OrderedAmount:   cart.TotalRegularPrice,
		TotalDiscount:   cart.TotalDiscount,
		ShippingFee:     models.ShippingFee,
		PlacedAt:        now,
		DeliveryBy:      now.Add(models.DeliveryDelay),
		OrderStatus:     models.OrderPending,
	}
	var coupon *models.Coupon
	if in.CouponCode != "" {
		var discount float64
		coupon, discount, err = s.coupons.Validate(ctx, userID, in.CouponCode, cart.TotalSalesPrice)
		if err != nil {
			return nil, err
		}
		order.CouponCode = coupon.CouponCode
		order.CouponDiscount = discount
	}
	order.TotalAmount = cart.TotalSalesPrice - order.CouponDiscount
	order.PayableAmount = order.TotalAmount

	// 4. Réservation du coupon puis du stock
	if coupon != nil {
		if err := s.coupons.Claim(ctx, coupon.ID, userID); err != nil {
			return nil, err
		}
	}
	reserved, err := s.reserveStock(ctx, items)
	if err != nil {
		s.releaseCoupon(ctx, coupon, userID)
		return nil, err
	}
	defer s.invalidateProducts(ctx, items)

	// 5. Paiement
	result := &CheckoutResult{Order: order}
	charge := order.TotalAmount + order.ShippingFee
	switch method {
	case models.MethodCOD:
		order.PaymentStatus = models.PaymentPending
	case models.MethodWallet:
		_, err := s.wallets.Debit(ctx, userID, charge, "Paiement de la commande "+order.OrderID)
		if err != nil {
			s.releaseStock(ctx, reserved)
			s.releaseCoupon(ctx, coupon, userID)
			if errors.Is(err, repository.ErrInsufficientBalance) || errors.Is(err, repository.ErrNotFound) {
				return nil, invalidAs(ErrInsufficientBalance, "solde du portefeuille insuffisant")
			}
			return nil, err
		}
		order.PaymentStatus = models.PaymentCompleted
	case models.MethodOnline:
		intent, err := s.gateway.CreateIntent(ctx, charge, map[string]string{
			"order_id": order.OrderID,
			"user_id":  userID.Hex(),
		})
		if err != nil {
			s.releaseStock(ctx, reserved)
			s.releaseCoupon(ctx, coupon, userID)
			return nil, fmt.Errorf("%w: paiement en ligne: %v", ErrUnavailable, err)
		}
		order.PaymentIntentID = intent.ID
		order.PaymentStatus = models.PaymentPending
		result.ClientSecret = intent.ClientSecret
	}

	order.OrderItems = make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		order.OrderItems = append(order.OrderItems, models.OrderItem{
			Product:       it.ProductID,
			ProductName:   it.ProductName,
			ProductImage:  it.ProductImage,
			Quantity:      it.Quantity,
			Price:         it.SalePrice,
			Discount:      it.Discount,
			OrderStatus:   models.OrderPending,
			PaymentStatus: order.PaymentStatus,
			TotalPrice:    it.SalePrice * float64(it.Quantity),
		})
	}

	// 6. Enregistrement
	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseStock(ctx, reserved)
		s.releaseCoupon(ctx, coupon, userID)
		if method == models.MethodWallet {
			if _, cerr := s.wallets.Credit(ctx, userID, charge, "Remboursement commande non enregistrée "+order.OrderID); cerr != nil {
				log.Printf("❌ Remboursement portefeuille impossible pour %s: %v", order.OrderID, cerr)
			}
		}
		return nil, fmt.Errorf("enregistrement commande: %w", err)
	}

	// 7. Effets de bord non bloquants
	if coupon != nil {
		if err := s.coupons.RecordApplied(ctx, coupon.ID, userID); err != nil {
			log.Printf("⚠️ Historique coupon %s non enregistré: %v", coupon.CouponCode, err)
		}
	}
	if err := s.carts.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Printf("⚠️ Panier de %s non vidé: %v", userID.Hex(), err)
	}
	s.publisher.Publish(orderEvent(EventOrderCreated, order, now))
	log.Printf("🛒 Commande %s créée (%s, %.2f)", order.OrderID, method, charge)

	return result, nil
}

type reservation struct {
	productID primitive.ObjectID
	quantity  int
}

// reserveStock décrémente le stock ligne par ligne; en cas de manque tout est rendu
func (s *CheckoutService) reserveStock(ctx context.Context, items []models.CartItem) ([]reservation, error) {
	reserved := make([]reservation, 0, len(items))
	for _, it := range items {
		if err := s.products.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.releaseStock(ctx, reserved)
			if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrNotFound) {
				return nil, invalidAs(ErrInsufficientStock, "stock insuffisant pour %s", it.ProductName)
			}
			return nil, err
		}
		reserved = append(reserved, reservation{productID: it.ProductID, quantity: it.Quantity})
	}
	return reserved, nil
}

func (s *CheckoutService) releaseStock(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		if err := s.products.IncrementStock(ctx, r.productID, r.quantity); err != nil {
			log.Printf("❌ Restauration stock %s (+%d) impossible: %v", r.productID.Hex(), r.quantity, err)
		}
	}
}

func (s *CheckoutService) releaseCoupon(ctx context.Context, coupon *models.Coupon, userID primitive.ObjectID) {
	if coupon != nil {
		s.coupons.Release(ctx, coupon.ID, userID)
	}
}

func (s *CheckoutService) invalidateProducts(ctx context.Context, items []models.CartItem) {
	if s.cache == nil {
		return
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID.Hex())
	}
	if err := s.cache.InvalidateProducts(ctx, ids...); err != nil {
		log.Printf("⚠️ Invalidation cache produits: %v", err)
	}
}
