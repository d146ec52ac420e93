package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
)

type checkoutEnv struct {
	f         *fakes
	fx        catalogFixture
	svc       *CheckoutService
	cart      *CartService
	gateway   *MockGateway
	publisher *MockPublisher
	user      *models.User
	address   *models.Address
}

func newCheckoutEnv(t *testing.T) *checkoutEnv {
	t.Helper()
	f, store := newFakes()
	fx := seedCatalog(f)
	cart := NewCartService(store.Carts, store.Products, store.Categories)
	coupons := NewCouponService(store.Coupons, store.Users)
	gw := &MockGateway{}
	pub := &MockPublisher{}

	user := f.users.add(&models.User{Username: "asha", Email: "asha@example.com", IsVerified: true})
	addr := &models.Address{UserID: user.ID, Name: "Asha", Email: "asha@example.com", City: "Kochi", State: "Kerala", Pincode: "682001"}
	require.NoError(t, f.addresses.Create(context.Background(), addr))

	return &checkoutEnv{
		f: f, fx: fx, cart: cart, gateway: gw, publisher: pub, user: user, address: addr,
		svc: NewCheckoutService(store, cart, coupons, gw, pub),
	}
}

func (e *checkoutEnv) fillCart(t *testing.T) {
	t.Helper()
	_, err := e.cart.AddItem(context.Background(), e.user.ID, e.fx.rog.ID, 2)
	require.NoError(t, err)
}

func TestPlaceOrder_CashOnDelivery(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)

	res, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{
		AddressID: e.address.ID, PaymentMethod: models.MethodCOD,
	})

	require.NoError(t, err)
	o := res.Order
	assert.Equal(t, 2000.0, o.OrderedAmount)
	assert.Equal(t, 200.0, o.TotalDiscount)
	assert.Equal(t, 1800.0, o.TotalAmount)
	assert.Equal(t, 1800.0, o.PayableAmount)
	assert.Equal(t, 15.0, o.ShippingFee)
	assert.Equal(t, models.PaymentPending, o.PaymentStatus)
	assert.Equal(t, models.OrderPending, o.OrderStatus)
	assert.Equal(t, "Kochi", o.ShippingAddress.City)
	assert.Equal(t, o.PlacedAt.Add(7*24*time.Hour), o.DeliveryBy)
	assert.Regexp(t, `^STC\d+$`, o.OrderID)
	require.Len(t, o.OrderItems, 1)
	assert.Equal(t, models.PaymentPending, o.OrderItems[0].PaymentStatus)
	assert.Empty(t, res.ClientSecret)

	assert.Equal(t, 8, e.f.products.stock(e.fx.rog.ID))
	assert.Empty(t, e.f.carts.byUser)
	assert.NotNil(t, e.f.orders.stored(o.OrderID))
	assert.Equal(t, []string{EventOrderCreated}, e.publisher.types())
}

func TestPlaceOrder_LegacyRazorpayLabelIsOnline(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)

	res, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{
		AddressID: e.address.ID, PaymentMethod: "Razor pay",
	})

	require.NoError(t, err)
	assert.Equal(t, models.MethodOnline, res.Order.PaymentMethod)
	assert.Equal(t, "pi_test", res.Order.PaymentIntentID)
	assert.Equal(t, "pi_test_secret", res.ClientSecret)
	assert.Equal(t, []float64{1815}, e.gateway.Created)
}

func TestPlaceOrder_WalletDebitsTotalWithShipping(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	ctx := context.Background()
	_, err := e.f.wallets.Credit(ctx, e.user.ID, 5000, "top-up")
	require.NoError(t, err)

	res, err := e.svc.PlaceOrder(ctx, e.user.ID, CheckoutInput{AddressID: e.address.ID, PaymentMethod: models.MethodWallet})

	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, res.Order.PaymentStatus)
	assert.Equal(t, models.PaymentCompleted, res.Order.OrderItems[0].PaymentStatus)
	assert.Equal(t, 3185.0, e.f.wallets.balance(e.user.ID))
}

func TestPlaceOrder_WalletInsufficientBalanceReleasesStock(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	ctx := context.Background()
	_, err := e.f.wallets.Credit(ctx, e.user.ID, 100, "top-up")
	require.NoError(t, err)

	_, err = e.svc.PlaceOrder(ctx, e.user.ID, CheckoutInput{AddressID: e.address.ID, PaymentMethod: models.MethodWallet})

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))
	assert.Equal(t, 100.0, e.f.wallets.balance(e.user.ID))
	assert.Empty(t, e.f.orders.byID)
}

func TestPlaceOrder_WalletRefundedWhenOrderNotSaved(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	ctx := context.Background()
	_, err := e.f.wallets.Credit(ctx, e.user.ID, 5000, "top-up")
	require.NoError(t, err)
	e.f.orders.CreateErr = errBoom

	_, err = e.svc.PlaceOrder(ctx, e.user.ID, CheckoutInput{AddressID: e.address.ID, PaymentMethod: models.MethodWallet})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 5000.0, e.f.wallets.balance(e.user.ID))
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))
}

func TestPlaceOrder_GatewayFailureReleasesStock(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	e.gateway.CreateErr = errBoom

	_, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{AddressID: e.address.ID, PaymentMethod: models.MethodOnline})

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))
}

func TestPlaceOrder_CouponAppliedAndRecorded(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	now := time.Now()
	coupon := e.f.coupons.add(&models.Coupon{
		CouponCode: "SAVE10", DiscountPercentage: 10, MaxDiscountPrice: 100, MinPurchaseAmount: 500,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(24 * time.Hour),
	})

	res, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{
		AddressID: e.address.ID, PaymentMethod: models.MethodCOD, CouponCode: "save10",
	})

	require.NoError(t, err)
	assert.Equal(t, "SAVE10", res.Order.CouponCode)
	assert.Equal(t, 100.0, res.Order.CouponDiscount)
	assert.Equal(t, 1700.0, res.Order.TotalAmount)
	assert.Equal(t, 1700.0, res.Order.PayableAmount)
	assert.True(t, e.f.coupons.byID[coupon.ID].UsedBy(e.user.ID))
	assert.True(t, e.f.users.byID[e.user.ID].HasUsedCoupon(coupon.ID))
}

func TestPlaceOrder_CouponClaimedConcurrentlyIsRejected(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	now := time.Now()
	coupon := e.f.coupons.add(&models.Coupon{
		CouponCode: "SAVE10", DiscountPercentage: 10, MaxDiscountPrice: 100, MinPurchaseAmount: 500,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(24 * time.Hour),
	})
	// une autre commande du même client passe entre la validation et la réservation
	e.f.coupons.BeforeAddUser = func(c *models.Coupon) {
		c.Users = append(c.Users, models.CouponUser{UserID: e.user.ID, AppliedOn: now})
	}

	_, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{
		AddressID: e.address.ID, PaymentMethod: models.MethodCOD, CouponCode: "SAVE10",
	})

	assert.ErrorIs(t, err, ErrCouponInvalid)
	assert.Len(t, e.f.coupons.byID[coupon.ID].Users, 1)
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))
	assert.Empty(t, e.f.orders.byID)
}

func TestPlaceOrder_CouponReleasedWhenPaymentFails(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	now := time.Now()
	coupon := e.f.coupons.add(&models.Coupon{
		CouponCode: "SAVE10", DiscountPercentage: 10, MaxDiscountPrice: 100, MinPurchaseAmount: 500,
		StartDate: now.Add(-time.Hour), EndDate: now.Add(24 * time.Hour),
	})
	e.gateway.CreateErr = errBoom

	_, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{
		AddressID: e.address.ID, PaymentMethod: models.MethodOnline, CouponCode: "SAVE10",
	})

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, e.f.coupons.byID[coupon.ID].UsedBy(e.user.ID))
	assert.False(t, e.f.users.byID[e.user.ID].HasUsedCoupon(coupon.ID))
}

func TestPlaceOrder_InvalidatesCachedProducts(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	productCache := newMockProductCache()
	e.svc.WithProductCache(productCache)
	require.NoError(t, productCache.SetProduct(context.Background(), e.fx.rog))

	_, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{
		AddressID: e.address.ID, PaymentMethod: models.MethodCOD,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{e.fx.rog.ID.Hex()}, productCache.invalidated())
	_, err = productCache.GetProduct(context.Background(), e.fx.rog.ID.Hex())
	assert.Error(t, err, "stale stock must not be served from cache")
}

func TestPlaceOrder_InvalidCouponKeepsStock(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)

	_, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{
		AddressID: e.address.ID, PaymentMethod: models.MethodCOD, CouponCode: "NOPE",
	})

	assert.ErrorIs(t, err, ErrCouponInvalid)
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	e := newCheckoutEnv(t)

	_, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{AddressID: e.address.ID, PaymentMethod: models.MethodCOD})

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPlaceOrder_ForeignAddress(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	other := &models.Address{UserID: primitive.NewObjectID(), Name: "X"}
	require.NoError(t, e.f.addresses.Create(context.Background(), other))

	_, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{AddressID: other.ID, PaymentMethod: models.MethodCOD})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlaceOrder_UnknownPaymentMethod(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)

	_, err := e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{AddressID: e.address.ID, PaymentMethod: "cheque"})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPlaceOrder_ShortageRollsBackEarlierReservations(t *testing.T) {
	e := newCheckoutEnv(t)
	e.fillCart(t)
	_, err := e.cart.AddItem(context.Background(), e.user.ID, e.fx.legion.ID, 2)
	require.NoError(t, err)
	// le stock tombe entre l'ajout au panier et la commande
	e.fx.legion.Quantity = 1

	_, err = e.svc.PlaceOrder(context.Background(), e.user.ID, CheckoutInput{AddressID: e.address.ID, PaymentMethod: models.MethodCOD})

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))
	assert.Equal(t, 1, e.f.products.stock(e.fx.legion.ID))
	assert.Empty(t, e.f.orders.byID)
}
