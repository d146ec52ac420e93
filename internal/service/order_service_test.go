package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
)

type orderEnv struct {
	f         *fakes
	fx        catalogFixture
	svc       *OrderService
	mailer    *MockMailer
	publisher *MockPublisher
	userID    primitive.ObjectID
}

func newOrderEnv() *orderEnv {
	f, store := newFakes()
	mailer := &MockMailer{}
	pub := &MockPublisher{}
	svc := NewOrderService(store, mailer, pub)
	svc.tx = f
	return &orderEnv{
		f: f, fx: seedCatalog(f), mailer: mailer, publisher: pub,
		svc:    svc,
		userID: primitive.NewObjectID(),
	}
}

func (e *orderEnv) deliver(o *models.Order, payment string) {
	stored := e.f.orders.stored(o.OrderID)
	stored.OrderStatus = models.OrderDelivered
	stored.PaymentStatus = payment
	for i := range stored.OrderItems {
		stored.OrderItems[i].OrderStatus = models.OrderDelivered
		stored.OrderItems[i].PaymentStatus = payment
	}
}

func TestCancel_PrepaidRefundsPayableAndShipping(t *testing.T) {
	e := newOrderEnv()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodWallet, models.PaymentCompleted)

	got, err := e.svc.Cancel(context.Background(), e.userID, o.OrderID, "changed my mind")

	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.OrderStatus)
	assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
	assert.Zero(t, got.PayableAmount)
	for _, it := range got.OrderItems {
		assert.Equal(t, models.OrderCancelled, it.OrderStatus)
		assert.Equal(t, models.PaymentRefunded, it.PaymentStatus)
		assert.Equal(t, "changed my mind", it.CancellationReason)
	}
	assert.Equal(t, 2215.0, e.f.wallets.balance(e.userID))
	assert.Equal(t, 12, e.f.products.stock(e.fx.rog.ID))
	assert.Equal(t, 4, e.f.products.stock(e.fx.legion.ID))
	assert.Equal(t, []string{EventOrderCancelled}, e.publisher.types())
}

func TestCancel_CashOnDeliveryHasNoRefund(t *testing.T) {
	e := newOrderEnv()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)

	got, err := e.svc.Cancel(context.Background(), e.userID, o.OrderID, "")

	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, got.PaymentStatus)
	assert.Equal(t, models.PaymentPending, got.OrderItems[0].PaymentStatus)
	assert.Zero(t, e.f.wallets.balance(e.userID))
	assert.Equal(t, 12, e.f.products.stock(e.fx.rog.ID))
}

// Rien n'est encaissé : le paiement reste Pending et un encaissement tardif
// est reversé au portefeuille par PaymentService
func TestCancel_UnpaidOnlineOrderAwaitsLatePayment(t *testing.T) {
	e := newOrderEnv()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodOnline, models.PaymentPending)

	got, err := e.svc.Cancel(context.Background(), e.userID, o.OrderID, "")

	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.OrderStatus)
	assert.Equal(t, models.PaymentPending, got.PaymentStatus)
	assert.Zero(t, e.f.wallets.balance(e.userID))
	assert.Equal(t, 12, e.f.products.stock(e.fx.rog.ID))
}

func TestCancel_Rejections(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()

	delivered := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)
	e.deliver(delivered, models.PaymentCompleted)
	_, err := e.svc.Cancel(ctx, e.userID, delivered.OrderID, "")
	assert.ErrorIs(t, err, ErrOrderDelivered)
	assert.ErrorIs(t, err, ErrInvalidInput)

	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)
	_, err = e.svc.Cancel(ctx, e.userID, o.OrderID, "")
	require.NoError(t, err)
	_, err = e.svc.Cancel(ctx, e.userID, o.OrderID, "")
	assert.ErrorIs(t, err, ErrOrderCancelled)

	other := seedOrder(e.f, e.fx, primitive.NewObjectID(), models.MethodCOD, models.PaymentPending)
	_, err = e.svc.Cancel(ctx, e.userID, other.OrderID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel_ConflictLeavesNoSideEffects(t *testing.T) {
	e := newOrderEnv()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodWallet, models.PaymentCompleted)
	e.f.orders.UpdateErr = repository.ErrConflict

	_, err := e.svc.Cancel(context.Background(), e.userID, o.OrderID, "")

	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, e.f.wallets.balance(e.userID))
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))
	assert.Equal(t, models.OrderPending, e.f.orders.stored(o.OrderID).OrderStatus)
}

func TestCancel_FailedCreditRollsBackAndCanBeRetried(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodWallet, models.PaymentCompleted)
	e.f.wallets.CreditErr = errBoom

	_, err := e.svc.Cancel(ctx, e.userID, o.OrderID, "")

	assert.ErrorIs(t, err, errBoom)
	stored := e.f.orders.stored(o.OrderID)
	assert.Equal(t, models.OrderPending, stored.OrderStatus)
	assert.Equal(t, models.PaymentCompleted, stored.PaymentStatus)
	assert.Zero(t, e.f.wallets.balance(e.userID))
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))
	assert.Empty(t, e.publisher.types())

	got, err := e.svc.Cancel(ctx, e.userID, o.OrderID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
	assert.Equal(t, 2215.0, e.f.wallets.balance(e.userID))
	assert.Equal(t, 12, e.f.products.stock(e.fx.rog.ID))
}

func TestCancelItem_FailedCreditRollsBack(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodOnline, models.PaymentCompleted)
	e.f.wallets.CreditErr = errBoom

	_, err := e.svc.CancelItem(ctx, e.userID, o.OrderID, e.fx.legion.ID, "")

	assert.ErrorIs(t, err, errBoom)
	stored := e.f.orders.stored(o.OrderID)
	assert.Equal(t, models.OrderPending, stored.OrderItems[1].OrderStatus)
	assert.Equal(t, 2200.0, stored.PayableAmount)
	assert.Equal(t, 3, e.f.products.stock(e.fx.legion.ID))

	_, err = e.svc.CancelItem(ctx, e.userID, o.OrderID, e.fx.legion.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 450.0, e.f.wallets.balance(e.userID))
}

func TestCancel_InvalidatesCachedProducts(t *testing.T) {
	e := newOrderEnv()
	productCache := newMockProductCache()
	e.svc.WithProductCache(productCache)
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)

	_, err := e.svc.Cancel(context.Background(), e.userID, o.OrderID, "")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{e.fx.rog.ID.Hex(), e.fx.legion.ID.Hex()}, productCache.invalidated())
}

func TestCancelItem_SplitsCouponAcrossLines(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodWallet, models.PaymentCompleted)

	got, err := e.svc.CancelItem(ctx, e.userID, o.OrderID, e.fx.legion.ID, "")
	require.NoError(t, err)
	// 500 - floor(100/2)
	assert.Equal(t, 1750.0, got.PayableAmount)
	assert.Equal(t, models.OrderPending, got.OrderStatus)
	assert.Equal(t, 450.0, e.f.wallets.balance(e.userID))
	assert.Equal(t, 4, e.f.products.stock(e.fx.legion.ID))
	assert.Empty(t, e.publisher.types())

	got, err = e.svc.CancelItem(ctx, e.userID, o.OrderID, e.fx.rog.ID, "")
	require.NoError(t, err)
	assert.Zero(t, got.PayableAmount)
	assert.Equal(t, models.OrderCancelled, got.OrderStatus)
	assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
	// la dernière ligne rembourse aussi la livraison
	assert.Equal(t, 2215.0, e.f.wallets.balance(e.userID))
	assert.Equal(t, []string{EventOrderCancelled}, e.publisher.types())
}

func TestCancelItem_Rejections(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)

	_, err := e.svc.CancelItem(ctx, e.userID, o.OrderID, primitive.NewObjectID(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.CancelItem(ctx, e.userID, o.OrderID, e.fx.rog.ID, "")
	require.NoError(t, err)
	_, err = e.svc.CancelItem(ctx, e.userID, o.OrderID, e.fx.rog.ID, "")
	assert.ErrorIs(t, err, ErrOrderCancelled)
	assert.Zero(t, e.f.wallets.balance(e.userID))
}

func TestRequestReturn(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)

	_, err := e.svc.RequestReturn(ctx, e.userID, o.OrderID, e.fx.rog.ID, "broken", "")
	assert.ErrorIs(t, err, ErrInvalidInput, "only delivered lines can be returned")

	e.deliver(o, models.PaymentCompleted)
	_, err = e.svc.RequestReturn(ctx, e.userID, o.OrderID, e.fx.rog.ID, "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := e.svc.RequestReturn(ctx, e.userID, o.OrderID, e.fx.rog.ID, "broken", " screen flickers ")
	require.NoError(t, err)
	assert.True(t, got.IsReturnReq)
	require.NotNil(t, got.OrderItems[0].ReturnRequest)
	assert.Equal(t, models.ReturnPending, got.OrderItems[0].ReturnRequest.RequestStatus)
	assert.Equal(t, "screen flickers", got.OrderItems[0].ReturnRequest.Explanation)
	assert.Equal(t, []string{EventReturnRequest}, e.publisher.types())

	_, err = e.svc.RequestReturn(ctx, e.userID, o.OrderID, e.fx.rog.ID, "again", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateStatus_DeliveredCompletesCashOnDelivery(t *testing.T) {
	e := newOrderEnv()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)

	got, err := e.svc.UpdateStatus(context.Background(), o.OrderID, models.OrderDelivered)

	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, got.OrderStatus)
	assert.Equal(t, models.PaymentCompleted, got.PaymentStatus)
	for _, it := range got.OrderItems {
		assert.Equal(t, models.PaymentCompleted, it.PaymentStatus)
		assert.NotNil(t, it.DeliveredOn)
	}
	assert.Eventually(t, func() bool { return e.mailer.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "asha@example.com", e.mailer.last().To)
	assert.Equal(t, []string{EventOrderStatus}, e.publisher.types())
}

func TestUpdateStatus_AdminCancelRefundsPrepaid(t *testing.T) {
	e := newOrderEnv()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodOnline, models.PaymentCompleted)

	got, err := e.svc.UpdateStatus(context.Background(), o.OrderID, models.OrderCancelled)

	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
	assert.Zero(t, got.PayableAmount)
	assert.Equal(t, 2215.0, e.f.wallets.balance(e.userID))
	assert.Equal(t, 12, e.f.products.stock(e.fx.rog.ID))
}

func TestUpdateStatus_AdminCancelFailedCreditRollsBack(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodOnline, models.PaymentCompleted)
	e.f.wallets.CreditErr = errBoom

	_, err := e.svc.UpdateStatus(ctx, o.OrderID, models.OrderCancelled)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, models.OrderPending, e.f.orders.stored(o.OrderID).OrderStatus)
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))
	assert.Empty(t, e.publisher.types())

	got, err := e.svc.UpdateStatus(ctx, o.OrderID, models.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
	assert.Equal(t, 2215.0, e.f.wallets.balance(e.userID))
}

func TestUpdateStatus_RepeatedDeliveredKeepsReturnedLines(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)
	_, err := e.svc.UpdateStatus(ctx, o.OrderID, models.OrderDelivered)
	require.NoError(t, err)
	_, err = e.svc.RequestReturn(ctx, e.userID, o.OrderID, e.fx.rog.ID, "broken", "")
	require.NoError(t, err)
	_, err = e.svc.DecideReturn(ctx, o.OrderID, e.fx.rog.ID, ReturnDecisionAccepted)
	require.NoError(t, err)
	_, err = e.svc.RequestReturn(ctx, e.userID, o.OrderID, e.fx.legion.ID, "meh", "")
	require.NoError(t, err)
	_, err = e.svc.DecideReturn(ctx, o.OrderID, e.fx.legion.ID, ReturnDecisionRejected)
	require.NoError(t, err)
	before := e.f.orders.stored(o.OrderID)
	deliveredOn := *before.OrderItems[0].DeliveredOn
	version := before.Version

	got, err := e.svc.UpdateStatus(ctx, o.OrderID, models.OrderDelivered)

	require.NoError(t, err)
	assert.Equal(t, models.OrderReturned, got.OrderItems[0].OrderStatus)
	assert.Equal(t, models.PaymentRefunded, got.OrderItems[0].PaymentStatus)
	assert.Equal(t, models.OrderReturnRejected, got.OrderItems[1].OrderStatus)
	stored := e.f.orders.stored(o.OrderID)
	assert.Equal(t, version, stored.Version, "no write for a repeated status")
	assert.Equal(t, deliveredOn, *stored.OrderItems[0].DeliveredOn)
	assert.Equal(t, models.PaymentCompleted, stored.PaymentStatus)
	// 1800 - 50 + 15, un seul remboursement
	assert.Equal(t, 1765.0, e.f.wallets.balance(e.userID))
}

func TestUpdateStatus_Rejections(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)

	_, err := e.svc.UpdateStatus(ctx, o.OrderID, "Lost")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.svc.UpdateStatus(ctx, "STC0", models.OrderShipped)
	assert.ErrorIs(t, err, ErrNotFound)

	e.deliver(o, models.PaymentCompleted)
	_, err = e.svc.UpdateStatus(ctx, o.OrderID, models.OrderShipped)
	assert.ErrorIs(t, err, ErrOrderDelivered)
}

func TestDecideReturn_AcceptRefundsLineMinusCouponShare(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)
	e.deliver(o, models.PaymentCompleted)
	_, err := e.svc.RequestReturn(ctx, e.userID, o.OrderID, e.fx.rog.ID, "broken", "")
	require.NoError(t, err)

	got, err := e.svc.DecideReturn(ctx, o.OrderID, e.fx.rog.ID, ReturnDecisionAccepted)

	require.NoError(t, err)
	item := got.OrderItems[0]
	assert.Equal(t, models.OrderReturned, item.OrderStatus)
	assert.Equal(t, models.ReturnApproved, item.ReturnRequest.RequestStatus)
	assert.Equal(t, models.PaymentRefunded, item.PaymentStatus)
	assert.False(t, got.IsReturnReq)
	assert.Equal(t, models.PaymentCompleted, got.PaymentStatus)
	// 1800 - 50 + 15
	assert.Equal(t, 1765.0, e.f.wallets.balance(e.userID))
	assert.Equal(t, 12, e.f.products.stock(e.fx.rog.ID))
}

func TestDecideReturn_FailedCreditKeepsRequestPending(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)
	e.deliver(o, models.PaymentCompleted)
	_, err := e.svc.RequestReturn(ctx, e.userID, o.OrderID, e.fx.rog.ID, "broken", "")
	require.NoError(t, err)
	e.f.wallets.CreditErr = errBoom

	_, err = e.svc.DecideReturn(ctx, o.OrderID, e.fx.rog.ID, ReturnDecisionAccepted)

	assert.ErrorIs(t, err, errBoom)
	item := e.f.orders.stored(o.OrderID).OrderItems[0]
	assert.Equal(t, models.OrderDelivered, item.OrderStatus)
	assert.Equal(t, models.ReturnPending, item.ReturnRequest.RequestStatus)
	assert.Zero(t, e.f.wallets.balance(e.userID))
	assert.Equal(t, 10, e.f.products.stock(e.fx.rog.ID))

	got, err := e.svc.DecideReturn(ctx, o.OrderID, e.fx.rog.ID, ReturnDecisionAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReturned, got.OrderItems[0].OrderStatus)
	assert.Equal(t, 1765.0, e.f.wallets.balance(e.userID))
	assert.Equal(t, 12, e.f.products.stock(e.fx.rog.ID))
}

func TestDecideReturn_Reject(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	o := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)
	e.deliver(o, models.PaymentCompleted)
	_, err := e.svc.RequestReturn(ctx, e.userID, o.OrderID, e.fx.legion.ID, "meh", "")
	require.NoError(t, err)

	_, err = e.svc.DecideReturn(ctx, o.OrderID, e.fx.legion.ID, "maybe")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := e.svc.DecideReturn(ctx, o.OrderID, e.fx.legion.ID, ReturnDecisionRejected)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReturnRejected, got.OrderItems[1].OrderStatus)
	assert.Zero(t, e.f.wallets.balance(e.userID))
	assert.Equal(t, 3, e.f.products.stock(e.fx.legion.ID))

	_, err = e.svc.DecideReturn(ctx, o.OrderID, e.fx.legion.ID, ReturnDecisionAccepted)
	assert.ErrorIs(t, err, ErrInvalidInput, "decision already taken")
}

func TestCancelStalePending(t *testing.T) {
	e := newOrderEnv()
	stale := seedOrder(e.f, e.fx, e.userID, models.MethodOnline, models.PaymentPending)
	e.f.orders.stored(stale.OrderID).PlacedAt = time.Now().Add(-72 * time.Hour)
	fresh := seedOrder(e.f, e.fx, e.userID, models.MethodOnline, models.PaymentPending)
	cod := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)
	e.f.orders.stored(cod.OrderID).PlacedAt = time.Now().Add(-72 * time.Hour)

	n, err := e.svc.CancelStalePending(context.Background(), 48*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.OrderCancelled, e.f.orders.stored(stale.OrderID).OrderStatus)
	assert.Equal(t, models.PaymentFailed, e.f.orders.stored(stale.OrderID).PaymentStatus)
	assert.Equal(t, models.OrderPending, e.f.orders.stored(fresh.OrderID).OrderStatus)
	assert.Equal(t, models.OrderPending, e.f.orders.stored(cod.OrderID).OrderStatus)
	assert.Equal(t, 12, e.f.products.stock(e.fx.rog.ID))
}

func TestListAdminOrders_RejectsUnknownStatus(t *testing.T) {
	e := newOrderEnv()
	seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)

	_, _, err := e.svc.List(context.Background(), "Lost", "", 1, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	orders, total, err := e.svc.List(context.Background(), models.OrderPending, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, orders, 1)
}

func TestListAdminOrders_SearchesOrderIDAndRecipient(t *testing.T) {
	e := newOrderEnv()
	ctx := context.Background()
	asha := seedOrder(e.f, e.fx, e.userID, models.MethodCOD, models.PaymentPending)
	ravi := seedOrder(e.f, e.fx, primitive.NewObjectID(), models.MethodCOD, models.PaymentPending)
	stored := e.f.orders.stored(ravi.OrderID)
	stored.ShippingAddress = models.ShippingAddress{Name: "Ravi Kumar", Email: "ravi@example.com", Phone: "9876543210"}

	tests := []struct {
		search string
		want   []string
	}{
		{"", []string{asha.OrderID, ravi.OrderID}},
		{"ravi", []string{ravi.OrderID}},
		{"ASHA@EXAMPLE", []string{asha.OrderID}},
		{"98765", []string{ravi.OrderID}},
		{asha.OrderID, []string{asha.OrderID}},
		{"nobody", nil},
	}
	for _, tt := range tests {
		orders, total, err := e.svc.List(ctx, "", tt.search, 1, 10)
		require.NoError(t, err)
		got := []string{}
		for _, o := range orders {
			got = append(got, o.OrderID)
		}
		assert.ElementsMatch(t, tt.want, got, "search %q", tt.search)
		assert.Equal(t, int64(len(tt.want)), total, "search %q", tt.search)
	}
}
