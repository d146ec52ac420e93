package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/cache"
	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
	"stc_back_end/internal/services"
	"stc_back_end/internal/utils"
)

// fakes regroupe les dépôts en mémoire derrière un repository.Store
type fakes struct {
	users      *MockUserRepository
	categories *MockCategoryRepository
	products   *MockProductRepository
	carts      *MockCartRepository
	orders     *MockOrderRepository
	coupons    *MockCouponRepository
	wallets    *MockWalletRepository
	addresses  *MockAddressRepository
	wishlists  *MockWishlistRepository
	reports    *MockReportRepository
}

func newFakes() (*fakes, *repository.Store) {
	f := &fakes{
		users:      &MockUserRepository{byID: map[primitive.ObjectID]*models.User{}},
		categories: &MockCategoryRepository{byID: map[primitive.ObjectID]*models.Category{}},
		products:   &MockProductRepository{byID: map[primitive.ObjectID]*models.Product{}},
		carts:      &MockCartRepository{byUser: map[primitive.ObjectID]*models.Cart{}},
		orders:     &MockOrderRepository{byID: map[string]*models.Order{}},
		coupons:    &MockCouponRepository{byID: map[primitive.ObjectID]*models.Coupon{}},
		wallets:    &MockWalletRepository{byUser: map[primitive.ObjectID]*models.Wallet{}},
		addresses:  &MockAddressRepository{byID: map[primitive.ObjectID]*models.Address{}},
		wishlists:  &MockWishlistRepository{byUser: map[primitive.ObjectID]*models.Wishlist{}},
		reports:    &MockReportRepository{},
	}
	store := &repository.Store{
		Users:      f.users,
		Categories: f.categories,
		Products:   f.products,
		Carts:      f.carts,
		Orders:     f.orders,
		Reports:    f.reports,
		Coupons:    f.coupons,
		Wallets:    f.wallets,
		Addresses:  f.addresses,
		Wishlists:  f.wishlists,
	}
	return f, store
}

// WithTransaction rejoue la sémantique tout ou rien : si fn échoue, commandes,
// portefeuilles et stocks reviennent à leur état d'avant l'appel
func (f *fakes) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	orders := make(map[string]*models.Order, len(f.orders.byID))
	for id, o := range f.orders.byID {
		orders[id] = cloneOrder(o)
	}
	wallets := make(map[primitive.ObjectID]models.Wallet, len(f.wallets.byUser))
	for id, w := range f.wallets.byUser {
		cp := *w
		cp.Transactions = append([]models.WalletTransaction(nil), w.Transactions...)
		wallets[id] = cp
	}
	f.products.mu.Lock()
	products := make(map[primitive.ObjectID]models.Product, len(f.products.byID))
	for id, p := range f.products.byID {
		products[id] = *p
	}
	f.products.mu.Unlock()

	err := fn(ctx)
	if err == nil {
		return nil
	}

	f.orders.byID = orders
	for id, w := range f.wallets.byUser {
		if snap, ok := wallets[id]; ok {
			*w = snap
		} else {
			delete(f.wallets.byUser, id)
		}
	}
	f.products.mu.Lock()
	for id, p := range f.products.byID {
		if snap, ok := products[id]; ok {
			*p = snap
		}
	}
	f.products.mu.Unlock()
	return err
}

func newTestCache(t *testing.T) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client), mr
}

func paginate(page, limit, total int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}

//
// --- Users ---
//

type MockUserRepository struct {
	byID     map[primitive.ObjectID]*models.User
	searches []models.SearchEntry
}

func (m *MockUserRepository) add(u *models.User) *models.User {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.byID[u.ID] = u
	return u
}

func (m *MockUserRepository) Create(_ context.Context, u *models.User) error {
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	u.Email = strings.ToLower(u.Email)
	m.add(u)
	return nil
}

func (m *MockUserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetByResetToken(_ context.Context, token string) (*models.User, error) {
	for _, u := range m.byID {
		if u.ResetPasswordToken != "" && u.ResetPasswordToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) LinkGoogle(_ context.Context, id primitive.ObjectID, googleID, avatar string) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.GoogleID, u.IsVerified = googleID, true
	if avatar != "" {
		u.Avatar = avatar
	}
	return nil
}

func (m *MockUserRepository) UpdateProfile(_ context.Context, id primitive.ObjectID, username, phone string) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Username, u.Phone = username, phone
	return nil
}

func (m *MockUserRepository) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	u.ResetPasswordToken, u.ResetPasswordExpires = "", nil
	return nil
}

func (m *MockUserRepository) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetPasswordToken, u.ResetPasswordExpires = token, &expires
	return nil
}

func (m *MockUserRepository) SetBlocked(_ context.Context, id primitive.ObjectID, blocked bool) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsBlocked = blocked
	return nil
}

func (m *MockUserRepository) AddAppliedCoupon(_ context.Context, id, couponID primitive.ObjectID, at time.Time) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.AppliedCoupons = append(u.AppliedCoupons, models.AppliedCoupon{CouponID: couponID, AppliedOn: at})
	return nil
}

func (m *MockUserRepository) PushSearch(_ context.Context, _ primitive.ObjectID, entry models.SearchEntry) error {
	m.searches = append(m.searches, entry)
	return nil
}

func (m *MockUserRepository) ListCustomers(_ context.Context, search string, page, limit int) ([]models.User, int64, error) {
	out := []models.User{}
	for _, u := range m.byID {
		if u.IsAdmin {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Username+" "+u.Email), strings.ToLower(search)) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	start, end := paginate(page, limit, len(out))
	return out[start:end], int64(len(out)), nil
}

//
// --- Categories ---
//

type MockCategoryRepository struct {
	byID map[primitive.ObjectID]*models.Category
}

func (m *MockCategoryRepository) add(c *models.Category) *models.Category {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.byID[c.ID] = c
	return c
}

func (m *MockCategoryRepository) Create(_ context.Context, c *models.Category) error {
	m.add(c)
	return nil
}

func (m *MockCategoryRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCategoryRepository) FindByName(_ context.Context, name string) (*models.Category, error) {
	for _, c := range m.byID {
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockCategoryRepository) Update(_ context.Context, c *models.Category) error {
	if _, ok := m.byID[c.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *MockCategoryRepository) SetBlocked(_ context.Context, id primitive.ObjectID, blocked bool) error {
	c, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsBlocked = blocked
	return nil
}

func (m *MockCategoryRepository) SetOffer(_ context.Context, id primitive.ObjectID, offer float64) error {
	c, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Offer = offer
	return nil
}

func (m *MockCategoryRepository) List(_ context.Context, search string, page, limit int) ([]models.Category, int64, error) {
	out := []models.Category{}
	for _, c := range m.byID {
		if search == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	start, end := paginate(page, limit, len(out))
	return out[start:end], int64(len(out)), nil
}

func (m *MockCategoryRepository) ListVisible(_ context.Context) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range m.byID {
		if c.IsListed && !c.IsBlocked {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *MockCategoryRepository) BlockedIDs(_ context.Context) ([]primitive.ObjectID, error) {
	ids := []primitive.ObjectID{}
	for id, c := range m.byID {
		if c.IsBlocked {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

//
// --- Products ---
//

type MockProductRepository struct {
	mu       sync.Mutex
	byID     map[primitive.ObjectID]*models.Product
	lastList repository.ProductQuery
}

func (m *MockProductRepository) add(p *models.Product) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.byID[p.ID] = p
	return p
}

func (m *MockProductRepository) stock(id primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Quantity
}

func (m *MockProductRepository) Create(_ context.Context, p *models.Product) error {
	m.add(p)
	return nil
}

func (m *MockProductRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProductRepository) GetByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[primitive.ObjectID]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *MockProductRepository) FindByNameAndModel(_ context.Context, name, model string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if strings.EqualFold(p.ProductName, name) && strings.EqualFold(p.ModelNumber, model) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockProductRepository) Update(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *MockProductRepository) with(id primitive.ObjectID, fn func(p *models.Product)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(p)
	return nil
}

func (m *MockProductRepository) SetBlocked(_ context.Context, id primitive.ObjectID, blocked bool) error {
	return m.with(id, func(p *models.Product) { p.IsBlocked = blocked })
}

func (m *MockProductRepository) SetPricing(_ context.Context, id primitive.ObjectID, offer, salePrice float64) error {
	return m.with(id, func(p *models.Product) { p.Offer, p.SalePrice = offer, salePrice })
}

func (m *MockProductRepository) SetSalePrice(_ context.Context, id primitive.ObjectID, salePrice float64) error {
	return m.with(id, func(p *models.Product) { p.SalePrice = salePrice })
}

func (m *MockProductRepository) ListByCategory(_ context.Context, categoryID primitive.ObjectID) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.byID {
		if p.Category == categoryID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MockProductRepository) List(_ context.Context, q repository.ProductQuery) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = q
	excluded := map[primitive.ObjectID]bool{}
	for _, id := range q.ExcludeCategories {
		excluded[id] = true
	}
	out := []models.Product{}
	for _, p := range m.byID {
		if q.OnlyVisible && (p.IsBlocked || excluded[p.Category]) {
			continue
		}
		if q.CategoryID != nil && p.Category != *q.CategoryID {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(p.ProductName+" "+p.Brand), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	start, end := paginate(q.Page, q.Limit, len(out))
	return out[start:end], int64(len(out)), nil
}

func (m *MockProductRepository) FilterOptions(_ context.Context, _ []primitive.ObjectID) (*models.FilterOptions, error) {
	return &models.FilterOptions{}, nil
}

func (m *MockProductRepository) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Quantity < qty {
		return repository.ErrInsufficientStock
	}
	p.Quantity -= qty
	p.Status = models.StockStatus(p.Quantity)
	return nil
}

func (m *MockProductRepository) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	return m.with(id, func(p *models.Product) {
		p.Quantity += qty
		p.Status = models.StockStatus(p.Quantity)
	})
}

func (m *MockProductRepository) AddImage(_ context.Context, id primitive.ObjectID, url string) error {
	return m.with(id, func(p *models.Product) { p.ProductImage = append(p.ProductImage, url) })
}

func (m *MockProductRepository) RemoveImage(_ context.Context, id primitive.ObjectID, url string) error {
	return m.with(id, func(p *models.Product) {
		kept := p.ProductImage[:0]
		for _, img := range p.ProductImage {
			if img != url {
				kept = append(kept, img)
			}
		}
		p.ProductImage = kept
	})
}

//
// --- Carts ---
//

type MockCartRepository struct {
	byUser map[primitive.ObjectID]*models.Cart
}

func (m *MockCartRepository) Get(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	c, ok := m.byUser[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp, nil
}

func (m *MockCartRepository) Save(_ context.Context, cart *models.Cart) error {
	cp := *cart
	cp.Items = append([]models.CartItem(nil), cart.Items...)
	m.byUser[cart.UserID] = &cp
	return nil
}

func (m *MockCartRepository) Delete(_ context.Context, userID primitive.ObjectID) error {
	if _, ok := m.byUser[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byUser, userID)
	return nil
}

//
// --- Orders ---
//

type MockOrderRepository struct {
	byID      map[string]*models.Order
	CreateErr error
	// UpdateErr est renvoyée une seule fois par Update
	UpdateErr error
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.OrderItems = make([]models.OrderItem, len(o.OrderItems))
	for i, it := range o.OrderItems {
		if it.ReturnRequest != nil {
			rr := *it.ReturnRequest
			it.ReturnRequest = &rr
		}
		cp.OrderItems[i] = it
	}
	return &cp
}

func (m *MockOrderRepository) add(o *models.Order) *models.Order {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	m.byID[o.OrderID] = cloneOrder(o)
	return o
}

func (m *MockOrderRepository) stored(orderID string) *models.Order {
	return m.byID[orderID]
}

func (m *MockOrderRepository) Create(_ context.Context, o *models.Order) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.add(o)
	return nil
}

func (m *MockOrderRepository) GetByOrderID(_ context.Context, orderID string) (*models.Order, error) {
	o, ok := m.byID[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *MockOrderRepository) GetByPaymentIntent(_ context.Context, intentID string) (*models.Order, error) {
	for _, o := range m.byID {
		if o.PaymentIntentID == intentID {
			return cloneOrder(o), nil
		}
	}
	return nil, repository.ErrNotFound
}

// Update reproduit le contrôle de version du dépôt Mongo
func (m *MockOrderRepository) Update(_ context.Context, o *models.Order) error {
	if err := m.UpdateErr; err != nil {
		m.UpdateErr = nil
		return err
	}
	cur, ok := m.byID[o.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != o.Version {
		return repository.ErrConflict
	}
	o.Version++
	m.byID[o.OrderID] = cloneOrder(o)
	return nil
}

func (m *MockOrderRepository) ListByUser(_ context.Context, userID primitive.ObjectID, page, limit int) ([]models.Order, int64, error) {
	out := []models.Order{}
	for _, o := range m.byID {
		if o.User == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	start, end := paginate(page, limit, len(out))
	return out[start:end], int64(len(out)), nil
}

// matchesOrderSearch reproduit le filtre regex insensible à la casse du dépôt
func matchesOrderSearch(o *models.Order, search string) bool {
	s := strings.ToLower(strings.TrimSpace(search))
	if s == "" {
		return true
	}
	for _, field := range []string{o.OrderID, o.ShippingAddress.Name, o.ShippingAddress.Email, o.ShippingAddress.Phone} {
		if strings.Contains(strings.ToLower(field), s) {
			return true
		}
	}
	return false
}

func (m *MockOrderRepository) List(_ context.Context, status, search string, page, limit int) ([]models.Order, int64, error) {
	out := []models.Order{}
	for _, o := range m.byID {
		if (status == "" || o.OrderStatus == status) && matchesOrderSearch(o, search) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	start, end := paginate(page, limit, len(out))
	return out[start:end], int64(len(out)), nil
}

func (m *MockOrderRepository) FindStalePending(_ context.Context, method string, placedBefore time.Time) ([]models.Order, error) {
	out := []models.Order{}
	for _, o := range m.byID {
		if o.PaymentMethod == method && o.PaymentStatus == models.PaymentPending &&
			o.OrderStatus != models.OrderCancelled && o.PlacedAt.Before(placedBefore) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (m *MockOrderRepository) ListInRange(_ context.Context, r models.DateRange, search string, page, limit int) ([]models.Order, int64, error) {
	out := []models.Order{}
	for _, o := range m.byID {
		if o.OrderStatus != models.OrderCancelled && !o.PlacedAt.Before(r.Start) && o.PlacedAt.Before(r.End) &&
			matchesOrderSearch(o, search) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	start, end := paginate(page, limit, len(out))
	return out[start:end], int64(len(out)), nil
}

//
// --- Reports ---
//

type MockReportRepository struct {
	mu      sync.Mutex
	Err     error
	groupBy string
}

func (m *MockReportRepository) Metrics(_ context.Context, _ models.DateRange) (models.SalesMetrics, error) {
	return models.SalesMetrics{TotalSales: 1000, TotalOrders: 2}, m.Err
}

func (m *MockReportRepository) CategorySales(_ context.Context, _ models.DateRange) ([]models.CategorySales, error) {
	return []models.CategorySales{{CategoryName: "Gaming", Quantity: 2}}, nil
}

func (m *MockReportRepository) BrandSales(_ context.Context, _ models.DateRange) ([]models.BrandSales, error) {
	return []models.BrandSales{{Brand: "Asus", Quantity: 2}}, nil
}

func (m *MockReportRepository) SalesTrend(_ context.Context, _ models.DateRange, groupBy string) ([]models.TrendPoint, error) {
	m.mu.Lock()
	m.groupBy = groupBy
	m.mu.Unlock()
	return []models.TrendPoint{}, nil
}

func (m *MockReportRepository) TopProducts(_ context.Context, _ models.DateRange, limit int) ([]models.TopProduct, error) {
	return make([]models.TopProduct, 0, limit), nil
}

func (m *MockReportRepository) CouponUsage(_ context.Context, _ models.DateRange) ([]models.CouponUsage, error) {
	return []models.CouponUsage{}, nil
}

//
// --- Coupons ---
//

type MockCouponRepository struct {
	byID map[primitive.ObjectID]*models.Coupon
	// BeforeAddUser s'exécute une fois, juste avant l'écriture conditionnelle
	BeforeAddUser func(c *models.Coupon)
}

func (m *MockCouponRepository) add(c *models.Coupon) *models.Coupon {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.byID[c.ID] = c
	return c
}

func (m *MockCouponRepository) Create(_ context.Context, c *models.Coupon) error {
	m.add(c)
	return nil
}

func (m *MockCouponRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCouponRepository) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	for _, c := range m.byID {
		if c.CouponCode == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockCouponRepository) Update(_ context.Context, c *models.Coupon) error {
	if _, ok := m.byID[c.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *MockCouponRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *MockCouponRepository) List(_ context.Context, page, limit int) ([]models.Coupon, int64, error) {
	out := []models.Coupon{}
	for _, c := range m.byID {
		out = append(out, *c)
	}
	start, end := paginate(page, limit, len(out))
	return out[start:end], int64(len(out)), nil
}

func (m *MockCouponRepository) ListUsable(_ context.Context, now time.Time, amount float64) ([]models.Coupon, error) {
	out := []models.Coupon{}
	for _, c := range m.byID {
		if c.InWindow(now) && c.MinPurchaseAmount <= amount {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *MockCouponRepository) AddUser(_ context.Context, id, userID primitive.ObjectID, at time.Time) error {
	c, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if hook := m.BeforeAddUser; hook != nil {
		m.BeforeAddUser = nil
		hook(c)
	}
	if c.UsedBy(userID) {
		return repository.ErrDuplicate
	}
	c.Users = append(c.Users, models.CouponUser{UserID: userID, AppliedOn: at})
	return nil
}

func (m *MockCouponRepository) RemoveUser(_ context.Context, id, userID primitive.ObjectID) error {
	c, ok := m.byID[id]
	if !ok {
		return nil
	}
	kept := c.Users[:0]
	for _, u := range c.Users {
		if u.UserID != userID {
			kept = append(kept, u)
		}
	}
	c.Users = kept
	return nil
}

//
// --- Wallets ---
//

type MockWalletRepository struct {
	byUser map[primitive.ObjectID]*models.Wallet
	// CreditErr est renvoyée une seule fois par Credit
	CreditErr error
}

func (m *MockWalletRepository) balance(userID primitive.ObjectID) float64 {
	if w, ok := m.byUser[userID]; ok {
		return w.Balance
	}
	return 0
}

func (m *MockWalletRepository) Get(_ context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	w, ok := m.byUser[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	cp.Transactions = append([]models.WalletTransaction(nil), w.Transactions...)
	return &cp, nil
}

func (m *MockWalletRepository) Credit(ctx context.Context, userID primitive.ObjectID, amount float64, description string) (*models.Wallet, error) {
	if err := m.CreditErr; err != nil {
		m.CreditErr = nil
		return nil, err
	}
	w, ok := m.byUser[userID]
	if !ok {
		w = &models.Wallet{ID: primitive.NewObjectID(), UserID: userID}
		m.byUser[userID] = w
	}
	w.Balance += amount
	w.Transactions = append(w.Transactions, models.WalletTransaction{
		Type: models.TransactionCredit, Amount: amount, Description: description, Date: time.Now(),
	})
	return m.Get(ctx, userID)
}

func (m *MockWalletRepository) Debit(ctx context.Context, userID primitive.ObjectID, amount float64, description string) (*models.Wallet, error) {
	w, ok := m.byUser[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if w.Balance < amount {
		return nil, repository.ErrInsufficientBalance
	}
	w.Balance -= amount
	w.Transactions = append(w.Transactions, models.WalletTransaction{
		Type: models.TransactionDebit, Amount: amount, Description: description, Date: time.Now(),
	})
	return m.Get(ctx, userID)
}

//
// --- Addresses ---
//

type MockAddressRepository struct {
	byID map[primitive.ObjectID]*models.Address
	seq  int
}

func (m *MockAddressRepository) Create(_ context.Context, a *models.Address) error {
	m.seq++
	a.ID = primitive.NewObjectID()
	// horodatage strictement croissant pour un tri stable
	a.CreatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *MockAddressRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.Address, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAddressRepository) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	out := []models.Address{}
	for _, a := range m.byID {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockAddressRepository) CountByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var n int64
	for _, a := range m.byID {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MockAddressRepository) Update(_ context.Context, a *models.Address) error {
	cur, ok := m.byID[a.ID]
	if !ok || cur.UserID != a.UserID {
		return repository.ErrNotFound
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *MockAddressRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *MockAddressRepository) SetDefault(_ context.Context, userID, id primitive.ObjectID) error {
	target, ok := m.byID[id]
	if !ok || target.UserID != userID {
		return repository.ErrNotFound
	}
	for _, a := range m.byID {
		if a.UserID == userID {
			a.IsDefault = a.ID == id
		}
	}
	return nil
}

//
// --- Wishlists ---
//

type MockWishlistRepository struct {
	byUser map[primitive.ObjectID]*models.Wishlist
	clock  time.Time
}

func (m *MockWishlistRepository) Get(_ context.Context, userID primitive.ObjectID) (*models.Wishlist, error) {
	w, ok := m.byUser[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	cp.Products = append([]models.WishlistItem(nil), w.Products...)
	return &cp, nil
}

func (m *MockWishlistRepository) Add(_ context.Context, userID, productID primitive.ObjectID) error {
	w, ok := m.byUser[userID]
	if !ok {
		w = &models.Wishlist{ID: primitive.NewObjectID(), UserID: userID}
		m.byUser[userID] = w
	}
	for _, it := range w.Products {
		if it.ProductID == productID {
			return repository.ErrDuplicate
		}
	}
	if m.clock.IsZero() {
		m.clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	m.clock = m.clock.Add(time.Minute)
	w.Products = append(w.Products, models.WishlistItem{ProductID: productID, AddedOn: m.clock})
	return nil
}

func (m *MockWishlistRepository) Remove(_ context.Context, userID, productID primitive.ObjectID) error {
	w, ok := m.byUser[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for i, it := range w.Products {
		if it.ProductID == productID {
			w.Products = append(w.Products[:i], w.Products[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockWishlistRepository) Contains(_ context.Context, userID, productID primitive.ObjectID) (bool, error) {
	w, ok := m.byUser[userID]
	if !ok {
		return false, nil
	}
	for _, it := range w.Products {
		if it.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

//
// --- Adaptateurs externes ---
//

// MockGateway implements PaymentGateway for testing
type MockGateway struct {
	Intent    *services.PaymentIntent
	CreateErr error
	GetErr    error
	Created   []float64
}

func (m *MockGateway) CreateIntent(_ context.Context, amount float64, _ map[string]string) (*services.PaymentIntent, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.Created = append(m.Created, amount)
	if m.Intent != nil {
		return m.Intent, nil
	}
	return &services.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret", Status: "requires_payment_method", Amount: services.MinorUnits(amount)}, nil
}

func (m *MockGateway) GetIntent(_ context.Context, id string) (*services.PaymentIntent, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Intent != nil {
		return m.Intent, nil
	}
	return &services.PaymentIntent{ID: id, Status: "processing"}, nil
}

// MockPublisher enregistre les événements diffusés
type MockPublisher struct {
	mu     sync.Mutex
	Events []models.OrderEvent
}

func (m *MockPublisher) Publish(evt models.OrderEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, evt)
}

func (m *MockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.Type)
	}
	return out
}

// MockMailer garde les emails envoyés
type MockMailer struct {
	mu   sync.Mutex
	Sent []sentMail
	Err  error
}

type sentMail struct {
	To, Subject, Body string
}

func (m *MockMailer) Send(_ context.Context, to, subject, htmlBody string, _ ...utils.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (m *MockMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

func (m *MockMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sent[len(m.Sent)-1]
}

// MockProductCache implements ProductCache for testing
type MockProductCache struct {
	mu          sync.Mutex
	items       map[string]models.Product
	Invalidated []string
}

func newMockProductCache() *MockProductCache {
	return &MockProductCache{items: map[string]models.Product{}}
}

func (m *MockProductCache) GetProduct(_ context.Context, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &p, nil
}

func (m *MockProductCache) SetProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ID.Hex()] = *p
	return nil
}

func (m *MockProductCache) InvalidateProducts(_ context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.items, id)
	}
	m.Invalidated = append(m.Invalidated, ids...)
	return nil
}

func (m *MockProductCache) invalidated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Invalidated...)
}

// MockIndex implements ProductIndex for testing
type MockIndex struct {
	mu        sync.Mutex
	Hits      []primitive.ObjectID
	SearchErr error
	Indexed   []string
}

func (m *MockIndex) IndexProduct(_ context.Context, p models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Indexed = append(m.Indexed, p.ID.Hex())
	return nil
}

func (m *MockIndex) Search(_ context.Context, _ string, _ int) ([]primitive.ObjectID, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.Hits, nil
}

func (m *MockIndex) indexedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Indexed)
}

// MockImageStorage implements ImageStorage for testing
type MockImageStorage struct {
	Uploaded []string
	Deleted  []string
	Err      error
}

func (m *MockImageStorage) Upload(_ context.Context, r io.Reader, _ int64, contentType string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "http://minio.local/products/" + primitive.NewObjectID().Hex() + "." + strings.TrimPrefix(contentType, "image/")
	m.Uploaded = append(m.Uploaded, url)
	return url, nil
}

func (m *MockImageStorage) Delete(_ context.Context, url string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Deleted = append(m.Deleted, url)
	return nil
}

var errBoom = errors.New("boom")

//
// --- Jeux de données ---
//

type catalogFixture struct {
	category *models.Category
	rog      *models.Product
	legion   *models.Product
}

// seedCatalog crée une catégorie et deux portables : ROG 1000/900 (10 en stock), Legion 500/500 (3 en stock)
func seedCatalog(f *fakes) catalogFixture {
	cat := f.categories.add(&models.Category{Name: "Gaming", IsListed: true, Status: "active"})
	rog := f.products.add(&models.Product{
		ProductName: "ROG Strix", Brand: "Asus", ModelNumber: "G15",
		RegularPrice: 1000, SalePrice: 900, Quantity: 10, Category: cat.ID,
		Status: models.ProductAvailable, ProductImage: []string{"http://img/rog.png"},
	})
	legion := f.products.add(&models.Product{
		ProductName: "Legion", Brand: "Lenovo", ModelNumber: "5i",
		RegularPrice: 500, SalePrice: 500, Quantity: 3, Category: cat.ID,
		Status: models.ProductAvailable,
	})
	return catalogFixture{category: cat, rog: rog, legion: legion}
}

// seedOrder enregistre une commande de deux lignes (2 x 900 + 1 x 500) avec 100 de coupon
func seedOrder(f *fakes, fx catalogFixture, userID primitive.ObjectID, method, payment string) *models.Order {
	placed := time.Now().Add(-time.Hour)
	o := &models.Order{
		User:            userID,
		OrderID:         models.NewOrderID(placed) + primitive.NewObjectID().Hex()[:4],
		PaymentMethod:   method,
		PaymentStatus:   payment,
		OrderStatus:     models.OrderPending,
		OrderedAmount:   2500,
		TotalAmount:     2200,
		PayableAmount:   2200,
		CouponCode:      "SAVE100",
		CouponDiscount:  100,
		ShippingFee:     models.ShippingFee,
		PlacedAt:        placed,
		DeliveryBy:      placed.Add(models.DeliveryDelay),
		ShippingAddress: models.ShippingAddress{Name: "Asha", Email: "asha@example.com"},
		OrderItems: []models.OrderItem{
			{Product: fx.rog.ID, ProductName: fx.rog.ProductName, Quantity: 2, Price: 900, TotalPrice: 1800,
				OrderStatus: models.OrderPending, PaymentStatus: payment},
			{Product: fx.legion.ID, ProductName: fx.legion.ProductName, Quantity: 1, Price: 500, TotalPrice: 500,
				OrderStatus: models.OrderPending, PaymentStatus: payment},
		},
	}
	return f.orders.add(o)
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
}
