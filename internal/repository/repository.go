package repository

import (
	"context"
	"errors"
	"time"

	"stc_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound            = errors.New("document introuvable")
	ErrDuplicate           = errors.New("document déjà existant")
	ErrConflict            = errors.New("document modifié entre-temps")
	ErrInsufficientStock   = errors.New("stock insuffisant")
	ErrInsufficientBalance = errors.New("solde insuffisant")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
	LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID, avatar string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, username, phone string) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error
	SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) error
	AddAppliedCoupon(ctx context.Context, id, couponID primitive.ObjectID, at time.Time) error
	PushSearch(ctx context.Context, id primitive.ObjectID, entry models.SearchEntry) error
	ListCustomers(ctx context.Context, search string, page, limit int) ([]models.User, int64, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) error
	SetOffer(ctx context.Context, id primitive.ObjectID, offer float64) error
	List(ctx context.Context, search string, page, limit int) ([]models.Category, int64, error)
	ListVisible(ctx context.Context) ([]models.Category, error)
	BlockedIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// ProductQuery combine les critères boutique et les exclusions de visibilité
type ProductQuery struct {
	models.ProductFilter
	OnlyVisible       bool
	ExcludeCategories []primitive.ObjectID
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error)
	FindByNameAndModel(ctx context.Context, name, model string) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) error
	SetPricing(ctx context.Context, id primitive.ObjectID, offer, salePrice float64) error
	SetSalePrice(ctx context.Context, id primitive.ObjectID, salePrice float64) error
	ListByCategory(ctx context.Context, categoryID primitive.ObjectID) ([]models.Product, error)
	List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error)
	FilterOptions(ctx context.Context, excludeCategories []primitive.ObjectID) (*models.FilterOptions, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	AddImage(ctx context.Context, id primitive.ObjectID, url string) error
	RemoveImage(ctx context.Context, id primitive.ObjectID, url string) error
}

type CartRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	GetByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error)
	// Update remplace la commande si sa version n'a pas bougé, sinon ErrConflict
	Update(ctx context.Context, o *models.Order) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.Order, int64, error)
	// List et ListInRange acceptent une recherche sur orderId et le nom, l'email
	// ou le téléphone de livraison
	List(ctx context.Context, status, search string, page, limit int) ([]models.Order, int64, error)
	FindStalePending(ctx context.Context, method string, placedBefore time.Time) ([]models.Order, error)
	ListInRange(ctx context.Context, r models.DateRange, search string, page, limit int) ([]models.Order, int64, error)
}

type ReportRepository interface {
	Metrics(ctx context.Context, r models.DateRange) (models.SalesMetrics, error)
	CategorySales(ctx context.Context, r models.DateRange) ([]models.CategorySales, error)
	BrandSales(ctx context.Context, r models.DateRange) ([]models.BrandSales, error)
	SalesTrend(ctx context.Context, r models.DateRange, groupBy string) ([]models.TrendPoint, error)
	TopProducts(ctx context.Context, r models.DateRange, limit int) ([]models.TopProduct, error)
	CouponUsage(ctx context.Context, r models.DateRange) ([]models.CouponUsage, error)
}

type CouponRepository interface {
	Create(ctx context.Context, c *models.Coupon) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error)
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	Update(ctx context.Context, c *models.Coupon) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, page, limit int) ([]models.Coupon, int64, error)
	ListUsable(ctx context.Context, now time.Time, amount float64) ([]models.Coupon, error)
	// AddUser est conditionnel : ErrDuplicate si l'utilisateur figure déjà dans users
	AddUser(ctx context.Context, id, userID primitive.ObjectID, at time.Time) error
	RemoveUser(ctx context.Context, id, userID primitive.ObjectID) error
}

type WalletRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error)
	// Credit crée le portefeuille au besoin
	Credit(ctx context.Context, userID primitive.ObjectID, amount float64, description string) (*models.Wallet, error)
	// Debit échoue avec ErrInsufficientBalance sans rien modifier
	Debit(ctx context.Context, userID primitive.ObjectID, amount float64, description string) (*models.Wallet, error)
}

type AddressRepository interface {
	Create(ctx context.Context, a *models.Address) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Address, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error)
	CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Update(ctx context.Context, a *models.Address) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	SetDefault(ctx context.Context, userID, id primitive.ObjectID) error
}

type WishlistRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Wishlist, error)
	Add(ctx context.Context, userID, productID primitive.ObjectID) error
	Remove(ctx context.Context, userID, productID primitive.ObjectID) error
	Contains(ctx context.Context, userID, productID primitive.ObjectID) (bool, error)
}

// Store regroupe les dépôts Mongo de l'application
type Store struct {
	Users      UserRepository
	Categories CategoryRepository
	Products   ProductRepository
	Carts      CartRepository
	Orders     OrderRepository
	Reports    ReportRepository
	Coupons    CouponRepository
	Wallets    WalletRepository
	Addresses  AddressRepository
	Wishlists  WishlistRepository

	db *mongo.Database
	tx txSupport
}

func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users:      &userRepository{collection: db.Collection("users")},
		Categories: &categoryRepository{collection: db.Collection("categories")},
		Products:   &productRepository{collection: db.Collection("products")},
		Carts:      &cartRepository{collection: db.Collection("carts")},
		Orders:     &orderRepository{collection: db.Collection("orders")},
		Reports:    &reportRepository{orders: db.Collection("orders")},
		Coupons:    &couponRepository{collection: db.Collection("coupons")},
		Wallets:    &walletRepository{collection: db.Collection("wallets")},
		Addresses:  &addressRepository{collection: db.Collection("addresses")},
		Wishlists:  &wishlistRepository{collection: db.Collection("wishlists")},
		db:         db,
	}
}
