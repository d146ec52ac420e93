package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
)

// ImageStorage range les images produit (MinIO)
type ImageStorage interface {
	Upload(ctx context.Context, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectURL string) error
}

type CategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ProductInput est le formulaire admin d'un produit
type ProductInput struct {
	ProductName     string           `json:"productName" binding:"required"`
	Brand           string           `json:"brand" binding:"required"`
	ModelNumber     string           `json:"modelNumber" binding:"required"`
	Processor       models.Processor `json:"processor" binding:"required"`
	RAM             models.RAM       `json:"ram" binding:"required"`
	Storage         models.Storage   `json:"storage" binding:"required"`
	Graphics        models.Graphics  `json:"graphics" binding:"required"`
	Display         models.Display   `json:"display" binding:"required"`
	OperatingSystem string           `json:"operatingSystem" binding:"required"`
	BatteryLife     string           `json:"batteryLife"`
	Weight          string           `json:"weight"`
	Ports           string           `json:"ports"`
	RegularPrice    float64          `json:"regularPrice"`
	Quantity        int              `json:"quantity"`
	Description     string           `json:"description" binding:"required"`
	Category        string           `json:"category" binding:"required"`
	Color           string           `json:"color" binding:"required"`
	Size            string           `json:"size"`
	Offer           float64          `json:"offer"`
}

type AdminCatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      ProductCache
	index      ProductIndex
	images     ImageStorage
}

func NewAdminCatalogService(store *repository.Store, productCache ProductCache, index ProductIndex, images ImageStorage) *AdminCatalogService {
	return &AdminCatalogService{
		products:   store.Products,
		categories: store.Categories,
		cache:      productCache,
		index:      index,
		images:     images,
	}
}

func validOffer(offer float64) error {
	if offer < 0 || offer > 100 {
		return invalid("l'offre doit être comprise entre 0 et 100")
	}
	return nil
}

func (s *AdminCatalogService) invalidate(ctx context.Context, ids ...primitive.ObjectID) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.Hex())
	}
	if err := s.cache.InvalidateProducts(ctx, keys...); err != nil {
		log.Printf("⚠️ Invalidation cache produits: %v", err)
	}
}

// reindex pousse la fiche dans Elasticsearch en arrière-plan
func (s *AdminCatalogService) reindex(p models.Product) {
	if s.index == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.index.IndexProduct(ctx, p); err != nil {
			log.Printf("⚠️ Indexation %s: %v", p.ProductName, err)
		}
	}()
}

//
// --- CATÉGORIES ---
//

func (s *AdminCatalogService) AddCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("le nom de la catégorie est obligatoire")
	}
	if _, err := s.categories.FindByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: la catégorie %s existe déjà", ErrDuplicate, name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	c := &models.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		IsListed:    true,
		Status:      "active",
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *AdminCatalogService) ListCategories(ctx context.Context, search string, page, limit int) ([]models.Category, int64, error) {
	return s.categories.List(ctx, search, page, limit)
}

func (s *AdminCatalogService) GetCategory(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return s.categories.GetByID(ctx, id)
}

func (s *AdminCatalogService) UpdateCategory(ctx context.Context, id primitive.ObjectID, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("le nom de la catégorie est obligatoire")
	}
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if other, err := s.categories.FindByName(ctx, name); err == nil && other.ID != id {
		return nil, fmt.Errorf("%w: la catégorie %s existe déjà", ErrDuplicate, name)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	c.Name = name
	c.Description = strings.TrimSpace(in.Description)
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetCategoryBlocked masque ou réaffiche la catégorie et tous ses produits
func (s *AdminCatalogService) SetCategoryBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) error {
	if err := s.categories.SetBlocked(ctx, id, blocked); err != nil {
		return err
	}
	products, err := s.products.ListByCategory(ctx, id)
	if err != nil {
		return err
	}
	ids := make([]primitive.ObjectID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	s.invalidate(ctx, ids...)
	return nil
}

// SetCategoryOffer recalcule le prix soldé de chaque produit de la catégorie
func (s *AdminCatalogService) SetCategoryOffer(ctx context.Context, id primitive.ObjectID, offer float64) (int, error) {
	if err := validOffer(offer); err != nil {
		return 0, err
	}
	if err := s.categories.SetOffer(ctx, id, offer); err != nil {
		return 0, err
	}
	products, err := s.products.ListByCategory(ctx, id)
	if err != nil {
		return 0, err
	}

	updated := 0
	ids := make([]primitive.ObjectID, 0, len(products))
	for _, p := range products {
		sale := models.SalePriceFor(p.RegularPrice, p.Offer, offer)
		if err := s.products.SetSalePrice(ctx, p.ID, sale); err != nil {
			return updated, fmt.Errorf("prix soldé de %s: %w", p.ProductName, err)
		}
		p.SalePrice = sale
		s.reindex(p)
		ids = append(ids, p.ID)
		updated++
	}
	s.invalidate(ctx, ids...)
	return updated, nil
}

//
// --- PRODUITS ---
//

func (s *AdminCatalogService) validateProduct(ctx context.Context, in *ProductInput) (*models.Category, error) {
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.ModelNumber = strings.TrimSpace(in.ModelNumber)
	switch {
	case in.ProductName == "" || in.ModelNumber == "" || strings.TrimSpace(in.Brand) == "":
		return nil, invalid("nom, marque et modèle sont obligatoires")
	case in.RegularPrice <= 0:
		return nil, invalid("le prix doit être supérieur à 0")
	case in.Quantity < 0:
		return nil, invalid("la quantité ne peut pas être négative")
	}
	if err := validOffer(in.Offer); err != nil {
		return nil, err
	}
	catID, err := primitive.ObjectIDFromHex(in.Category)
	if err != nil {
		return nil, invalid("catégorie invalide")
	}
	cat, err := s.categories.GetByID(ctx, catID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid("catégorie introuvable")
	}
	return cat, err
}

func applyProductInput(p *models.Product, in ProductInput, cat *models.Category) {
	p.ProductName = in.ProductName
	p.Brand = strings.TrimSpace(in.Brand)
	p.ModelNumber = in.ModelNumber
	p.Processor = in.Processor
	p.RAM = in.RAM
	p.Storage = in.Storage
	p.Graphics = in.Graphics
	p.Display = in.Display
	p.OperatingSystem = in.OperatingSystem
	p.BatteryLife = in.BatteryLife
	p.Weight = in.Weight
	p.Ports = in.Ports
	p.RegularPrice = in.RegularPrice
	p.Quantity = in.Quantity
	p.Description = in.Description
	p.Category = cat.ID
	p.Color = in.Color
	p.Size = in.Size
	p.Offer = in.Offer
	p.SalePrice = models.SalePriceFor(in.RegularPrice, in.Offer, cat.Offer)
	p.Status = models.StockStatus(in.Quantity)
}

func (s *AdminCatalogService) AddProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	cat, err := s.validateProduct(ctx, &in)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.FindByNameAndModel(ctx, in.ProductName, in.ModelNumber); err == nil {
		return nil, fmt.Errorf("%w: %s %s existe déjà", ErrDuplicate, in.ProductName, in.ModelNumber)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	p := &models.Product{ProductImage: []string{}}
	applyProductInput(p, in, cat)
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.reindex(*p)
	log.Printf("✅ Produit ajouté : %s (%s)", p.ProductName, p.ID.Hex())
	return p, nil
}

// ListProducts liste tout le catalogue, produits bloqués compris
func (s *AdminCatalogService) ListProducts(ctx context.Context, search string, page, limit int) ([]models.Product, int64, error) {
	return s.products.List(ctx, repository.ProductQuery{
		ProductFilter: models.ProductFilter{Search: search, Page: page, Limit: limit},
	})
}

func (s *AdminCatalogService) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *AdminCatalogService) UpdateProduct(ctx context.Context, id primitive.ObjectID, in ProductInput) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cat, err := s.validateProduct(ctx, &in)
	if err != nil {
		return nil, err
	}
	if other, err := s.products.FindByNameAndModel(ctx, in.ProductName, in.ModelNumber); err == nil && other.ID != id {
		return nil, fmt.Errorf("%w: %s %s existe déjà", ErrDuplicate, in.ProductName, in.ModelNumber)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	applyProductInput(p, in, cat)
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.ID)
	s.reindex(*p)
	return p, nil
}

// ToggleBlock inverse la visibilité du produit et retourne le nouvel état
func (s *AdminCatalogService) ToggleBlock(ctx context.Context, id primitive.ObjectID) (bool, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	p.IsBlocked = !p.IsBlocked
	if err := s.products.SetBlocked(ctx, id, p.IsBlocked); err != nil {
		return false, err
	}
	s.invalidate(ctx, id)
	s.reindex(*p)
	return p.IsBlocked, nil
}

func (s *AdminCatalogService) SetProductOffer(ctx context.Context, id primitive.ObjectID, offer float64) (*models.Product, error) {
	if err := validOffer(offer); err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	catOffer := 0.0
	if cat, err := s.categories.GetByID(ctx, p.Category); err == nil {
		catOffer = cat.Offer
	}
	p.Offer = offer
	p.SalePrice = models.SalePriceFor(p.RegularPrice, offer, catOffer)
	if err := s.products.SetPricing(ctx, id, p.Offer, p.SalePrice); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.reindex(*p)
	return p, nil
}

func (s *AdminCatalogService) AddImage(ctx context.Context, id primitive.ObjectID, r io.Reader, size int64, contentType string) (string, error) {
	if s.images == nil {
		return "", ErrUnavailable
	}
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return "", err
	}
	url, err := s.images.Upload(ctx, r, size, contentType)
	if err != nil {
		return "", err
	}
	if err := s.products.AddImage(ctx, id, url); err != nil {
		return "", err
	}
	s.invalidate(ctx, id)
	return url, nil
}

func (s *AdminCatalogService) RemoveImage(ctx context.Context, id primitive.ObjectID, url string) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	found := false
	for _, img := range p.ProductImage {
		if img == url {
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	if err := s.products.RemoveImage(ctx, id, url); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	if s.images != nil {
		if err := s.images.Delete(ctx, url); err != nil {
			log.Printf("⚠️ Image %s non supprimée du stockage: %v", url, err)
		}
	}
	return nil
}
