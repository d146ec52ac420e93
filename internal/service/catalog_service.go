package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"

	"stc_back_end/internal/cache"
	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
)

// ProductCache est le cache Redis des fiches produit
type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product) error
	InvalidateProducts(ctx context.Context, ids ...string) error
}

// ProductIndex est l'index de recherche (Elasticsearch)
type ProductIndex interface {
	IndexProduct(ctx context.Context, p models.Product) error
	Search(ctx context.Context, query string, limit int) ([]primitive.ObjectID, error)
}

type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	cache      ProductCache
	index      ProductIndex
	sfg        singleflight.Group // évite les chargements concurrents d'une même fiche
}

func NewCatalogService(store *repository.Store, productCache ProductCache, index ProductIndex) *CatalogService {
	return &CatalogService{
		products:   store.Products,
		categories: store.Categories,
		users:      store.Users,
		cache:      productCache,
		index:      index,
	}
}

func (s *CatalogService) blockedCategories(ctx context.Context) ([]primitive.ObjectID, error) {
	return s.categories.BlockedIDs(ctx)
}

func (s *CatalogService) visible(ctx context.Context, p *models.Product) (bool, error) {
	if p.IsBlocked {
		return false, nil
	}
	cat, err := s.categories.GetByID(ctx, p.Category)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !cat.IsBlocked, nil
}

// Product retourne la fiche d'un produit visible (cache-aside Redis)
func (s *CatalogService) Product(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	key := id.Hex()
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		p, err := s.cache.GetProduct(ctx, key)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("⚠️ Lecture cache produit %s: %v", key, err)
		}

		p, err = s.products.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		ok, err := s.visible(ctx, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotFound
		}

		go func(p models.Product) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.cache.SetProduct(ctx, &p); err != nil {
				log.Printf("⚠️ Écriture cache produit %s: %v", p.ID.Hex(), err)
			}
		}(*p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product), nil
}

func (s *CatalogService) Quantity(ctx context.Context, id primitive.ObjectID) (int, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.Quantity, nil
}

func (s *CatalogService) List(ctx context.Context, page, limit int) ([]models.Product, int64, error) {
	return s.Filter(ctx, models.ProductFilter{Page: page, Limit: limit})
}

func (s *CatalogService) ByCategory(ctx context.Context, categoryID primitive.ObjectID, page, limit int) ([]models.Product, int64, error) {
	cat, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, 0, err
	}
	if cat.IsBlocked {
		return nil, 0, ErrNotFound
	}
	return s.Filter(ctx, models.ProductFilter{CategoryID: &categoryID, Page: page, Limit: limit})
}

// Filter applique les critères boutique sur les produits visibles
func (s *CatalogService) Filter(ctx context.Context, f models.ProductFilter) ([]models.Product, int64, error) {
	if f.MinPrice < 0 || f.MaxPrice < 0 || (f.MaxPrice > 0 && f.MinPrice > f.MaxPrice) {
		return nil, 0, invalid("fourchette de prix invalide")
	}
	blocked, err := s.blockedCategories(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.products.List(ctx, repository.ProductQuery{
		ProductFilter:     f,
		OnlyVisible:       true,
		ExcludeCategories: blocked,
	})
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.categories.ListVisible(ctx)
}

func (s *CatalogService) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	blocked, err := s.blockedCategories(ctx)
	if err != nil {
		return nil, err
	}
	return s.products.FilterOptions(ctx, blocked)
}

// Search passe par Elasticsearch et bascule sur une regex MongoDB s'il est indisponible.
// Pour un utilisateur connecté la recherche est ajoutée à son historique.
func (s *CatalogService) Search(ctx context.Context, userID *primitive.ObjectID, query string, page, limit int) ([]models.Product, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, invalid("terme de recherche requis")
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}

	products, total, err := s.searchIndex(ctx, query, page, limit)
	if err != nil {
		log.Printf("⚠️ Recherche Elastic indisponible, bascule MongoDB: %v", err)
		products, total, err = s.Filter(ctx, models.ProductFilter{Search: query, Page: page, Limit: limit})
		if err != nil {
			return nil, 0, err
		}
	}

	if userID != nil {
		entry := models.SearchEntry{Term: query, SearchOn: time.Now()}
		if len(products) > 0 {
			entry.Brand = products[0].Brand
			cat := products[0].Category
			entry.Category = &cat
		}
		if err := s.users.PushSearch(ctx, *userID, entry); err != nil {
			log.Printf("⚠️ Historique de recherche non enregistré: %v", err)
		}
	}
	return products, total, nil
}

// searchIndex récupère les ids par pertinence puis les fiches visibles dans MongoDB
func (s *CatalogService) searchIndex(ctx context.Context, query string, page, limit int) ([]models.Product, int64, error) {
	if s.index == nil {
		return nil, 0, ErrUnavailable
	}
	// une seule requête Elastic couvre toutes les pages jusqu'à la page demandée
	ids, err := s.index.Search(ctx, query, page*limit)
	if err != nil {
		return nil, 0, err
	}
	byID, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	blocked, err := s.blockedCategories(ctx)
	if err != nil {
		return nil, 0, err
	}
	hidden := make(map[primitive.ObjectID]bool, len(blocked))
	for _, id := range blocked {
		hidden[id] = true
	}

	ordered := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || p.IsBlocked || hidden[p.Category] {
			continue
		}
		ordered = append(ordered, *p)
	}
	total := int64(len(ordered))
	start := (page - 1) * limit
	if start >= len(ordered) {
		return []models.Product{}, total, nil
	}
	end := start + limit
	if end > len(ordered) {
		end = len(ordered)
	}
	return ordered[start:end], total, nil
}
