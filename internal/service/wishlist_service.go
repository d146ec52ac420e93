package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
)

const defaultWishlistPageSize = 10

type WishlistPage struct {
	Items []models.WishlistEntry `json:"wishlists"`
	Total int                    `json:"totalProducts"`
	Page  models.Page            `json:"pagination"`
}

type WishlistService struct {
	wishlists repository.WishlistRepository
	products  repository.ProductRepository
}

func NewWishlistService(wishlists repository.WishlistRepository, products repository.ProductRepository) *WishlistService {
	return &WishlistService{wishlists: wishlists, products: products}
}

func (s *WishlistService) Add(ctx context.Context, userID, productID primitive.ObjectID) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}
	if err := s.wishlists.Add(ctx, userID, productID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("%w: produit déjà dans la liste d'envies", ErrDuplicate)
		}
		return err
	}
	return nil
}

func (s *WishlistService) Remove(ctx context.Context, userID, productID primitive.ObjectID) error {
	return s.wishlists.Remove(ctx, userID, productID)
}

func (s *WishlistService) Contains(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	return s.wishlists.Contains(ctx, userID, productID)
}

// List pagine les produits du plus récemment ajouté au plus ancien
func (s *WishlistService) List(ctx context.Context, userID primitive.ObjectID, page, limit int) (*WishlistPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defaultWishlistPageSize
	}
	w, err := s.wishlists.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &WishlistPage{Items: []models.WishlistEntry{}, Page: models.NewPage(page, limit, 0)}, nil
	}
	if err != nil {
		return nil, err
	}

	items := append([]models.WishlistItem(nil), w.Products...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].AddedOn.After(items[j].AddedOn) })
	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	items = items[start:end]

	ids := make([]primitive.ObjectID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	byID, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	entries := make([]models.WishlistEntry, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		entries = append(entries, models.WishlistEntry{Product: p, AddedOn: it.AddedOn})
	}
	return &WishlistPage{Items: entries, Total: total, Page: models.NewPage(page, limit, int64(total))}, nil
}
