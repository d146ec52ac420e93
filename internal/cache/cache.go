package cache

import (
	"context"
	"time"

	"stc_back_end/internal/models"
)

const (
	ProductCacheTTL = 5 * time.Minute
)

func productKey(id string) string { return "product:" + id }

// GetProduct retourne ErrCacheMiss si le produit n'est pas en cache
func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := s.GetJSON(ctx, productKey(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) SetProduct(ctx context.Context, p *models.Product) error {
	return s.SetJSON(ctx, productKey(p.ID.Hex()), p, ProductCacheTTL)
}

// InvalidateProducts supprime les fiches produit en cache
func (s *Store) InvalidateProducts(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	return s.Delete(ctx, keys...)
}
