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
)

type CartService struct {
	carts      repository.CartRepository
	products   repository.ProductRepository
	categories repository.CategoryRepository
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, categories repository.CategoryRepository) *CartService {
	return &CartService{carts: carts, products: products, categories: categories}
}

// load retourne le panier de l'utilisateur, ou un panier vide non enregistré
func (s *CartService) load(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart, nil
}

// Refresh recharge chaque produit, retire les lignes devenues invisibles
// puis recalcule prix, remises, stock et totaux
func (s *CartService) Refresh(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		cart.Recalculate()
		return cart, nil
	}

	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("rechargement produits du panier: %w", err)
	}
	blocked, err := s.blockedCategories(ctx)
	if err != nil {
		return nil, err
	}

	kept := make([]models.CartItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok || p.IsBlocked || blocked[p.Category] {
			log.Printf("🧹 Produit %s retiré du panier de %s", it.ProductID.Hex(), userID.Hex())
			continue
		}
		it.FillFromProduct(p)
		kept = append(kept, it)
	}
	cart.Items = kept
	cart.Recalculate()

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) blockedCategories(ctx context.Context) (map[primitive.ObjectID]bool, error) {
	ids, err := s.categories.BlockedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("catégories bloquées: %w", err)
	}
	out := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()
	if err := s.carts.Save(ctx, cart); err != nil {
		return fmt.Errorf("enregistrement panier: %w", err)
	}
	return nil
}

// purchasableProduct vérifie que le produit peut être mis au panier
func (s *CartService) purchasableProduct(ctx context.Context, productID primitive.ObjectID) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.IsBlocked {
		return nil, invalid("produit bloqué par l'administrateur")
	}
	cat, err := s.categories.GetByID(ctx, p.Category)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if cat != nil && cat.IsBlocked {
		return nil, invalid("catégorie bloquée par l'administrateur")
	}
	if p.Quantity <= 0 {
		return nil, invalidAs(ErrInsufficientStock, "produit en rupture de stock")
	}
	return p, nil
}

// AddItem ajoute un produit ou incrémente la ligne existante
func (s *CartService) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, invalid("quantité invalide")
	}
	p, err := s.purchasableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	newQty := quantity
	idx := cart.FindItem(productID)
	if idx >= 0 {
		newQty += cart.Items[idx].Quantity
	}
	if newQty > models.MaxQuantityPerItem {
		return nil, invalid("maximum %d unités par produit", models.MaxQuantityPerItem)
	}
	if newQty > p.Quantity {
		return nil, invalidAs(ErrInsufficientStock, "stock insuffisant (%d disponibles)", p.Quantity)
	}

	if idx >= 0 {
		cart.Items[idx].Quantity = newQty
		cart.Items[idx].FillFromProduct(p)
	} else {
		item := models.CartItem{ProductID: p.ID, Quantity: newQty}
		item.FillFromProduct(p)
		cart.Items = append(cart.Items, item)
	}
	cart.Recalculate()

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateQuantity fixe la quantité d'une ligne entre 1 et min(5, stock)
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	if quantity < 1 || quantity > models.MaxQuantityPerItem {
		return nil, invalid("la quantité doit être comprise entre 1 et %d", models.MaxQuantityPerItem)
	}
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Quantity {
		return nil, invalidAs(ErrInsufficientStock, "stock insuffisant (%d disponibles)", p.Quantity)
	}

	cart.Items[idx].Quantity = quantity
	cart.Items[idx].FillFromProduct(p)
	cart.Recalculate()
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	cart.Recalculate()
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) Clear(ctx context.Context, userID primitive.ObjectID) error {
	err := s.carts.Delete(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}
