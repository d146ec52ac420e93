package repository

import (
	"context"
	"fmt"
	"time"

	"stc_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type wishlistRepository struct {
	collection *mongo.Collection
}

func (r *wishlistRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Wishlist, error) {
	var w models.Wishlist
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&w); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// Add n'insère le produit que s'il n'y est pas déjà
func (r *wishlistRepository) Add(ctx context.Context, userID, productID primitive.ObjectID) error {
	filter := bson.M{"userId": userID, "products.productId": bson.M{"$ne": productID}}
	update := bson.M{"$push": bson.M{"products": models.WishlistItem{ProductID: productID, AddedOn: time.Now()}}}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// l'upsert heurte l'index unique userId quand le produit est déjà présent
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("ajout liste d'envies: %w", err)
	}
	return nil
}

func (r *wishlistRepository) Remove(ctx context.Context, userID, productID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"userId": userID, "products.productId": productID},
		bson.M{"$pull": bson.M{"products": bson.M{"productId": productID}}})
	if err != nil {
		return fmt.Errorf("retrait liste d'envies: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *wishlistRepository) Contains(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"userId": userID, "products.productId": productID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
