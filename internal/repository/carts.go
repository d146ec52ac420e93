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

type cartRepository struct {
	collection *mongo.Collection
}

func (r *cartRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart); err != nil {
		return nil, notFound(err)
	}
	return &cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	update := bson.M{"$set": bson.M{
		"items":             cart.Items,
		"totalRegularPrice": cart.TotalRegularPrice,
		"totalSalesPrice":   cart.TotalSalesPrice,
		"totalDiscount":     cart.TotalDiscount,
		"netTotal":          cart.NetTotal,
		"updatedAt":         cart.UpdatedAt,
	}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"userId": cart.UserID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("enregistrement panier: %w", err)
	}
	if id, ok := res.UpsertedID.(primitive.ObjectID); ok {
		cart.ID = id
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		return fmt.Errorf("suppression panier: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
