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

type addressRepository struct {
	collection *mongo.Collection
}

func (r *addressRepository) Create(ctx context.Context, a *models.Address) error {
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	res, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		return fmt.Errorf("insertion adresse: %w", err)
	}
	a.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *addressRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Address, error) {
	var a models.Address
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ListByUser place l'adresse par défaut en tête, puis les plus récentes
func (r *addressRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	opts := options.Find().SetSort(bson.D{{Key: "isDefault", Value: -1}, {Key: "createdAt", Value: -1}})
	cur, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("liste adresses: %w", err)
	}
	addresses := []models.Address{}
	if err := cur.All(ctx, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (r *addressRepository) CountByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"userId": userID})
}

func (r *addressRepository) Update(ctx context.Context, a *models.Address) error {
	a.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": a.ID, "userId": a.UserID}, a)
	if err != nil {
		return fmt.Errorf("mise à jour adresse: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *addressRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("suppression adresse: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *addressRepository) SetDefault(ctx context.Context, userID, id primitive.ObjectID) error {
	now := time.Now()
	if _, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "_id": bson.M{"$ne": id}},
		bson.M{"$set": bson.M{"isDefault": false, "updatedAt": now}}); err != nil {
		return fmt.Errorf("réinitialisation adresse par défaut: %w", err)
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"isDefault": true, "updatedAt": now}})
	if err != nil {
		return fmt.Errorf("adresse par défaut: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
