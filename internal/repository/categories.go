package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"stc_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

type categoryRepository struct {
	collection *mongo.Collection
}

func (r *categoryRepository) Create(ctx context.Context, c *models.Category) error {
	c.CreatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insertion catégorie: %w", err)
	}
	c.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	var c models.Category
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// FindByName compare sans tenir compte de la casse
func (r *categoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	opts := options.FindOne().SetCollation(caseInsensitive)
	if err := r.collection.FindOne(ctx, bson.M{"name": strings.TrimSpace(name)}, opts).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *categoryRepository) Update(ctx context.Context, c *models.Category) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"name":        c.Name,
		"description": c.Description,
		"isListed":    c.IsListed,
		"status":      c.Status,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("mise à jour catégorie: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) setField(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("mise à jour catégorie: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) error {
	status := "active"
	if blocked {
		status = "inactive"
	}
	return r.setField(ctx, id, bson.M{"isBlocked": blocked, "status": status})
}

func (r *categoryRepository) SetOffer(ctx context.Context, id primitive.ObjectID, offer float64) error {
	return r.setField(ctx, id, bson.M{"offer": offer})
}

func (r *categoryRepository) List(ctx context.Context, search string, page, limit int) ([]models.Category, int64, error) {
	filter := bson.M{}
	if search = strings.TrimSpace(search); search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	skip, lim := skipLimit(page, limit)
	cur, err := r.collection.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, fmt.Errorf("liste catégories: %w", err)
	}
	cats := []models.Category{}
	if err := cur.All(ctx, &cats); err != nil {
		return nil, 0, err
	}
	return cats, total, nil
}

func (r *categoryRepository) ListVisible(ctx context.Context) ([]models.Category, error) {
	cur, err := r.collection.Find(ctx, bson.M{"isBlocked": false, "isListed": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("liste catégories visibles: %w", err)
	}
	cats := []models.Category{}
	if err := cur.All(ctx, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *categoryRepository) BlockedIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cur, err := r.collection.Find(ctx, bson.M{"isBlocked": true}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
