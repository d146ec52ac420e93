package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stc_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type couponRepository struct {
	collection *mongo.Collection
}

func (r *couponRepository) Create(ctx context.Context, c *models.Coupon) error {
	c.CreatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, c)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insertion coupon: %w", err)
	}
	c.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *couponRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.collection.FindOne(ctx, bson.M{"couponCode": strings.ToUpper(strings.TrimSpace(code))}).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *couponRepository) Update(ctx context.Context, c *models.Coupon) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"couponCode":         c.CouponCode,
		"description":        c.Description,
		"discountPercentage": c.DiscountPercentage,
		"startDate":          c.StartDate,
		"endDate":            c.EndDate,
		"minPurchaseAmount":  c.MinPurchaseAmount,
		"maxDiscountPrice":   c.MaxDiscountPrice,
		"status":             c.Status,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("mise à jour coupon: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *couponRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("suppression coupon: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *couponRepository) List(ctx context.Context, page, limit int) ([]models.Coupon, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	skip, lim := skipLimit(page, limit)
	cur, err := r.collection.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(lim).
		SetProjection(bson.M{"users": 0}))
	if err != nil {
		return nil, 0, fmt.Errorf("liste coupons: %w", err)
	}
	coupons := []models.Coupon{}
	if err := cur.All(ctx, &coupons); err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// ListUsable retourne les coupons dans leur fenêtre et dont le minimum d'achat est atteint
func (r *couponRepository) ListUsable(ctx context.Context, now time.Time, amount float64) ([]models.Coupon, error) {
	cur, err := r.collection.Find(ctx, bson.M{
		"startDate":         bson.M{"$lte": now},
		"endDate":           bson.M{"$gte": now},
		"minPurchaseAmount": bson.M{"$lte": amount},
	}, options.Find().SetSort(bson.D{{Key: "discountPercentage", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("coupons utilisables: %w", err)
	}
	coupons := []models.Coupon{}
	if err := cur.All(ctx, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

// AddUser réserve le coupon pour l'utilisateur; ErrDuplicate s'il l'a déjà utilisé
func (r *couponRepository) AddUser(ctx context.Context, id, userID primitive.ObjectID, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "users.userId": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"users": models.CouponUser{UserID: userID, AppliedOn: at}}},
	)
	if err != nil {
		return fmt.Errorf("usage coupon: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrDuplicate
}

func (r *couponRepository) RemoveUser(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"users": bson.M{"userId": userID}},
	})
	if err != nil {
		return fmt.Errorf("libération coupon: %w", err)
	}
	return nil
}
