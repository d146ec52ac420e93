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

type userRepository struct {
	collection *mongo.Collection
}

func (r *userRepository) Create(ctx context.Context, u *models.User) error {
	now := time.Now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = now, now
	res, err := r.collection.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insertion utilisateur: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.collection.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *userRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"resetPasswordToken": token})
}

func (r *userRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M, unset ...string) error {
	fields["updatedAt"] = time.Now()
	update := bson.M{"$set": fields}
	if len(unset) > 0 {
		u := bson.M{}
		for _, f := range unset {
			u[f] = ""
		}
		update["$unset"] = u
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("mise à jour utilisateur: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID, avatar string) error {
	fields := bson.M{"googleId": googleID, "isVerified": true}
	if avatar != "" {
		fields["avatar"] = avatar
	}
	return r.set(ctx, id, fields)
}

func (r *userRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, username, phone string) error {
	return r.set(ctx, id, bson.M{"username": username, "phone": phone})
}

func (r *userRepository) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.set(ctx, id, bson.M{"password": hash}, "resetPasswordToken", "resetPasswordExpires")
}

func (r *userRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	return r.set(ctx, id, bson.M{"resetPasswordToken": token, "resetPasswordExpires": expires})
}

func (r *userRepository) SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) error {
	return r.set(ctx, id, bson.M{"isBlocked": blocked})
}

func (r *userRepository) AddAppliedCoupon(ctx context.Context, id, couponID primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"appliedCoupons": models.AppliedCoupon{CouponID: couponID, AppliedOn: at}},
	})
	return err
}

func (r *userRepository) PushSearch(ctx context.Context, id primitive.ObjectID, entry models.SearchEntry) error {
	// on garde les 20 dernières recherches
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"searchHistory": bson.M{"$each": []models.SearchEntry{entry}, "$slice": -20}},
	})
	return err
}

func (r *userRepository) ListCustomers(ctx context.Context, search string, page, limit int) ([]models.User, int64, error) {
	filter := bson.M{"isAdmin": bson.M{"$ne": true}}
	if search = strings.TrimSpace(search); search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"username": rx}, bson.M{"email": rx}}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("comptage clients: %w", err)
	}

	skip, lim := skipLimit(page, limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(lim).
		SetProjection(bson.M{"password": 0, "searchHistory": 0})
	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("liste clients: %w", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
