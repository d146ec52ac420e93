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

type orderRepository struct {
	collection *mongo.Collection
}

func (r *orderRepository) Create(ctx context.Context, o *models.Order) error {
	o.UpdatedAt = time.Now()
	o.Version = 1
	res, err := r.collection.InsertOne(ctx, o)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insertion commande: %w", err)
	}
	o.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *orderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	if err := r.collection.FindOne(ctx, filter).Decode(&o); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *orderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"orderId": orderID})
}

func (r *orderRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"paymentIntentId": intentID})
}

func (r *orderRepository) Update(ctx context.Context, o *models.Order) error {
	prev := o.Version
	o.Version = prev + 1
	o.UpdatedAt = time.Now()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": o.ID, "version": prev}, o)
	if err != nil {
		o.Version = prev
		return fmt.Errorf("mise à jour commande: %w", err)
	}
	if res.MatchedCount == 0 {
		o.Version = prev
		return ErrConflict
	}
	return nil
}

func (r *orderRepository) page(ctx context.Context, filter bson.M, page, limit int) ([]models.Order, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("comptage commandes: %w", err)
	}
	skip, lim := skipLimit(page, limit)
	cur, err := r.collection.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "placedAt", Value: -1}}).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, fmt.Errorf("liste commandes: %w", err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.Order, int64, error) {
	return r.page(ctx, bson.M{"user": userID}, page, limit)
}

func (r *orderRepository) List(ctx context.Context, status, search string, page, limit int) ([]models.Order, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["orderStatus"] = status
	}
	withOrderSearch(filter, search)
	return r.page(ctx, filter, page, limit)
}

// withOrderSearch filtre sur le numéro de commande et le destinataire
func withOrderSearch(filter bson.M, search string) {
	s := strings.TrimSpace(search)
	if s == "" {
		return
	}
	rx := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
	filter["$or"] = bson.A{
		bson.M{"orderId": rx},
		bson.M{"shippingAddress.name": rx},
		bson.M{"shippingAddress.email": rx},
		bson.M{"shippingAddress.phone": rx},
	}
}

func (r *orderRepository) FindStalePending(ctx context.Context, method string, placedBefore time.Time) ([]models.Order, error) {
	cur, err := r.collection.Find(ctx, bson.M{
		"paymentMethod": method,
		"paymentStatus": models.PaymentPending,
		"placedAt":      bson.M{"$lt": placedBefore},
		"orderStatus":   bson.M{"$ne": models.OrderCancelled},
	})
	if err != nil {
		return nil, fmt.Errorf("commandes en attente: %w", err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListInRange(ctx context.Context, dr models.DateRange, search string, page, limit int) ([]models.Order, int64, error) {
	filter := rangeMatch(dr)
	withOrderSearch(filter, search)
	return r.page(ctx, filter, page, limit)
}

func rangeMatch(dr models.DateRange) bson.M {
	return bson.M{
		"placedAt":    bson.M{"$gte": dr.Start, "$lt": dr.End},
		"orderStatus": bson.M{"$ne": models.OrderCancelled},
	}
}
