package repository

import (
	"context"
	"fmt"

	"stc_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	GroupByDay   = "day"
	GroupByWeek  = "week"
	GroupByMonth = "month"
)

type reportRepository struct {
	orders *mongo.Collection
}

func (r *reportRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cur, err := r.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("agrégation: %w", err)
	}
	return cur.All(ctx, out)
}

func (r *reportRepository) Metrics(ctx context.Context, dr models.DateRange) (models.SalesMetrics, error) {
	var rows []models.SalesMetrics
	err := r.aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: rangeMatch(dr)}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"totalSales":      bson.M{"$sum": "$payableAmount"},
			"totalOrders":     bson.M{"$sum": 1},
			"totalDiscounts":  bson.M{"$sum": "$totalDiscount"},
			"couponDiscounts": bson.M{"$sum": "$couponDiscount"},
			"users":           bson.M{"$addToSet": "$user"},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":             0,
			"totalSales":      1,
			"totalOrders":     1,
			"totalDiscounts":  1,
			"couponDiscounts": 1,
			"customers":       bson.M{"$size": "$users"},
		}}},
	}, &rows)
	if err != nil || len(rows) == 0 {
		return models.SalesMetrics{}, err
	}
	return rows[0], nil
}

// soldItems déroule les lignes non annulées et joint le produit
func soldItems(dr models.DateRange) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: rangeMatch(dr)}},
		{{Key: "$unwind", Value: "$orderItems"}},
		{{Key: "$match", Value: bson.M{"orderItems.orderStatus": bson.M{"$ne": models.OrderCancelled}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "products",
			"localField":   "orderItems.product",
			"foreignField": "_id",
			"as":           "product",
		}}},
		{{Key: "$unwind", Value: "$product"}},
	}
}

func (r *reportRepository) CategorySales(ctx context.Context, dr models.DateRange) ([]models.CategorySales, error) {
	pipeline := append(soldItems(dr),
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "categories",
			"localField":   "product.category",
			"foreignField": "_id",
			"as":           "category",
		}}},
		bson.D{{Key: "$unwind", Value: "$category"}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":          bson.M{"$toString": "$category._id"},
			"categoryName": bson.M{"$first": "$category.name"},
			"quantity":     bson.M{"$sum": "$orderItems.quantity"},
			"revenue":      bson.M{"$sum": "$orderItems.totalPrice"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "revenue", Value: -1}}}},
	)
	rows := []models.CategorySales{}
	return rows, r.aggregate(ctx, pipeline, &rows)
}

func (r *reportRepository) BrandSales(ctx context.Context, dr models.DateRange) ([]models.BrandSales, error) {
	pipeline := append(soldItems(dr),
		bson.D{{Key: "$group", Value: bson.M{
			"_id":      "$product.brand",
			"quantity": bson.M{"$sum": "$orderItems.quantity"},
			"revenue":  bson.M{"$sum": "$orderItems.totalPrice"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "revenue", Value: -1}}}},
	)
	rows := []models.BrandSales{}
	return rows, r.aggregate(ctx, pipeline, &rows)
}

func trendFormat(groupBy string) string {
	switch groupBy {
	case GroupByWeek:
		return "%G-W%V"
	case GroupByMonth:
		return "%Y-%m"
	default:
		return "%Y-%m-%d"
	}
}

func (r *reportRepository) SalesTrend(ctx context.Context, dr models.DateRange, groupBy string) ([]models.TrendPoint, error) {
	rows := []models.TrendPoint{}
	err := r.aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: rangeMatch(dr)}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"$dateToString": bson.M{"format": trendFormat(groupBy), "date": "$placedAt"}},
			"orders":  bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$payableAmount"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}, &rows)
	return rows, err
}

func (r *reportRepository) TopProducts(ctx context.Context, dr models.DateRange, limit int) ([]models.TopProduct, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: rangeMatch(dr)}},
		{{Key: "$unwind", Value: "$orderItems"}},
		{{Key: "$match", Value: bson.M{"orderItems.orderStatus": bson.M{"$ne": models.OrderCancelled}}}},
		{{Key: "$group", Value: bson.M{
			"_id":         bson.M{"$toString": "$orderItems.product"},
			"productName": bson.M{"$first": "$orderItems.productName"},
			"quantity":    bson.M{"$sum": "$orderItems.quantity"},
			"revenue":     bson.M{"$sum": "$orderItems.totalPrice"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "quantity", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
	rows := []models.TopProduct{}
	return rows, r.aggregate(ctx, pipeline, &rows)
}

func (r *reportRepository) CouponUsage(ctx context.Context, dr models.DateRange) ([]models.CouponUsage, error) {
	match := rangeMatch(dr)
	match["couponCode"] = bson.M{"$exists": true, "$ne": ""}
	rows := []models.CouponUsage{}
	err := r.aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$couponCode",
			"uses":          bson.M{"$sum": 1},
			"totalDiscount": bson.M{"$sum": "$couponDiscount"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "uses", Value: -1}}}},
	}, &rows)
	return rows, err
}
