package repository

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"stc_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productRepository struct {
	collection *mongo.Collection
}

func (r *productRepository) Create(ctx context.Context, p *models.Product) error {
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	res, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insertion produit: %w", err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Product, error) {
	out := make(map[primitive.ObjectID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("lecture produits: %w", err)
	}
	var products []models.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (r *productRepository) FindByNameAndModel(ctx context.Context, name, model string) (*models.Product, error) {
	var p models.Product
	filter := bson.M{"productName": strings.TrimSpace(name), "modelNumber": strings.TrimSpace(model)}
	if err := r.collection.FindOne(ctx, filter, options.FindOne().SetCollation(caseInsensitive)).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *productRepository) Update(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("mise à jour produit: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) setFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("mise à jour produit: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) error {
	return r.setFields(ctx, id, bson.M{"isBlocked": blocked})
}

func (r *productRepository) SetPricing(ctx context.Context, id primitive.ObjectID, offer, salePrice float64) error {
	return r.setFields(ctx, id, bson.M{"offer": offer, "salePrice": salePrice})
}

func (r *productRepository) SetSalePrice(ctx context.Context, id primitive.ObjectID, salePrice float64) error {
	return r.setFields(ctx, id, bson.M{"salePrice": salePrice})
}

func (r *productRepository) ListByCategory(ctx context.Context, categoryID primitive.ObjectID) ([]models.Product, error) {
	cur, err := r.collection.Find(ctx, bson.M{"category": categoryID})
	if err != nil {
		return nil, fmt.Errorf("produits de la catégorie: %w", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func inStrings(values []string) bson.M {
	return bson.M{"$in": values}
}

// buildProductFilter traduit les critères boutique en filtre Mongo
func buildProductFilter(q ProductQuery) bson.M {
	filter := bson.M{}
	if q.OnlyVisible {
		filter["isBlocked"] = false
	}

	categoryCond := bson.M{}
	if len(q.ExcludeCategories) > 0 {
		categoryCond["$nin"] = q.ExcludeCategories
	}
	if q.CategoryID != nil {
		categoryCond["$eq"] = *q.CategoryID
	}
	if len(categoryCond) > 0 {
		filter["category"] = categoryCond
	}

	specs := map[string][]string{
		"brand":                q.Brands,
		"processor.brand":      q.ProcessorBrands,
		"processor.generation": q.Generations,
		"ram.size":             q.RAMSizes,
		"storage.capacity":     q.Storage,
		"graphics.model":       q.Graphics,
		"display.size":         q.DisplaySizes,
		"operatingSystem":      q.OS,
		"color":                q.Colors,
	}
	for field, values := range specs {
		if len(values) > 0 {
			filter[field] = inStrings(values)
		}
	}

	price := bson.M{}
	if q.MinPrice > 0 {
		price["$gte"] = q.MinPrice
	}
	if q.MaxPrice > 0 {
		price["$lte"] = q.MaxPrice
	}
	if len(price) > 0 {
		filter["salePrice"] = price
	}

	if s := strings.TrimSpace(q.Search); s != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{bson.M{"productName": rx}, bson.M{"brand": rx}, bson.M{"modelNumber": rx}}
	}
	return filter
}

func productSort(s string) bson.D {
	switch s {
	case "price:asc":
		return bson.D{{Key: "salePrice", Value: 1}}
	case "price:desc":
		return bson.D{{Key: "salePrice", Value: -1}}
	case "name:asc":
		return bson.D{{Key: "productName", Value: 1}}
	case "name:desc":
		return bson.D{{Key: "productName", Value: -1}}
	case "popularity:desc":
		return bson.D{{Key: "popularity", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

func (r *productRepository) List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	filter := buildProductFilter(q)
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("comptage produits: %w", err)
	}
	skip, lim := skipLimit(q.Page, q.Limit)
	cur, err := r.collection.Find(ctx, filter, options.Find().SetSort(productSort(q.Sort)).SetSkip(skip).SetLimit(lim))
	if err != nil {
		return nil, 0, fmt.Errorf("liste produits: %w", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) distinct(ctx context.Context, field string, filter bson.M) ([]string, error) {
	values, err := r.collection.Distinct(ctx, field, filter)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *productRepository) FilterOptions(ctx context.Context, excludeCategories []primitive.ObjectID) (*models.FilterOptions, error) {
	filter := buildProductFilter(ProductQuery{OnlyVisible: true, ExcludeCategories: excludeCategories})

	opts := &models.FilterOptions{}
	targets := []struct {
		field string
		dst   *[]string
	}{
		{"brand", &opts.Brands},
		{"processor.brand", &opts.ProcessorBrands},
		{"processor.generation", &opts.ProcessorGenerations},
		{"ram.size", &opts.RAMSizes},
		{"storage.capacity", &opts.StorageCapacities},
		{"graphics.model", &opts.GraphicsModels},
		{"display.size", &opts.DisplaySizes},
		{"operatingSystem", &opts.OperatingSystems},
		{"color", &opts.Colors},
	}
	for _, t := range targets {
		values, err := r.distinct(ctx, t.field, filter)
		if err != nil {
			return nil, err
		}
		*t.dst = values
	}

	cur, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"min": bson.M{"$min": "$salePrice"},
			"max": bson.M{"$max": "$salePrice"},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("bornes de prix: %w", err)
	}
	var bounds []struct {
		Min float64 `bson:"min"`
		Max float64 `bson:"max"`
	}
	if err := cur.All(ctx, &bounds); err != nil {
		return nil, err
	}
	if len(bounds) > 0 {
		opts.MinPrice, opts.MaxPrice = bounds[0].Min, bounds[0].Max
	}
	return opts, nil
}

// stockUpdate ajuste la quantité et recalcule le statut dans la même écriture
func stockUpdate(delta int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"quantity":  bson.M{"$add": bson.A{"$quantity", delta}},
			"updatedAt": "$$NOW",
		}}},
		{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$lte": bson.A{"$quantity", 0}},
				models.ProductOutOfStock,
				models.ProductAvailable,
			}},
		}}},
	}
}

// DecrementStock ne décrémente que si le stock couvre la quantité demandée
func (r *productRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "quantity": bson.M{"$gte": qty}},
		stockUpdate(-qty))
	if err != nil {
		return fmt.Errorf("décrément stock: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

func (r *productRepository) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, stockUpdate(qty))
	if err != nil {
		return fmt.Errorf("incrément stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) AddImage(ctx context.Context, id primitive.ObjectID, url string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"productImage": url},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("ajout image: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) RemoveImage(ctx context.Context, id primitive.ObjectID, url string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"productImage": url},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("suppression image: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
