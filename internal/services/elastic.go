package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
)

// ErrSearchUnavailable : pas de client Elasticsearch, l'appelant bascule sur MongoDB
var ErrSearchUnavailable = errors.New("client Elasticsearch non initialisé")

const defaultProductIndex = "products"

// ProductSearch indexe et recherche les produits dans Elasticsearch
type ProductSearch struct {
	client *elasticsearch.Client
	index  string
}

func NewProductSearch(client *elasticsearch.Client) *ProductSearch {
	return &ProductSearch{client: client, index: defaultProductIndex}
}

func (s *ProductSearch) Enabled() bool {
	return s != nil && s.client != nil
}

// searchDocument est la projection indexée d'un produit
type searchDocument struct {
	ProductName     string  `json:"productName"`
	Brand           string  `json:"brand"`
	ModelNumber     string  `json:"modelNumber"`
	Processor       string  `json:"processor"`
	Graphics        string  `json:"graphics"`
	OperatingSystem string  `json:"operatingSystem"`
	Description     string  `json:"description"`
	Color           string  `json:"color"`
	Category        string  `json:"category"`
	SalePrice       float64 `json:"salePrice"`
	IsBlocked       bool    `json:"isBlocked"`
}

func toSearchDocument(p models.Product) searchDocument {
	return searchDocument{
		ProductName:     p.ProductName,
		Brand:           p.Brand,
		ModelNumber:     p.ModelNumber,
		Processor:       p.Processor.Brand + " " + p.Processor.Model,
		Graphics:        p.Graphics.Model,
		OperatingSystem: p.OperatingSystem,
		Description:     p.Description,
		Color:           p.Color,
		Category:        p.Category.Hex(),
		SalePrice:       p.SalePrice,
		IsBlocked:       p.IsBlocked,
	}
}

//
// --- INDEXATION DANS ELASTICSEARCH ---
//

// IndexProduct indexe (ou remplace) un produit
func (s *ProductSearch) IndexProduct(ctx context.Context, p models.Product) error {
	if !s.Enabled() {
		return ErrSearchUnavailable
	}

	data, err := json.Marshal(toSearchDocument(p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: p.ID.Hex(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("Elastic a renvoyé une erreur pour %s: %s", p.ProductName, res.Status())
	}
	log.Printf("✅ Produit indexé dans Elasticsearch: %s", p.ProductName)
	return nil
}

//
// --- RECHERCHE DANS ELASTICSEARCH ---
//

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search retourne les ids des produits non bloqués correspondant à la requête, par pertinence
func (s *ProductSearch) Search(ctx context.Context, query string, limit int) ([]primitive.ObjectID, error) {
	if !s.Enabled() {
		return nil, ErrSearchUnavailable
	}
	if limit <= 0 {
		limit = 20
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"size":    limit,
		"_source": false,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     query,
						"fields":    []string{"productName^3", "brand^2", "modelNumber", "processor", "graphics", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"isBlocked": false},
				},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("recherche Elastic: %s", res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := primitive.ObjectIDFromHex(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
