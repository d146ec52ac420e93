package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProductAvailable  = "Available"
	ProductOutOfStock = "Out of Stock"
)

type Processor struct {
	Brand      string `json:"brand" bson:"brand" binding:"required"`
	Model      string `json:"model" bson:"model" binding:"required"`
	Generation string `json:"generation" bson:"generation" binding:"required"`
}

type RAM struct {
	Size string `json:"size" bson:"size" binding:"required"`
	Type string `json:"type" bson:"type" binding:"required"`
}

type Storage struct {
	Type     string `json:"type" bson:"type" binding:"required"`
	Capacity string `json:"capacity" bson:"capacity" binding:"required"`
}

type Graphics struct {
	Model string `json:"model" bson:"model" binding:"required"`
	VRAM  string `json:"vram" bson:"vram" binding:"required"`
}

type Display struct {
	Size        string `json:"size" bson:"size" binding:"required"`
	Resolution  string `json:"resolution" bson:"resolution" binding:"required"`
	RefreshRate string `json:"refreshRate" bson:"refreshRate" binding:"required"`
}

type Product struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProductName     string             `json:"productName" bson:"productName"`
	Brand           string             `json:"brand" bson:"brand"`
	ModelNumber     string             `json:"modelNumber" bson:"modelNumber"`
	Processor       Processor          `json:"processor" bson:"processor"`
	RAM             RAM                `json:"ram" bson:"ram"`
	Storage         Storage            `json:"storage" bson:"storage"`
	Graphics        Graphics           `json:"graphics" bson:"graphics"`
	Display         Display            `json:"display" bson:"display"`
	OperatingSystem string             `json:"operatingSystem" bson:"operatingSystem"`
	BatteryLife     string             `json:"batteryLife" bson:"batteryLife"`
	Weight          string             `json:"weight" bson:"weight"`
	Ports           string             `json:"ports" bson:"ports"`
	RegularPrice    float64            `json:"regularPrice" bson:"regularPrice"`
	SalePrice       float64            `json:"salePrice" bson:"salePrice"`
	Quantity        int                `json:"quantity" bson:"quantity"`
	Description     string             `json:"description" bson:"description"`
	Category        primitive.ObjectID `json:"category" bson:"category"`
	Size            string             `json:"size,omitempty" bson:"size,omitempty"`
	Color           string             `json:"color" bson:"color"`
	ProductImage    []string           `json:"productImage" bson:"productImage"`
	IsBlocked       bool               `json:"isBlocked" bson:"isBlocked"`
	Status          string             `json:"status" bson:"status"`
	Offer           float64            `json:"offer" bson:"offer"`
	Popularity      int                `json:"popularity" bson:"popularity"`
	Rating          float64            `json:"rating" bson:"rating"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// SalePriceFor applique la meilleure des deux offres (produit ou catégorie)
func SalePriceFor(regularPrice, productOffer, categoryOffer float64) float64 {
	offer := math.Max(productOffer, categoryOffer)
	return math.Round(regularPrice - regularPrice*offer/100)
}

// StockStatus dérive le statut affiché à partir de la quantité
func StockStatus(quantity int) string {
	if quantity <= 0 {
		return ProductOutOfStock
	}
	return ProductAvailable
}

// MainImage retourne la première image ou une chaîne vide
func (p *Product) MainImage() string {
	if len(p.ProductImage) == 0 {
		return ""
	}
	return p.ProductImage[0]
}

// FilterOptions regroupe les valeurs distinctes proposées par la page boutique
type FilterOptions struct {
	Brands               []string `json:"brands"`
	ProcessorBrands      []string `json:"processorBrands"`
	ProcessorGenerations []string `json:"processorGenerations"`
	RAMSizes             []string `json:"ramSizes"`
	StorageCapacities    []string `json:"storageCapacities"`
	GraphicsModels       []string `json:"graphicsModels"`
	DisplaySizes         []string `json:"displaySizes"`
	OperatingSystems     []string `json:"operatingSystems"`
	Colors               []string `json:"colors"`
	MinPrice             float64  `json:"minPrice"`
	MaxPrice             float64  `json:"maxPrice"`
}

// ProductFilter décrit les critères de /api/products/filter
type ProductFilter struct {
	Brands          []string
	ProcessorBrands []string
	Generations     []string
	RAMSizes        []string
	Storage         []string
	Graphics        []string
	DisplaySizes    []string
	OS              []string
	Colors          []string
	CategoryID      *primitive.ObjectID
	MinPrice        float64
	MaxPrice        float64
	Sort            string
	Search          string
	Page            int
	Limit           int
}
