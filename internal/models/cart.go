package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ShippingFee        = 15.0
	MaxQuantityPerItem = 5
)

type CartItem struct {
	ProductID    primitive.ObjectID `json:"productId" bson:"productId"`
	ProductName  string             `json:"productName" bson:"productName"`
	ProductImage string             `json:"productImage" bson:"productImage"`
	Quantity     int                `json:"quantity" bson:"quantity"`
	Price        float64            `json:"price" bson:"price"`
	TotalPrice   float64            `json:"totalPrice" bson:"totalPrice"`
	RegularPrice float64            `json:"regularPrice" bson:"regularPrice"`
	SalePrice    float64            `json:"salePrice" bson:"salePrice"`
	Discount     float64            `json:"discount" bson:"discount"`
	Stock        int                `json:"stock" bson:"stock"`
}

type Cart struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID            primitive.ObjectID `json:"userId" bson:"userId"`
	Items             []CartItem         `json:"items" bson:"items"`
	TotalRegularPrice float64            `json:"totalRegularPrice" bson:"totalRegularPrice"`
	TotalSalesPrice   float64            `json:"totalSalesPrice" bson:"totalSalesPrice"`
	TotalDiscount     float64            `json:"totalDiscount" bson:"totalDiscount"`
	NetTotal          float64            `json:"netTotal" bson:"netTotal"`
	ShippingFee       float64            `json:"shippingFee" bson:"-"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// DiscountPercent retourne la remise en pourcentage entier entre prix normal et prix soldé
func DiscountPercent(regular, sale float64) float64 {
	if regular <= 0 {
		return 0
	}
	return math.Round((regular - sale) / regular * 100)
}

// FillFromProduct recopie dans la ligne les prix et le stock courants du produit
func (it *CartItem) FillFromProduct(p *Product) {
	it.ProductName = p.ProductName
	it.ProductImage = p.MainImage()
	it.RegularPrice = p.RegularPrice
	it.SalePrice = p.SalePrice
	it.Price = p.SalePrice
	it.Stock = p.Quantity
	it.Discount = DiscountPercent(p.RegularPrice, p.SalePrice)
	it.TotalPrice = it.Price * float64(it.Quantity)
}

// Recalculate recalcule les totaux; seules les lignes encore en stock comptent
func (c *Cart) Recalculate() {
	var regular, sale float64
	for i := range c.Items {
		it := &c.Items[i]
		it.TotalPrice = it.Price * float64(it.Quantity)
		if it.Stock <= 0 {
			continue
		}
		regular += it.RegularPrice * float64(it.Quantity)
		sale += it.SalePrice * float64(it.Quantity)
	}
	c.TotalRegularPrice = regular
	c.TotalSalesPrice = sale
	c.TotalDiscount = regular - sale
	c.NetTotal = sale
	c.ShippingFee = ShippingFee
}

// FindItem retourne l'index de la ligne du produit, ou -1
func (c *Cart) FindItem(productID primitive.ObjectID) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// PurchasableItems retourne les lignes dont le produit est encore en stock
func (c *Cart) PurchasableItems() []CartItem {
	items := make([]CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Stock > 0 {
			items = append(items, it)
		}
	}
	return items
}
