package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WishlistItem struct {
	ProductID primitive.ObjectID `json:"productId" bson:"productId"`
	AddedOn   time.Time          `json:"addedOn" bson:"addedOn"`
}

type Wishlist struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID   primitive.ObjectID `json:"userId" bson:"userId"`
	Products []WishlistItem     `json:"products" bson:"products"`
}

// WishlistEntry est une ligne de liste d'envies enrichie du produit
type WishlistEntry struct {
	Product *Product  `json:"product"`
	AddedOn time.Time `json:"addedOn"`
}
