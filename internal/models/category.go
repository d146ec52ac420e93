package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	IsListed    bool               `json:"isListed" bson:"isListed"`
	IsBlocked   bool               `json:"isBlocked" bson:"isBlocked"`
	Offer       float64            `json:"offer" bson:"offer"`
	Status      string             `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}
