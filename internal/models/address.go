package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Address struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID               primitive.ObjectID `json:"userId" bson:"userId"`
	Name                 string             `json:"name" bson:"name" binding:"required"`
	Email                string             `json:"email" bson:"email" binding:"required,email"`
	Phone                string             `json:"phone" bson:"phone" binding:"required"`
	Pincode              string             `json:"pincode" bson:"pincode" binding:"required"`
	FlatHouseNo          string             `json:"flatHouseNo" bson:"flatHouseNo"`
	AreaStreet           string             `json:"areaStreet" bson:"areaStreet"`
	Landmark             string             `json:"landmark" bson:"landmark"`
	City                 string             `json:"city" bson:"city" binding:"required"`
	District             string             `json:"district" bson:"district" binding:"required"`
	State                string             `json:"state" bson:"state" binding:"required"`
	Country              string             `json:"country" bson:"country"`
	AddressType          string             `json:"addressType" bson:"addressType"`
	IsDefault            bool               `json:"isDefault" bson:"isDefault"`
	DeliveryInstructions string             `json:"deliveryInstructions" bson:"deliveryInstructions"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
}

var addressTypes = map[string]bool{
	"Temporary Address": true, "Permanent Address": true, "home": true, "work": true,
	"office": true, "Pickup point": true, "Friends/Relatives": true, "Others": true,
}

// IsValidAddressType vérifie le libellé du type d'adresse
func IsValidAddressType(t string) bool {
	return addressTypes[t]
}

// ToShipping copie l'adresse dans le format figé de la commande
func (a *Address) ToShipping() ShippingAddress {
	street := a.FlatHouseNo
	if a.AreaStreet != "" {
		if street != "" {
			street += ", "
		}
		street += a.AreaStreet
	}
	return ShippingAddress{
		Name:     a.Name,
		Email:    a.Email,
		Phone:    a.Phone,
		Landmark: a.Landmark,
		Street:   street,
		Pincode:  a.Pincode,
		City:     a.City,
		District: a.District,
		State:    a.State,
	}
}
