package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CouponActive   = "active"
	CouponInactive = "inactive"
	CouponExpired  = "expired"
)

type CouponUser struct {
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	AppliedOn time.Time          `json:"appliedOn" bson:"appliedOn"`
}

type Coupon struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CouponCode         string             `json:"couponCode" bson:"couponCode"`
	Description        string             `json:"description" bson:"description"`
	DiscountPercentage float64            `json:"discountPercentage" bson:"discountPercentage"`
	StartDate          time.Time          `json:"startDate" bson:"startDate"`
	EndDate            time.Time          `json:"endDate" bson:"endDate"`
	MinPurchaseAmount  float64            `json:"minPurchaseAmount" bson:"minPurchaseAmount"`
	MaxDiscountPrice   float64            `json:"maxDiscountPrice" bson:"maxDiscountPrice"`
	Status             string             `json:"status" bson:"status"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	Users              []CouponUser       `json:"users,omitempty" bson:"users,omitempty"`
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StatusAt calcule le statut à la journée près
func (c *Coupon) StatusAt(now time.Time) string {
	today := truncateDay(now)
	start := truncateDay(c.StartDate.In(now.Location()))
	end := truncateDay(c.EndDate.In(now.Location()))
	switch {
	case today.After(end):
		return CouponExpired
	case !today.Before(start):
		return CouponActive
	default:
		return CouponInactive
	}
}

// InWindow indique si le coupon est utilisable à l'instant donné
func (c *Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// DiscountFor retourne la remise plafonnée, arrondie au centime
func (c *Coupon) DiscountFor(amount float64) float64 {
	d := c.DiscountPercentage / 100 * amount
	d = math.Min(d, c.MaxDiscountPrice)
	return math.Round(d*100) / 100
}

// UsedBy indique si l'utilisateur a déjà consommé ce coupon
func (c *Coupon) UsedBy(userID primitive.ObjectID) bool {
	for _, u := range c.Users {
		if u.UserID == userID {
			return true
		}
	}
	return false
}

// CouponValidation est la réponse de /api/coupons/apply
type CouponValidation struct {
	Code            string  `json:"couponCode"`
	DiscountApplied float64 `json:"discountApplied"`
	TotalAmount     float64 `json:"totalAmount"`
}
