package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type AppliedCoupon struct {
	CouponID  primitive.ObjectID `json:"couponId" bson:"couponId"`
	AppliedOn time.Time          `json:"appliedOn" bson:"appliedOn"`
}

type SearchEntry struct {
	Category *primitive.ObjectID `json:"category,omitempty" bson:"category,omitempty"`
	Brand    string              `json:"brand,omitempty" bson:"brand,omitempty"`
	Term     string              `json:"term,omitempty" bson:"term,omitempty"`
	SearchOn time.Time           `json:"searchOn" bson:"searchOn"`
}

type User struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username             string             `json:"username" bson:"username"`
	Email                string             `json:"email" bson:"email"`
	Phone                string             `json:"phone,omitempty" bson:"phone,omitempty"`
	GoogleID             string             `json:"-" bson:"googleId,omitempty"`
	Password             string             `json:"-" bson:"password,omitempty"`
	Avatar               string             `json:"avatar,omitempty" bson:"avatar,omitempty"`
	IsBlocked            bool               `json:"isBlocked" bson:"isBlocked"`
	IsVerified           bool               `json:"isVerified" bson:"isVerified"`
	IsAdmin              bool               `json:"isAdmin" bson:"isAdmin"`
	AppliedCoupons       []AppliedCoupon    `json:"appliedCoupons,omitempty" bson:"appliedCoupons,omitempty"`
	SearchHistory        []SearchEntry      `json:"-" bson:"searchHistory,omitempty"`
	ResetPasswordToken   string             `json:"-" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires *time.Time         `json:"-" bson:"resetPasswordExpires,omitempty"`
	CreatedAt            time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Role retourne le rôle porté dans le JWT
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// HasUsedCoupon indique si le coupon figure déjà dans appliedCoupons
func (u *User) HasUsedCoupon(couponID primitive.ObjectID) bool {
	for _, ac := range u.AppliedCoupons {
		if ac.CouponID == couponID {
			return true
		}
	}
	return false
}

// UnverifiedUser est l'inscription en attente de validation OTP (stockée dans Redis)
type UnverifiedUser struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"passwordHash"`
	OTP          string    `json:"otp"`
	OTPExpiresAt time.Time `json:"otpExpiresAt"`
}
