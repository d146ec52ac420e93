package models

import (
	"fmt"
	"math/rand/v2"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderPending        = "Pending"
	OrderPlaced         = "Placed"
	OrderShipped        = "Shipped"
	OrderDelivered      = "Delivered"
	OrderCancelled      = "Cancelled"
	OrderReturned       = "Returned"
	OrderReturnRejected = "Return Rejected"
)

const (
	PaymentProcessing = "Processing"
	PaymentPending    = "Pending"
	PaymentCompleted  = "Completed"
	PaymentPaid       = "Paid"
	PaymentFailed     = "Failed"
	PaymentRefunded   = "Refunded"
	PaymentCancelled  = "Cancelled"
)

const (
	MethodCOD    = "Cash on Delivery"
	MethodOnline = "online"
	MethodWallet = "wallet"
	// ancien libellé encore envoyé par le front
	methodRazorpay = "Razor pay"
)

const (
	ReturnPending  = "Pending"
	ReturnApproved = "Approved"
	ReturnRejected = "Rejected"
)

// DeliveryDelay est le délai de livraison annoncé à la commande
const DeliveryDelay = 7 * 24 * time.Hour

var orderStatuses = map[string]bool{
	OrderPending: true, OrderPlaced: true, OrderShipped: true, OrderDelivered: true,
	OrderCancelled: true, OrderReturned: true, OrderReturnRejected: true,
}

// IsValidOrderStatus vérifie que le statut fait partie de l'énumération
func IsValidOrderStatus(s string) bool {
	return orderStatuses[s]
}

// NormalizePaymentMethod ramène les libellés acceptés à l'une des trois méthodes
func NormalizePaymentMethod(m string) (string, bool) {
	switch m {
	case MethodCOD:
		return MethodCOD, true
	case MethodOnline, methodRazorpay:
		return MethodOnline, true
	case MethodWallet:
		return MethodWallet, true
	}
	return "", false
}

type ReturnRequest struct {
	RequestStatus string `json:"requestStatus,omitempty" bson:"requestStatus,omitempty"`
	Reason        string `json:"reason,omitempty" bson:"reason,omitempty"`
	Explanation   string `json:"explanation,omitempty" bson:"explanation,omitempty"`
}

type OrderItem struct {
	Product            primitive.ObjectID `json:"product" bson:"product"`
	ProductName        string             `json:"productName" bson:"productName"`
	ProductImage       string             `json:"productImage" bson:"productImage"`
	Quantity           int                `json:"quantity" bson:"quantity"`
	Price              float64            `json:"price" bson:"price"`
	Discount           float64            `json:"discount" bson:"discount"`
	OrderStatus        string             `json:"orderStatus" bson:"orderStatus"`
	CancellationReason string             `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
	PaymentStatus      string             `json:"paymentStatus" bson:"paymentStatus"`
	DeliveredOn        *time.Time         `json:"deliveredOn,omitempty" bson:"deliveredOn,omitempty"`
	TotalPrice         float64            `json:"totalPrice" bson:"totalPrice"`
	ReturnRequest      *ReturnRequest     `json:"returnRequest,omitempty" bson:"returnRequest,omitempty"`
}

type ShippingAddress struct {
	Name     string `json:"name" bson:"name"`
	Email    string `json:"email" bson:"email"`
	Phone    string `json:"phone" bson:"phone"`
	Landmark string `json:"landmark,omitempty" bson:"landmark,omitempty"`
	Street   string `json:"street,omitempty" bson:"street,omitempty"`
	Pincode  string `json:"pincode" bson:"pincode"`
	City     string `json:"city" bson:"city"`
	District string `json:"district" bson:"district"`
	State    string `json:"state" bson:"state"`
}

type Order struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	User            primitive.ObjectID `json:"user" bson:"user"`
	OrderID         string             `json:"orderId" bson:"orderId"`
	OrderItems      []OrderItem        `json:"orderItems" bson:"orderItems"`
	OrderedAmount   float64            `json:"orderedAmount" bson:"orderedAmount"`
	TotalAmount     float64            `json:"totalAmount" bson:"totalAmount"`
	PayableAmount   float64            `json:"payableAmount" bson:"payableAmount"`
	ShippingAddress ShippingAddress    `json:"shippingAddress" bson:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod" bson:"paymentMethod"`
	PaymentStatus   string             `json:"paymentStatus" bson:"paymentStatus"`
	PaymentIntentID string             `json:"paymentIntentId,omitempty" bson:"paymentIntentId,omitempty"`
	TotalDiscount   float64            `json:"totalDiscount" bson:"totalDiscount"`
	CouponDiscount  float64            `json:"couponDiscount" bson:"couponDiscount"`
	CouponCode      string             `json:"couponCode,omitempty" bson:"couponCode,omitempty"`
	ShippingFee     float64            `json:"shippingFee" bson:"shippingFee"`
	PlacedAt        time.Time          `json:"placedAt" bson:"placedAt"`
	DeliveryBy      time.Time          `json:"deliveryBy" bson:"deliveryBy"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
	IsReturnReq     bool               `json:"isReturnReq" bson:"isReturnReq"`
	OrderStatus     string             `json:"orderStatus" bson:"orderStatus"`
	Version         int64              `json:"-" bson:"version"`
}

// NewOrderID génère un identifiant lisible du type STC<millis><0-999>
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("STC%d%d", now.UnixMilli(), rand.IntN(1000))
}

// IsPrepaid indique si la commande a été réglée hors livraison (en ligne ou portefeuille)
func (o *Order) IsPrepaid() bool {
	return o.PaymentMethod == MethodOnline || o.PaymentMethod == MethodWallet
}

// RefundableToWallet : réglée d'avance et paiement encaissé
func (o *Order) RefundableToWallet() bool {
	return o.IsPrepaid() && o.PaymentStatus == PaymentCompleted
}

// FindItem retourne l'index de la ligne du produit, ou -1
func (o *Order) FindItem(productID primitive.ObjectID) int {
	for i, it := range o.OrderItems {
		if it.Product == productID {
			return i
		}
	}
	return -1
}

// AllItems retourne vrai si chaque ligne vérifie pred
func (o *Order) AllItems(pred func(OrderItem) bool) bool {
	for _, it := range o.OrderItems {
		if !pred(it) {
			return false
		}
	}
	return true
}

// OrderEvent est diffusé aux administrateurs connectés
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	UserID        string    `json:"userId"`
	Amount        float64   `json:"amount"`
	OrderStatus   string    `json:"orderStatus"`
	PaymentStatus string    `json:"paymentStatus"`
	At            time.Time `json:"at"`
}
