package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"
)

// Statuts Stripe utilisés par la vérification
const (
	IntentSucceeded = "succeeded"
	IntentCanceled  = "canceled"
)

// Événements webhook traités
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

var ErrInvalidSignature = errors.New("signature Stripe invalide")

// PaymentIntent est la vue réduite d'un PaymentIntent Stripe
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
}

// WebhookEvent est un événement Stripe déjà vérifié
type WebhookEvent struct {
	Type     string
	IntentID string
	// Amount est le montant du PaymentIntent en paise
	Amount   int64
	Metadata map[string]string
}

type StripeGateway struct {
	currency      string
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	if secretKey == "" {
		log.Println("⚠️ STRIPE_SECRET_KEY manquant, les paiements en ligne échoueront")
	}
	return &StripeGateway{currency: "inr", webhookSecret: webhookSecret}
}

// MinorUnits convertit un montant en paise
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount float64, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(amount)),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: metadata,
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("création PaymentIntent: %w", err)
	}
	log.Printf("💳 PaymentIntent créé : %s (%.2f)", intent.ID, amount)
	return toPaymentIntent(intent), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("lecture PaymentIntent %s: %w", id, err)
	}
	return toPaymentIntent(intent), nil
}

// ParseWebhook vérifie la signature puis extrait le PaymentIntent concerné.
// Sans secret configuré le payload est accepté tel quel (mode test).
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	var event stripe.Event
	if g.webhookSecret == "" {
		log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET, mode test")
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("JSON invalide: %w", err)
		}
	} else {
		var err error
		event, err = webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}

	out := &WebhookEvent{Type: string(event.Type)}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err == nil {
		out.IntentID = pi.ID
		out.Amount = pi.Amount
		out.Metadata = pi.Metadata
	}
	return out, nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
	}
}
