package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
)

var couponCodePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// CouponInput est le formulaire admin de création / modification
type CouponInput struct {
	CouponCode         string    `json:"couponCode" binding:"required"`
	Description        string    `json:"description" binding:"required"`
	DiscountPercentage float64   `json:"discountPercentage"`
	StartDate          time.Time `json:"startDate" binding:"required"`
	EndDate            time.Time `json:"endDate" binding:"required"`
	MinPurchaseAmount  float64   `json:"minPurchaseAmount"`
	MaxDiscountPrice   float64   `json:"maxDiscountPrice"`
}

type CouponService struct {
	coupons repository.CouponRepository
	users   repository.UserRepository
	now     func() time.Time
}

func NewCouponService(coupons repository.CouponRepository, users repository.UserRepository) *CouponService {
	return &CouponService{coupons: coupons, users: users, now: time.Now}
}

// Suitable liste les coupons actifs applicables au montant et jamais utilisés par l'utilisateur
func (s *CouponService) Suitable(ctx context.Context, userID primitive.ObjectID, amount float64) ([]models.Coupon, error) {
	now := s.now()
	coupons, err := s.coupons.ListUsable(ctx, now, amount)
	if err != nil {
		return nil, err
	}
	out := make([]models.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if c.UsedBy(userID) {
			continue
		}
		c.Status = c.StatusAt(now)
		c.Users = nil
		out = append(out, c)
	}
	return out, nil
}

// Validate contrôle un code pour un montant et retourne la remise applicable
func (s *CouponService) Validate(ctx context.Context, userID primitive.ObjectID, code string, amount float64) (*models.Coupon, float64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, 0, invalidAs(ErrCouponInvalid, "code coupon requis")
	}
	coupon, err := s.coupons.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, 0, invalidAs(ErrCouponInvalid, "coupon introuvable")
	}
	if err != nil {
		return nil, 0, err
	}
	if amount < coupon.MinPurchaseAmount {
		return nil, 0, invalidAs(ErrCouponInvalid, "montant minimum d'achat : %.2f", coupon.MinPurchaseAmount)
	}
	if !coupon.InWindow(s.now()) {
		return nil, 0, invalidAs(ErrCouponInvalid, "coupon expiré ou pas encore actif")
	}
	if coupon.UsedBy(userID) {
		return nil, 0, invalidAs(ErrCouponInvalid, "coupon déjà utilisé")
	}
	return coupon, coupon.DiscountFor(amount), nil
}

func (s *CouponService) Apply(ctx context.Context, userID primitive.ObjectID, code string, amount float64) (*models.CouponValidation, error) {
	if amount <= 0 {
		return nil, invalid("montant invalide")
	}
	coupon, discount, err := s.Validate(ctx, userID, code, amount)
	if err != nil {
		return nil, err
	}
	return &models.CouponValidation{
		Code:            coupon.CouponCode,
		DiscountApplied: discount,
		TotalAmount:     amount - discount,
	}, nil
}

// Claim réserve le coupon pour l'utilisateur; l'écriture conditionnelle
// empêche deux commandes concurrentes d'utiliser le même coupon
func (s *CouponService) Claim(ctx context.Context, couponID, userID primitive.ObjectID) error {
	err := s.coupons.AddUser(ctx, couponID, userID, s.now())
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return invalidAs(ErrCouponInvalid, "coupon déjà utilisé")
	case errors.Is(err, repository.ErrNotFound):
		return invalidAs(ErrCouponInvalid, "coupon introuvable")
	case err != nil:
		return fmt.Errorf("usage coupon: %w", err)
	}
	return nil
}

// Release annule un Claim quand la commande n'aboutit pas
func (s *CouponService) Release(ctx context.Context, couponID, userID primitive.ObjectID) {
	if err := s.coupons.RemoveUser(ctx, couponID, userID); err != nil {
		log.Printf("❌ Libération coupon %s pour %s impossible: %v", couponID.Hex(), userID.Hex(), err)
	}
}

// RecordApplied inscrit le coupon dans l'historique de l'utilisateur
func (s *CouponService) RecordApplied(ctx context.Context, couponID, userID primitive.ObjectID) error {
	if err := s.users.AddAppliedCoupon(ctx, userID, couponID, s.now()); err != nil {
		return fmt.Errorf("coupon appliqué utilisateur: %w", err)
	}
	return nil
}

//
// --- ADMIN ---
//

func (s *CouponService) List(ctx context.Context, page, limit int) ([]models.Coupon, int64, error) {
	coupons, total, err := s.coupons.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range coupons {
		coupons[i].Status = coupons[i].StatusAt(now)
	}
	return coupons, total, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// validateInput normalise le code; checkStart contrôle la date de début par rapport à aujourd'hui
func (s *CouponService) validateInput(in *CouponInput, checkStart bool) error {
	in.CouponCode = strings.ToUpper(strings.TrimSpace(in.CouponCode))
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case !couponCodePattern.MatchString(in.CouponCode):
		return invalid("le code ne doit contenir que des lettres et des chiffres")
	case in.Description == "":
		return invalid("la description est obligatoire")
	case in.MinPurchaseAmount <= 0:
		return invalid("le montant minimum d'achat doit être supérieur à 0")
	case in.MaxDiscountPrice < 0:
		return invalid("la remise maximale ne peut pas être négative")
	case in.DiscountPercentage < 1 || in.DiscountPercentage > 100:
		return invalid("le pourcentage doit être compris entre 1 et 100")
	}

	now := s.now()
	if checkStart && in.StartDate.In(now.Location()).Before(startOfDay(now)) {
		return invalid("la date de début ne peut pas être passée")
	}
	if !in.EndDate.After(in.StartDate) {
		return invalid("la date de fin doit être postérieure à la date de début")
	}
	return nil
}

func (s *CouponService) Create(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	if err := s.validateInput(&in, true); err != nil {
		return nil, err
	}
	if _, err := s.coupons.GetByCode(ctx, in.CouponCode); err == nil {
		return nil, fmt.Errorf("%w: le code %s existe déjà", ErrDuplicate, in.CouponCode)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	coupon := &models.Coupon{
		CouponCode:         in.CouponCode,
		Description:        in.Description,
		DiscountPercentage: in.DiscountPercentage,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		MinPurchaseAmount:  in.MinPurchaseAmount,
		MaxDiscountPrice:   in.MaxDiscountPrice,
	}
	coupon.Status = coupon.StatusAt(s.now())
	if err := s.coupons.Create(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *CouponService) Update(ctx context.Context, id primitive.ObjectID, in CouponInput) (*models.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// une date de début inchangée peut être dans le passé
	checkStart := !in.StartDate.Equal(coupon.StartDate)
	if err := s.validateInput(&in, checkStart); err != nil {
		return nil, err
	}
	if in.CouponCode != coupon.CouponCode {
		if other, err := s.coupons.GetByCode(ctx, in.CouponCode); err == nil && other.ID != coupon.ID {
			return nil, fmt.Errorf("%w: le code %s existe déjà", ErrDuplicate, in.CouponCode)
		}
	}

	coupon.CouponCode = in.CouponCode
	coupon.Description = in.Description
	coupon.DiscountPercentage = in.DiscountPercentage
	coupon.StartDate = in.StartDate
	coupon.EndDate = in.EndDate
	coupon.MinPurchaseAmount = in.MinPurchaseAmount
	coupon.MaxDiscountPrice = in.MaxDiscountPrice
	coupon.Status = coupon.StatusAt(s.now())
	if err := s.coupons.Update(ctx, coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *CouponService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.coupons.Delete(ctx, id)
}
