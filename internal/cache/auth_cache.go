package cache

import (
	"context"
	"strings"
	"time"

	"stc_back_end/internal/models"
)

const (
	// PendingSignupTTL borne la durée de vie d'une inscription non vérifiée
	PendingSignupTTL = 10 * time.Minute
	PasswordOTPTTL   = 2 * time.Minute
)

func signupKey(email string) string {
	return "signup:" + strings.ToLower(strings.TrimSpace(email))
}

func passwordOTPKey(email string) string {
	return "pwd_otp:" + strings.ToLower(strings.TrimSpace(email))
}

// SavePendingSignup remplace l'inscription en attente pour cet email
func (s *Store) SavePendingSignup(ctx context.Context, u *models.UnverifiedUser) error {
	return s.SetJSON(ctx, signupKey(u.Email), u, PendingSignupTTL)
}

func (s *Store) GetPendingSignup(ctx context.Context, email string) (*models.UnverifiedUser, error) {
	var u models.UnverifiedUser
	if err := s.GetJSON(ctx, signupKey(email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) DeletePendingSignup(ctx context.Context, email string) error {
	return s.Delete(ctx, signupKey(email))
}

// SavePasswordOTP stocke l'OTP de mot de passe oublié, valable 2 minutes
func (s *Store) SavePasswordOTP(ctx context.Context, email, otp string) error {
	return s.client.Set(ctx, passwordOTPKey(email), otp, PasswordOTPTTL).Err()
}

// ConsumePasswordOTP vérifie l'OTP et le supprime s'il est correct
func (s *Store) ConsumePasswordOTP(ctx context.Context, email, otp string) (bool, error) {
	stored, err := s.client.Get(ctx, passwordOTPKey(email)).Result()
	if err != nil {
		return false, nil
	}
	if stored != otp {
		return false, nil
	}
	return true, s.Delete(ctx, passwordOTPKey(email))
}
