package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/cache"
	"stc_back_end/internal/repository"
	"stc_back_end/internal/utils"
)

const ResetTokenValidity = time.Hour

type PasswordService struct {
	users    repository.UserRepository
	sessions *cache.Store
	mailer   utils.Mailer
	now      func() time.Time
}

func NewPasswordService(users repository.UserRepository, sessions *cache.Store, mailer utils.Mailer) *PasswordService {
	if mailer == nil {
		mailer = utils.LogMailer{}
	}
	return &PasswordService{users: users, sessions: sessions, mailer: mailer, now: time.Now}
}

// Forgot envoie un OTP de réinitialisation valable 2 minutes
func (s *PasswordService) Forgot(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.sessions.SavePasswordOTP(ctx, u.Email, otp); err != nil {
		return err
	}
	subject, html, err := utils.OTPEmail(u.Username, otp, utils.OTPPurposePassword)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, u.Email, subject, html); err != nil {
		return fmt.Errorf("%w: envoi de l'OTP: %v", ErrUnavailable, err)
	}
	log.Printf("📧 OTP de réinitialisation envoyé à %s", u.Email)
	return nil
}

// VerifyOTP échange l'OTP contre un token de réinitialisation d'une heure
func (s *PasswordService) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	ok, err := s.sessions.ConsumePasswordOTP(ctx, normalizeEmail(email), otp)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", invalid("code OTP incorrect ou expiré")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	token, err := utils.GenerateResetToken()
	if err != nil {
		return "", err
	}
	if err := s.users.SetResetToken(ctx, u.ID, token, s.now().Add(ResetTokenValidity)); err != nil {
		return "", err
	}
	return token, nil
}

func (s *PasswordService) Reset(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if token == "" {
		return invalid("token de réinitialisation requis")
	}
	u, err := s.users.GetByResetToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("token de réinitialisation invalide")
	}
	if err != nil {
		return err
	}
	if u.ResetPasswordExpires == nil || s.now().After(*u.ResetPasswordExpires) {
		return invalid("token de réinitialisation expiré")
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, u.ID, hash)
}

// Change vérifie le mot de passe actuel; le nouveau doit être différent
func (s *PasswordService) Change(ctx context.Context, userID primitive.ObjectID, current, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if current == newPassword {
		return invalid("le nouveau mot de passe doit être différent de l'actuel")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.Password == "" {
		return invalid("ce compte n'a pas de mot de passe (connexion Google)")
	}
	ok, err := utils.VerifyPassword(current, u.Password)
	if err != nil || !ok {
		return invalidAs(ErrUnauthorized, "mot de passe actuel incorrect")
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, u.ID, hash)
}
