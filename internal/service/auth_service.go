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

	"stc_back_end/internal/auth"
	"stc_back_end/internal/cache"
	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
	"stc_back_end/internal/utils"
)

const (
	MinPasswordLength = 8
	OTPValidity       = 2 * time.Minute
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,13}$`)

type SignupInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
}

// Session est la réponse d'une connexion réussie
type Session struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         *models.User `json:"user"`
}

type AuthService struct {
	users    repository.UserRepository
	sessions *cache.Store
	tokens   *utils.JWTManager
	mailer   utils.Mailer
	now      func() time.Time
}

func NewAuthService(users repository.UserRepository, sessions *cache.Store, tokens *utils.JWTManager, mailer utils.Mailer) *AuthService {
	if mailer == nil {
		mailer = utils.LogMailer{}
	}
	return &AuthService{users: users, sessions: sessions, tokens: tokens, mailer: mailer, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return invalid("le mot de passe doit contenir au moins %d caractères", MinPasswordLength)
	}
	return nil
}

func (s *AuthService) sendOTP(ctx context.Context, to, name, otp, purpose string) error {
	subject, html, err := utils.OTPEmail(name, otp, purpose)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, to, subject, html); err != nil {
		return fmt.Errorf("%w: envoi de l'OTP: %v", ErrUnavailable, err)
	}
	return nil
}

// issue signe les deux tokens et garde le refresh token dans Redis
func (s *AuthService) issue(ctx context.Context, u *models.User) (*Session, error) {
	access, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(u)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.StoreRefreshToken(ctx, u.ID.Hex(), refresh, utils.RefreshTokenTTL); err != nil {
		return nil, fmt.Errorf("stockage refresh token: %w", err)
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// Signup met l'inscription en attente dans Redis et envoie l'OTP par email
func (s *AuthService) Signup(ctx context.Context, in SignupInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	switch {
	case len(in.Username) < 3:
		return invalid("le nom d'utilisateur doit contenir au moins 3 caractères")
	case in.Email == "":
		return invalid("email requis")
	case in.Phone != "" && !phonePattern.MatchString(in.Phone):
		return invalid("numéro de téléphone invalide")
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}

	if u, err := s.users.GetByEmail(ctx, in.Email); err == nil && u.IsVerified {
		return fmt.Errorf("%w: un compte existe déjà pour %s", ErrDuplicate, in.Email)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return err
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return err
	}
	pending := &models.UnverifiedUser{
		Username:     in.Username,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		OTP:          otp,
		OTPExpiresAt: s.now().Add(OTPValidity),
	}
	if err := s.sessions.SavePendingSignup(ctx, pending); err != nil {
		return err
	}
	log.Printf("📧 OTP d'inscription envoyé à %s", in.Email)
	return s.sendOTP(ctx, in.Email, in.Username, otp, utils.OTPPurposeSignup)
}

func (s *AuthService) pendingSignup(ctx context.Context, email string) (*models.UnverifiedUser, error) {
	pending, err := s.sessions.GetPendingSignup(ctx, email)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, invalid("aucune inscription en attente pour cet email")
	}
	return pending, err
}

// VerifyOTP crée le compte vérifié et ouvre une session
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (*Session, error) {
	email = normalizeEmail(email)
	pending, err := s.pendingSignup(ctx, email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(otp) != pending.OTP {
		return nil, invalid("code OTP incorrect")
	}
	if s.now().After(pending.OTPExpiresAt) {
		return nil, invalid("code OTP expiré")
	}

	u := &models.User{
		Username:   pending.Username,
		Email:      pending.Email,
		Phone:      pending.Phone,
		Password:   pending.PasswordHash,
		IsVerified: true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: un compte existe déjà pour %s", ErrDuplicate, email)
		}
		return nil, err
	}
	if err := s.sessions.DeletePendingSignup(ctx, email); err != nil {
		log.Printf("⚠️ Inscription en attente non supprimée (%s): %v", email, err)
	}
	log.Printf("✅ Nouvel utilisateur vérifié : %s", u.Email)
	return s.issue(ctx, u)
}

func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	pending, err := s.pendingSignup(ctx, email)
	if err != nil {
		return err
	}
	otp, err := utils.GenerateOTP()
	if err != nil {
		return err
	}
	pending.OTP = otp
	pending.OTPExpiresAt = s.now().Add(OTPValidity)
	if err := s.sessions.SavePendingSignup(ctx, pending); err != nil {
		return err
	}
	return s.sendOTP(ctx, email, pending.Username, otp, utils.OTPPurposeSignup)
}

// SignIn vérifie les identifiants; admin sélectionne l'espace de connexion
func (s *AuthService) SignIn(ctx context.Context, email, password string, admin bool) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	switch {
	case admin && !u.IsAdmin:
		return nil, ErrForbidden
	case !admin && u.IsAdmin:
		return nil, invalidAs(ErrForbidden, "les administrateurs utilisent la connexion admin")
	case !u.IsVerified:
		return nil, invalidAs(ErrForbidden, "compte non vérifié")
	case u.IsBlocked:
		return nil, invalidAs(ErrForbidden, "compte bloqué")
	case u.Password == "":
		return nil, invalidAs(ErrUnauthorized, "ce compte utilise la connexion Google")
	}
	ok, err := utils.VerifyPassword(password, u.Password)
	if err != nil || !ok {
		return nil, ErrUnauthorized
	}
	return s.issue(ctx, u)
}

// Refresh émet un nouvel access token si le refresh token est celui stocké
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	stored, err := s.sessions.GetRefreshToken(ctx, claims.UserID)
	if err != nil || stored != refreshToken {
		return nil, ErrUnauthorized
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if u.IsBlocked {
		return nil, invalidAs(ErrForbidden, "compte bloqué")
	}
	access, err := s.tokens.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: access, User: u}, nil
}

// Logout supprime le refresh token et révoque l'access token jusqu'à son expiration
func (s *AuthService) Logout(ctx context.Context, userID, tokenID string, remaining time.Duration) error {
	if err := s.sessions.DeleteRefreshToken(ctx, userID); err != nil {
		return err
	}
	if tokenID == "" {
		return nil
	}
	return s.sessions.BlacklistToken(ctx, tokenID, remaining)
}

// GoogleLogin retrouve ou crée le compte associé au profil Google
func (s *AuthService) GoogleLogin(ctx context.Context, p *auth.Profile) (*Session, error) {
	email := normalizeEmail(p.Email)
	if email == "" {
		return nil, invalid("profil Google sans email")
	}
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsBlocked {
			return nil, invalidAs(ErrForbidden, "compte bloqué")
		}
		if u.GoogleID == "" || !u.IsVerified {
			if err := s.users.LinkGoogle(ctx, u.ID, p.ProviderID, p.Picture); err != nil {
				return nil, err
			}
			u.GoogleID, u.IsVerified = p.ProviderID, true
		}
	case errors.Is(err, repository.ErrNotFound):
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = strings.Split(email, "@")[0]
		}
		u = &models.User{
			Username:   name,
			Email:      email,
			GoogleID:   p.ProviderID,
			Avatar:     p.Picture,
			IsVerified: true,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		log.Printf("✅ Compte créé via Google : %s", email)
	default:
		return nil, err
	}
	return s.issue(ctx, u)
}

func (s *AuthService) Me(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) UpdateMe(ctx context.Context, id primitive.ObjectID, username, phone string) (*models.User, error) {
	username = strings.TrimSpace(username)
	phone = strings.TrimSpace(phone)
	if len(username) < 3 {
		return nil, invalid("le nom d'utilisateur doit contenir au moins 3 caractères")
	}
	if phone != "" && !phonePattern.MatchString(phone) {
		return nil, invalid("numéro de téléphone invalide")
	}
	if err := s.users.UpdateProfile(ctx, id, username, phone); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}
