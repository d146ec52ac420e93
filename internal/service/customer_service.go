package service

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/cache"
	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
)

type CustomerService struct {
	users    repository.UserRepository
	sessions *cache.Store
}

func NewCustomerService(users repository.UserRepository, sessions *cache.Store) *CustomerService {
	return &CustomerService{users: users, sessions: sessions}
}

func (s *CustomerService) List(ctx context.Context, search string, page, limit int) ([]models.User, int64, error) {
	return s.users.ListCustomers(ctx, search, page, limit)
}

// SetBlocked bloque un client : drapeau Mongo, ban Redis et fin de session
func (s *CustomerService) SetBlocked(ctx context.Context, id primitive.ObjectID, blocked bool) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin {
		return ErrForbidden
	}
	if err := s.users.SetBlocked(ctx, id, blocked); err != nil {
		return err
	}

	uid := id.Hex()
	if !blocked {
		if err := s.sessions.UnbanUser(ctx, uid); err != nil {
			log.Printf("⚠️ Levée du ban Redis %s: %v", uid, err)
		}
		log.Printf("✅ Client débloqué : %s", u.Email)
		return nil
	}
	if err := s.sessions.BanUser(ctx, uid); err != nil {
		log.Printf("⚠️ Ban Redis %s: %v", uid, err)
	}
	if err := s.sessions.DeleteRefreshToken(ctx, uid); err != nil {
		log.Printf("⚠️ Suppression refresh token %s: %v", uid, err)
	}
	log.Printf("🚫 Client bloqué : %s", u.Email)
	return nil
}
