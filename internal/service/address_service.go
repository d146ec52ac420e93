package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
)

const defaultCountry = "India"

// AddressInput est le formulaire d'adresse de livraison
type AddressInput struct {
	Name                 string `json:"name" binding:"required"`
	Email                string `json:"email" binding:"required,email"`
	Phone                string `json:"phone" binding:"required"`
	Pincode              string `json:"pincode" binding:"required"`
	FlatHouseNo          string `json:"flatHouseNo"`
	AreaStreet           string `json:"areaStreet"`
	Landmark             string `json:"landmark"`
	City                 string `json:"city" binding:"required"`
	District             string `json:"district" binding:"required"`
	State                string `json:"state" binding:"required"`
	Country              string `json:"country"`
	AddressType          string `json:"addressType"`
	IsDefault            bool   `json:"isDefault"`
	DeliveryInstructions string `json:"deliveryInstructions"`
}

func (in AddressInput) apply(a *models.Address) error {
	if in.AddressType != "" && !models.IsValidAddressType(in.AddressType) {
		return invalid("type d'adresse inconnu: %q", in.AddressType)
	}
	a.Name = strings.TrimSpace(in.Name)
	a.Email = strings.TrimSpace(in.Email)
	a.Phone = strings.TrimSpace(in.Phone)
	a.Pincode = strings.TrimSpace(in.Pincode)
	a.FlatHouseNo = in.FlatHouseNo
	a.AreaStreet = in.AreaStreet
	a.Landmark = in.Landmark
	a.City = in.City
	a.District = in.District
	a.State = in.State
	a.Country = strings.TrimSpace(in.Country)
	if a.Country == "" {
		a.Country = defaultCountry
	}
	a.AddressType = in.AddressType
	if a.AddressType == "" {
		a.AddressType = "home"
	}
	a.DeliveryInstructions = in.DeliveryInstructions
	return nil
}

type AddressService struct {
	addresses repository.AddressRepository
}

func NewAddressService(addresses repository.AddressRepository) *AddressService {
	return &AddressService{addresses: addresses}
}

func (s *AddressService) owned(ctx context.Context, userID, id primitive.ObjectID) (*models.Address, error) {
	a, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrNotFound
	}
	return a, nil
}

// Add enregistre l'adresse; la première devient l'adresse par défaut
func (s *AddressService) Add(ctx context.Context, userID primitive.ObjectID, in AddressInput) (*models.Address, error) {
	a := &models.Address{UserID: userID}
	if err := in.apply(a); err != nil {
		return nil, err
	}
	count, err := s.addresses.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	makeDefault := in.IsDefault || count == 0
	if err := s.addresses.Create(ctx, a); err != nil {
		return nil, err
	}
	if makeDefault {
		if err := s.addresses.SetDefault(ctx, userID, a.ID); err != nil {
			return nil, err
		}
		a.IsDefault = true
	}
	return a, nil
}

func (s *AddressService) List(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	return s.addresses.ListByUser(ctx, userID)
}

func (s *AddressService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Address, error) {
	return s.owned(ctx, userID, id)
}

func (s *AddressService) Update(ctx context.Context, userID, id primitive.ObjectID, in AddressInput) (*models.Address, error) {
	a, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(a); err != nil {
		return nil, err
	}
	if err := s.addresses.Update(ctx, a); err != nil {
		return nil, err
	}
	if in.IsDefault && !a.IsDefault {
		if err := s.addresses.SetDefault(ctx, userID, a.ID); err != nil {
			return nil, err
		}
		a.IsDefault = true
	}
	return a, nil
}

// Remove supprime l'adresse et promeut la plus récente si c'était celle par défaut
func (s *AddressService) Remove(ctx context.Context, userID, id primitive.ObjectID) error {
	a, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.addresses.Delete(ctx, id); err != nil {
		return err
	}
	if !a.IsDefault {
		return nil
	}
	rest, err := s.addresses.ListByUser(ctx, userID)
	if err != nil || len(rest) == 0 {
		return err
	}
	latest := rest[0]
	for _, r := range rest[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return s.addresses.SetDefault(ctx, userID, latest.ID)
}

func (s *AddressService) SetDefault(ctx context.Context, userID, id primitive.ObjectID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	err := s.addresses.SetDefault(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
