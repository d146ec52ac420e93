package service

import (
	"errors"
	"fmt"

	"stc_back_end/internal/repository"
)

var (
	ErrNotFound            = repository.ErrNotFound
	ErrDuplicate           = repository.ErrDuplicate
	ErrConflict            = repository.ErrConflict
	ErrInsufficientStock   = repository.ErrInsufficientStock
	ErrInsufficientBalance = repository.ErrInsufficientBalance

	ErrInvalidInput   = errors.New("données invalides")
	ErrUnauthorized   = errors.New("identifiants invalides")
	ErrForbidden      = errors.New("accès refusé")
	ErrEmptyCart      = errors.New("panier vide")
	ErrCouponInvalid  = errors.New("coupon invalide")
	ErrOrderDelivered = errors.New("commande déjà livrée")
	ErrOrderCancelled = errors.New("commande déjà annulée")
	ErrUnavailable    = errors.New("service indisponible")
)

// InputError porte un message destiné au client; errors.Is reconnaît ErrInvalidInput et Kind
type InputError struct {
	Kind error
	Msg  string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput || (e.Kind != nil && target == e.Kind)
}

func invalid(format string, args ...interface{}) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

func invalidAs(kind error, format string, args ...interface{}) error {
	return &InputError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
