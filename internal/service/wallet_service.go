package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/repository"
)

const defaultWalletPageSize = 4

// WalletHistory est une page de l'historique du portefeuille
type WalletHistory struct {
	Balance           float64                    `json:"balance"`
	Transactions      []models.WalletTransaction `json:"transactions"`
	TotalTransactions int                        `json:"totalTransactions"`
	Page              models.Page                `json:"pagination"`
}

type WalletService struct {
	wallets repository.WalletRepository
}

func NewWalletService(wallets repository.WalletRepository) *WalletService {
	return &WalletService{wallets: wallets}
}

// History trie les mouvements du plus récent au plus ancien puis pagine
func (s *WalletService) History(ctx context.Context, userID primitive.ObjectID, page, limit int) (*WalletHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultWalletPageSize
	}
	w, err := s.wallets.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs := append([]models.WalletTransaction(nil), w.Transactions...)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })

	total := len(txs)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return &WalletHistory{
		Balance:           w.Balance,
		Transactions:      txs[start:end],
		TotalTransactions: total,
		Page:              models.NewPage(page, limit, int64(total)),
	}, nil
}

func (s *WalletService) Credit(ctx context.Context, userID primitive.ObjectID, amount float64, description string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, invalid("le montant doit être positif")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "Wallet credit"
	}
	return s.wallets.Credit(ctx, userID, amount, description)
}

func (s *WalletService) Withdraw(ctx context.Context, userID primitive.ObjectID, amount float64) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, invalid("le montant doit être positif")
	}
	w, err := s.wallets.Debit(ctx, userID, amount, "Withdrawal")
	if errors.Is(err, repository.ErrInsufficientBalance) {
		return nil, invalidAs(ErrInsufficientBalance, "solde insuffisant")
	}
	return w, err
}

// Balance renvoie 0 quand le portefeuille n'existe pas encore
func (s *WalletService) Balance(ctx context.Context, userID primitive.ObjectID) (float64, error) {
	w, err := s.wallets.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}
