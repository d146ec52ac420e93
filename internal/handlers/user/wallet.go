package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
)

// WalletHistory GET /api/wallet
func (h *Handler) WalletHistory(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	page, limit := handlers.Pagination(c, 4)
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	history, err := h.Wallet.History(ctx, userID, page, limit)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// WalletBalance GET /api/wallet/balance
func (h *Handler) WalletBalance(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	balance, err := h.Wallet.Balance(ctx, userID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

type amountInput struct {
	Amount      float64 `json:"amount" binding:"required"`
	Description string  `json:"description"`
}

// CreditWallet POST /api/wallet/credit
func (h *Handler) CreditWallet(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var input amountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Montant requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	w, err := h.Wallet.Credit(ctx, userID, input.Amount, input.Description)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Portefeuille crédité", "balance": w.Balance})
}

// WithdrawWallet POST /api/wallet/withdraw
func (h *Handler) WithdrawWallet(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var input amountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Montant requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	w, err := h.Wallet.Withdraw(ctx, userID, input.Amount)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Retrait effectué", "balance": w.Balance})
}
