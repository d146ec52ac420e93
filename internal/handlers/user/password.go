package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
)

// ForgotPassword POST /api/user/forgot-password
func (h *Handler) ForgotPassword(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Email requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Passwords.Forgot(ctx, input.Email); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Code de réinitialisation envoyé par email"})
}

// VerifyPasswordOTP POST /api/user/forgot-password/verify
func (h *Handler) VerifyPasswordOTP(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Email et code requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	token, err := h.Passwords.VerifyOTP(ctx, input.Email, input.OTP)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resetToken": token})
}

// ResetPassword POST /api/user/reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	var input struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Token et nouveau mot de passe requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Passwords.Reset(ctx, input.Token, input.NewPassword); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Mot de passe réinitialisé avec succès"})
}

// ChangePassword POST /api/user/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var input struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Ancien et nouveau mot de passe requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Passwords.Change(ctx, userID, input.OldPassword, input.NewPassword); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Mot de passe modifié avec succès"})
}
