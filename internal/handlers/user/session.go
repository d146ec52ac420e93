package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/handlers"
	"stc_back_end/internal/middleware"
	"stc_back_end/internal/service"
	"stc_back_end/internal/utils"
)

const refreshTokenCookie = "refresh_token"

func (h *Handler) setSessionCookies(c *gin.Context, s *service.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, s.AccessToken, int(utils.AccessTokenTTL.Seconds()), "/", "", h.SecureCookies, true)
	if s.RefreshToken != "" {
		c.SetCookie(refreshTokenCookie, s.RefreshToken, int(utils.RefreshTokenTTL.Seconds()), "/api/auth", "", h.SecureCookies, true)
	}
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.SecureCookies, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/api/auth", "", h.SecureCookies, true)
}

// Signup POST /api/user/signup
func (h *Handler) Signup(c *gin.Context) {
	var input service.SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Données d'inscription invalides", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Auth.Signup(ctx, input); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Code de vérification envoyé par email", "email": input.Email})
}

// VerifyOTP POST /api/user/verify-otp
func (h *Handler) VerifyOTP(c *gin.Context) {
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

	session, err := h.Auth.VerifyOTP(ctx, input.Email, input.OTP)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.setSessionCookies(c, session)
	c.JSON(http.StatusCreated, session)
}

// ResendOTP POST /api/user/resend-otp
func (h *Handler) ResendOTP(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Email requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Auth.ResendOTP(ctx, input.Email); err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Nouveau code envoyé"})
}

type signInInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signIn(c *gin.Context, admin bool) {
	var input signInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Email et mot de passe requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	session, err := h.Auth.SignIn(ctx, input.Email, input.Password, admin)
	if err != nil {
		if admin {
			h.Audit.LogFailedAction(c, utils.ACTION_LOGIN_FAILED, utils.RESOURCE_AUTH, input.Email, err.Error())
		}
		if errors.Is(err, service.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
			return
		}
		handlers.Fail(c, err)
		return
	}
	if admin {
		c.Set(middleware.CtxUserID, session.User.ID.Hex())
		c.Set(middleware.CtxEmail, session.User.Email)
		h.Audit.LogAction(c, utils.ACTION_LOGIN_SUCCESS, utils.RESOURCE_AUTH, session.User.ID.Hex(), nil)
	}
	h.setSessionCookies(c, session)
	c.JSON(http.StatusOK, session)
}

// SignIn POST /api/user/signin
func (h *Handler) SignIn(c *gin.Context) { h.signIn(c, false) }

// AdminSignIn POST /api/admin/signin
func (h *Handler) AdminSignIn(c *gin.Context) { h.signIn(c, true) }

// RefreshToken POST /api/auth/refresh-token (body ou cookie)
func (h *Handler) RefreshToken(c *gin.Context) {
	var input struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.ShouldBindJSON(&input)
	if input.RefreshToken == "" {
		input.RefreshToken, _ = c.Cookie(refreshTokenCookie)
	}
	if input.RefreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token manquant"})
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	session, err := h.Auth.Refresh(ctx, input.RefreshToken)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.setSessionCookies(c, session)
	c.JSON(http.StatusOK, gin.H{"accessToken": session.AccessToken})
}

// Logout DELETE /api/auth/refresh-token
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, claims.UserID, claims.ID, claims.RemainingTTL()); err != nil {
		handlers.Fail(c, err)
		return
	}
	if claims.Role == "admin" {
		h.Audit.LogAction(c, utils.ACTION_LOGOUT, utils.RESOURCE_AUTH, claims.UserID, nil)
	}
	h.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "Déconnexion réussie"})
}

// Me GET /api/user/me
func (h *Handler) Me(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	u, err := h.Auth.Me(ctx, userID)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateMe PUT /api/user/me
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, ok := handlers.CurrentUser(c)
	if !ok {
		return
	}
	var input struct {
		Username string `json:"username" binding:"required"`
		Phone    string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Nom d'utilisateur requis", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	u, err := h.Auth.UpdateMe(ctx, userID, input.Username, input.Phone)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
