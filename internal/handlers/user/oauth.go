package user

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"

	"stc_back_end/internal/auth"
	"stc_back_end/internal/handlers"
)

// GoogleCode POST /api/auth/google : flux SPA, le front envoie le code d'autorisation
func (h *Handler) GoogleCode(c *gin.Context) {
	if h.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Connexion Google non configurée"})
		return
	}
	var input struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, "Code Google manquant", err)
		return
	}
	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	profile, err := h.Google.Authenticate(ctx, input.Code)
	if err != nil {
		log.Printf("❌ Échec OAuth Google: %v", err)
		if errors.Is(err, auth.ErrEmailNotVerified) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email Google non vérifié"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentification Google échouée"})
		return
	}

	session, err := h.Auth.GoogleLogin(ctx, profile)
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	h.setSessionCookies(c, session)
	c.JSON(http.StatusOK, session)
}

// GoogleAuthURL GET /api/auth/google/url : URL de consentement pour le flux SPA
func (h *Handler) GoogleAuthURL(c *gin.Context) {
	if h.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Connexion Google non configurée"})
		return
	}
	state := uuid.NewString()
	c.JSON(http.StatusOK, gin.H{"url": h.Google.GetAuthURL(state), "state": state})
}

// BeginGoogleAuth GET /api/auth/google/login (redirection goth)
func (h *Handler) BeginGoogleAuth(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", "google")
	c.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// GoogleCallback GET /api/auth/google/callback : pose les cookies puis renvoie vers le front
func (h *Handler) GoogleCallback(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gu, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ Callback Google: %v", err)
		c.Redirect(http.StatusTemporaryRedirect, h.FrontendURL+"/login?error=oauth")
		return
	}

	ctx, cancel := handlers.Ctx(c)
	defer cancel()

	session, err := h.Auth.GoogleLogin(ctx, &auth.Profile{
		ProviderID: gu.UserID,
		Email:      gu.Email,
		Name:       gu.Name,
		Picture:    gu.AvatarURL,
		Verified:   true,
	})
	if err != nil {
		log.Printf("❌ Connexion Google refusée pour %s: %v", gu.Email, err)
		c.Redirect(http.StatusTemporaryRedirect, h.FrontendURL+"/login?error=blocked")
		return
	}
	h.setSessionCookies(c, session)
	log.Printf("✅ Connexion Google : %s", gu.Email)
	c.Redirect(http.StatusTemporaryRedirect, h.FrontendURL+"/")
}
