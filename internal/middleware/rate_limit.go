package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/cache"
)

const (
	// Limites par endpoint
	LoginMaxAttempts          = 5
	RegisterMaxAttempts       = 3
	ForgotPasswordMaxAttempts = 3
	CartMaxRequests           = 20
	SearchMaxRequests         = 30
	APIMaxRequests            = 100 // Par minute pour les endpoints généraux

	// Durées de cooldown
	LoginCooldown          = 15 * time.Minute
	RegisterCooldown       = 30 * time.Minute
	ForgotPasswordCooldown = 10 * time.Minute
	APICooldown            = 1 * time.Minute
)

func tooManyRequests(c *gin.Context, retry time.Duration, msg string) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       msg,
		"retry_after": int(retry.Seconds()),
	})
}

// peekEmail lit l'email du body JSON sans le consommer
func peekEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	var input struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(input.Email))
}

// windowLimit compte chaque requête dans une fenêtre; au-delà de max la requête est refusée
func windowLimit(store *cache.Store, key string, max int64, window time.Duration, msg string, c *gin.Context) bool {
	ctx := c.Request.Context()
	n, err := store.IncrementRateLimit(ctx, key, window)
	if err != nil {
		// Redis indisponible : on laisse passer
		log.Printf("⚠️ Rate limit %s indisponible: %v", key, err)
		return true
	}
	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
	if n > max {
		tooManyRequests(c, store.RetryAfter(ctx, key), msg)
		return false
	}
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max-n))
	return true
}

// LoginRateLimit limite les tentatives de connexion échouées par email
func LoginRateLimit(store *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := peekEmail(c)
		if email == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "login_attempts:" + email
		cooldownKey := "login_cooldown:" + email

		// Vérifier si l'utilisateur est en cooldown
		if ttl := store.RetryAfter(ctx, cooldownKey); ttl > 0 {
			tooManyRequests(c, ttl, fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(ttl.Minutes())+1))
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			attempts, err := store.IncrementRateLimit(ctx, key, LoginCooldown)
			if err != nil {
				log.Printf("⚠️ Compteur de connexion %s: %v", email, err)
				return
			}
			if attempts >= LoginMaxAttempts {
				if err := store.StartCooldown(ctx, cooldownKey, LoginCooldown); err != nil {
					log.Printf("⚠️ Cooldown connexion %s: %v", email, err)
				}
				_ = store.ResetRateLimit(ctx, key)
				log.Printf("🔒 Connexion suspendue %v pour %s", LoginCooldown, email)
			}
		case http.StatusOK:
			// Login réussi, réinitialiser les tentatives
			_ = store.ResetRateLimit(ctx, key)
		}
	}
}

// RegisterRateLimit limite les inscriptions par IP
func RegisterRateLimit(store *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		msg := fmt.Sprintf("Trop d'inscriptions. Réessayez dans %d minutes", int(RegisterCooldown.Minutes()))
		if !windowLimit(store, "register_attempts:"+c.ClientIP(), RegisterMaxAttempts, RegisterCooldown, msg, c) {
			return
		}
		c.Next()
	}
}

// ForgotPasswordRateLimit limite les demandes d'OTP de mot de passe par email
func ForgotPasswordRateLimit(store *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := peekEmail(c)
		if email == "" {
			c.Next()
			return
		}
		msg := fmt.Sprintf("Trop de demandes. Réessayez dans %d minutes", int(ForgotPasswordCooldown.Minutes()))
		if !windowLimit(store, "forgot_password_attempts:"+email, ForgotPasswordMaxAttempts, ForgotPasswordCooldown, msg, c) {
			return
		}
		c.Next()
	}
}

// APIRateLimit limite le nombre de requêtes par IP (général)
func APIRateLimit(store *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !windowLimit(store, "api_requests:"+c.ClientIP(), APIMaxRequests, APICooldown, "Trop de requêtes. Réessayez dans 1 minute", c) {
			return
		}
		c.Next()
	}
}

// CartRateLimit limite les ajouts au panier (anti-spam), après AuthRequired
func CartRateLimit(store *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserID)
		if userID == "" {
			c.Next()
			return
		}
		if !windowLimit(store, "cart_add:"+userID, CartMaxRequests, time.Minute, "Trop d'ajouts au panier. Ralentissez un peu", c) {
			return
		}
		c.Next()
	}
}

// SearchRateLimit limite les recherches (anti-spam)
func SearchRateLimit(store *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !windowLimit(store, "search_requests:"+c.ClientIP(), SearchMaxRequests, time.Minute, "Trop de recherches. Réessayez dans 1 minute", c) {
			return
		}
		c.Next()
	}
}
