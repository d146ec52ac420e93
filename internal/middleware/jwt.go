package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stc_back_end/internal/cache"
	"stc_back_end/internal/utils"
)

// AccessTokenCookie est le cookie posé par la connexion Google
const AccessTokenCookie = "access_token"

// Clés du contexte Gin renseignées par AuthRequired
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
	CtxClaims = "claims"
)

// bearerToken lit le header Authorization puis, à défaut, le cookie
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

func AuthRequired(tokens *utils.JWTManager, sessions *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token manquant"})
			return
		}

		claims, err := tokens.ParseAccessToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token invalide"})
			return
		}

		ctx := c.Request.Context()
		if claims.ID != "" && sessions.IsTokenBlacklisted(ctx, claims.ID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token révoqué"})
			return
		}
		if sessions.IsUserBanned(ctx, claims.UserID) {
			log.Printf("🚫 Requête refusée pour l'utilisateur bloqué %s", claims.UserID)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Compte bloqué"})
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth renseigne l'utilisateur quand un token valide est présent, sans jamais refuser
func OptionalAuth(tokens *utils.JWTManager, sessions *cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			claims, err := tokens.ParseAccessToken(raw)
			if err == nil && !sessions.IsTokenBlacklisted(c.Request.Context(), claims.ID) {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *utils.Claims) {
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxEmail, claims.Email)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxClaims, claims)
}

// ClaimsFrom retourne les claims posés par AuthRequired
func ClaimsFrom(c *gin.Context) (*utils.Claims, bool) {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok
}
