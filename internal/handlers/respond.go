package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stc_back_end/internal/models"
	"stc_back_end/internal/service"
)

// RequestTimeout borne chaque appel base de données d'un handler
const RequestTimeout = 10 * time.Second

// Ctx dérive le contexte de la requête avec RequestTimeout
func Ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), RequestTimeout)
}

// StatusFor traduit une erreur de service en code HTTP.
// Les erreurs métier précises passent avant ErrInvalidInput qu'elles satisfont aussi.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrCouponInvalid),
		errors.Is(err, service.ErrOrderDelivered),
		errors.Is(err, service.ErrOrderCancelled):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Fail écrit l'erreur au format {"error": ...}; les 500 ne divulguent pas le détail
func Fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "Erreur interne du serveur"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// BadRequest répond 400 avec le détail de validation
func BadRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// CurrentUser lit l'utilisateur posé par AuthRequired
func CurrentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// ObjectIDParam lit un paramètre de route ObjectID, 400 sinon
func ObjectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide: " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

// Pagination lit ?page= et ?limit=, avec des bornes raisonnables
func Pagination(c *gin.Context, defaultLimit int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// Paginated renvoie une liste sous la clé donnée avec sa pagination
func Paginated(c *gin.Context, key string, items interface{}, page, limit int, total int64) {
	c.JSON(http.StatusOK, gin.H{
		key:          items,
		"pagination": models.NewPage(page, limit, total),
	})
}
