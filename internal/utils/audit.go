package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"stc_back_end/internal/models"
)

// ErrAuditDisabled est renvoyée quand aucune session Scylla n'est configurée
var ErrAuditDisabled = errors.New("journal d'audit désactivé")

const auditDayLayout = "2006-01-02"

// auditLookbackDays borne le nombre de partitions lues par Recent
const auditLookbackDays = 30

const insertAuditQuery = `
	INSERT INTO audit_logs (
		day, id, user_id, user_email, action, resource, resource_id,
		details, ip_address, user_agent, success, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectAuditQuery = `
	SELECT id, user_id, user_email, action, resource, resource_id,
		details, ip_address, user_agent, success, timestamp
	FROM audit_logs WHERE day = ? LIMIT ?`

// AuditLogger écrit les actions sensibles dans ScyllaDB.
// Une session nil désactive l'écriture : les entrées sont seulement journalisées.
type AuditLogger struct {
	session *gocql.Session
}

func NewAuditLogger(session *gocql.Session) *AuditLogger {
	return &AuditLogger{session: session}
}

// Enabled indique si les entrées sont persistées
func (a *AuditLogger) Enabled() bool {
	return a != nil && a.session != nil
}

// LogAction enregistre une action réussie de façon asynchrone
func (a *AuditLogger) LogAction(c *gin.Context, action, resource, resourceID string, details interface{}) {
	a.dispatch(NewAuditEntry(c, action, resource, resourceID, details, true))
}

// LogFailedAction enregistre une action refusée ou échouée
func (a *AuditLogger) LogFailedAction(c *gin.Context, action, resource, resourceID, errorMsg string) {
	a.dispatch(NewAuditEntry(c, action, resource, resourceID, gin.H{"error": errorMsg}, false))
}

// dispatch : l'entrée est construite avant le goroutine, le gin.Context est recyclé après la requête
func (a *AuditLogger) dispatch(entry models.AuditLog) {
	if a == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Record(ctx, entry); err != nil {
			if errors.Is(err, ErrAuditDisabled) {
				log.Printf("📝 Audit %s %s/%s par %s", entry.Action, entry.Resource, entry.ResourceID, entry.UserEmail)
				return
			}
			log.Printf("❌ Erreur enregistrement log audit: %v", err)
		}
	}()
}

// NewAuditEntry construit une entrée à partir de la requête en cours
func NewAuditEntry(c *gin.Context, action, resource, resourceID string, details interface{}, success bool) models.AuditLog {
	entry := models.AuditLog{
		ID:         gocql.TimeUUID(),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Success:    success,
		Timestamp:  time.Now().UTC(),
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}
	if c != nil {
		entry.UserID = c.GetString("user_id")
		entry.UserEmail = c.GetString("email")
		entry.IPAddress = c.ClientIP()
		entry.UserAgent = c.GetHeader("User-Agent")
	}
	return entry
}

// Record écrit une entrée de façon synchrone
func (a *AuditLogger) Record(ctx context.Context, entry models.AuditLog) error {
	if !a.Enabled() {
		return ErrAuditDisabled
	}
	return a.session.Query(insertAuditQuery,
		entry.Timestamp.Format(auditDayLayout), entry.ID, entry.UserID, entry.UserEmail,
		entry.Action, entry.Resource, entry.ResourceID, entry.Details,
		entry.IPAddress, entry.UserAgent, entry.Success, entry.Timestamp,
	).WithContext(ctx).Exec()
}

// Recent retourne les dernières entrées, du jour courant vers le passé
func (a *AuditLogger) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if !a.Enabled() {
		return nil, ErrAuditDisabled
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	logs := make([]models.AuditLog, 0, limit)
	day := time.Now().UTC()
	for i := 0; i < auditLookbackDays && len(logs) < limit; i++ {
		iter := a.session.Query(selectAuditQuery, day.Format(auditDayLayout), limit-len(logs)).
			WithContext(ctx).Iter()

		var entry models.AuditLog
		for iter.Scan(&entry.ID, &entry.UserID, &entry.UserEmail, &entry.Action, &entry.Resource,
			&entry.ResourceID, &entry.Details, &entry.IPAddress, &entry.UserAgent,
			&entry.Success, &entry.Timestamp) {
			logs = append(logs, entry)
			entry = models.AuditLog{}
		}
		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("lecture audit_logs: %w", err)
		}
		day = day.AddDate(0, 0, -1)
	}
	return logs, nil
}

// Actions d'audit prédéfinies
const (
	// Actions produits
	ACTION_PRODUCT_CREATE = "product.create"
	ACTION_PRODUCT_UPDATE = "product.update"
	ACTION_PRODUCT_BLOCK  = "product.block"
	ACTION_PRODUCT_OFFER  = "product.offer"
	ACTION_PRODUCT_IMAGE  = "product.image"

	// Actions catégories
	ACTION_CATEGORY_CREATE = "category.create"
	ACTION_CATEGORY_UPDATE = "category.update"
	ACTION_CATEGORY_BLOCK  = "category.block"
	ACTION_CATEGORY_OFFER  = "category.offer"

	// Actions commandes
	ACTION_ORDER_CREATE = "order.create"
	ACTION_ORDER_STATUS = "order.status"
	ACTION_ORDER_CANCEL = "order.cancel"
	ACTION_ORDER_RETURN = "order.return"

	// Actions utilisateurs
	ACTION_USER_BAN   = "user.ban"
	ACTION_USER_UNBAN = "user.unban"

	// Actions coupons
	ACTION_COUPON_CREATE = "coupon.create"
	ACTION_COUPON_UPDATE = "coupon.update"
	ACTION_COUPON_DELETE = "coupon.delete"

	// Actions système
	ACTION_LOGIN_SUCCESS = "auth.login_success"
	ACTION_LOGIN_FAILED  = "auth.login_failed"
	ACTION_LOGOUT        = "auth.logout"
)

// Resources d'audit
const (
	RESOURCE_PRODUCT  = "product"
	RESOURCE_CATEGORY = "category"
	RESOURCE_ORDER    = "order"
	RESOURCE_USER     = "user"
	RESOURCE_COUPON   = "coupon"
	RESOURCE_AUTH     = "auth"
)
