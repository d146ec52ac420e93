package database

import (
	"fmt"
	"log"
	"regexp"

	"github.com/gocql/gocql"
)

var keyspaceName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,47}$`)

// Une partition par jour, entrées les plus récentes en premier
const createAuditTable = `
	CREATE TABLE IF NOT EXISTS %s.audit_logs (
		day text,
		id timeuuid,
		user_id text,
		user_email text,
		action text,
		resource text,
		resource_id text,
		details text,
		ip_address text,
		user_agent text,
		success boolean,
		timestamp timestamp,
		PRIMARY KEY ((day), id)
	) WITH CLUSTERING ORDER BY (id DESC)
	AND default_time_to_live = 31536000`

// AuditSchemaStatements retourne les requêtes CQL de création du journal d'audit
func AuditSchemaStatements(keyspace string) ([]string, error) {
	if !keyspaceName.MatchString(keyspace) {
		return nil, fmt.Errorf("nom de keyspace invalide: %q", keyspace)
	}
	return []string{
		fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
			WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, keyspace),
		fmt.Sprintf(createAuditTable, keyspace),
	}, nil
}

// EnsureAuditSchema crée le keyspace et la table audit_logs s'ils n'existent pas
func EnsureAuditSchema(session *gocql.Session, keyspace string) error {
	stmts, err := AuditSchemaStatements(keyspace)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("schéma audit: %w", err)
		}
	}
	log.Printf("✅ Schéma audit prêt (%s.audit_logs)", keyspace)
	return nil
}
