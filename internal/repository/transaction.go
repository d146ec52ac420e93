package repository

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// txSupport mémorise si le serveur accepte les transactions (replica set ou mongos)
type txSupport struct {
	once      sync.Once
	supported bool
}

func (s *Store) transactional(ctx context.Context) bool {
	s.tx.once.Do(func() {
		var hello struct {
			SetName string `bson:"setName"`
			Msg     string `bson:"msg"`
		}
		if err := s.db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
			log.Printf("⚠️ Détection des transactions MongoDB impossible: %v", err)
			return
		}
		s.tx.supported = hello.SetName != "" || hello.Msg == "isdbgrid"
		if !s.tx.supported {
			log.Println("⚠️ MongoDB standalone : les écritures multi-documents ne sont pas transactionnelles")
		}
	})
	return s.tx.supported
}

// WithTransaction exécute fn dans une transaction Mongo; les dépôts appelés avec le
// contexte reçu par fn y participent. fn peut être rejouée sur erreur transitoire.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.db == nil || !s.transactional(ctx) {
		return fn(ctx)
	}
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("session MongoDB: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
