package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.mongodb.org/mongo-driver/mongo"

	"stc_back_end/internal/cache"
	"stc_back_end/internal/config"
	"stc_back_end/internal/repository"

	"github.com/redis/go-redis/v9"
)

// Connections regroupe les clients ouverts au démarrage.
// Elastic, MinIO et Scylla sont optionnels : nil quand non configurés.
type Connections struct {
	Mongo   *mongo.Client
	MongoDB *mongo.Database
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
	Scylla  *gocql.Session
}

// --- Initialisation ---
func ConnectDatabases(cfg config.Config) (*Connections, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conns := &Connections{}

	// 1. MongoDB (obligatoire)
	db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("mongodb: %w", err)
	}
	conns.Mongo, conns.MongoDB = db.Client(), db

	// 2. Redis (obligatoire)
	conns.Redis, err = cache.InitRedis(ctx, cfg.RedisHost, cfg.RedisPassword)
	if err != nil {
		conns.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	// 3. Elasticsearch
	if cfg.ElasticURL != "" {
		if conns.Elastic, err = connectElastic(cfg); err != nil {
			log.Printf("⚠️ Elasticsearch indisponible, recherche via MongoDB: %v", err)
		}
	}

	// 4. MinIO
	if cfg.MinIOEndpoint != "" {
		if conns.MinIO, err = connectMinIO(ctx, cfg); err != nil {
			log.Printf("⚠️ MinIO indisponible, upload d'images désactivé: %v", err)
		}
	}

	// 5. ScyllaDB (journal d'audit)
	if len(cfg.ScyllaHosts) > 0 {
		if conns.Scylla, err = connectScylla(cfg); err != nil {
			log.Printf("⚠️ ScyllaDB indisponible, audit en mode log: %v", err)
		}
	}

	log.Println("✅ Toutes les bases de données sont connectées")
	return conns, nil
}

func (c *Connections) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.Scylla != nil {
		c.Scylla.Close()
		log.Println("🔌 Session ScyllaDB fermée")
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Mongo != nil {
		_ = c.Mongo.Disconnect(ctx)
	}
}

// =============================================
// SCYLLA DB
// =============================================
func connectScylla(cfg config.Config) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	// Le keyspace est créé avant d'ouvrir la session définitive
	bootstrap, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("création session: %w", err)
	}
	err = EnsureAuditSchema(bootstrap, cfg.ScyllaKeyspace)
	bootstrap.Close()
	if err != nil {
		return nil, err
	}

	cluster.Keyspace = cfg.ScyllaKeyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("session keyspace %s: %w", cfg.ScyllaKeyspace, err)
	}
	log.Printf("✅ Session ScyllaDB pour keyspace '%s'", cfg.ScyllaKeyspace)
	return session, nil
}

// =============================================
// ELASTICSEARCH
// =============================================
func connectElastic(cfg config.Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, err
	}

	res, err := client.Info()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("info: %s", res.Status())
	}

	log.Println("✅ Connecté à Elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================
func connectMinIO(ctx context.Context, cfg config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket: %w", err)
		}
		log.Println("🪣 Bucket créé :", cfg.MinIOBucket)
	} else {
		log.Println("🪣 Bucket MinIO déjà présent :", cfg.MinIOBucket)
	}

	log.Println("✅ Connecté à MinIO :", cfg.MinIOEndpoint)
	return client, nil
}
