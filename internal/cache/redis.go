package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indique une clé absente
var ErrCacheMiss = errors.New("cache miss")

// Store regroupe tout ce que l'application range dans Redis
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Client expose le client brut (rate limiting, healthcheck)
func (s *Store) Client() *redis.Client {
	return s.client
}

// InitRedis ouvre la connexion Redis et vérifie qu'elle répond
func InitRedis(ctx context.Context, host, password string) (*redis.Client, error) {
	if host == "" {
		return nil, fmt.Errorf("REDIS_HOST non configuré")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         host,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("impossible de se connecter à Redis: %w", err)
	}

	log.Println("✅ Redis connecté avec succès")
	return client, nil
}

// --- Refresh Tokens ---

func refreshKey(userID string) string { return "refresh:" + userID }

// StoreRefreshToken stocke le refresh token courant d'un utilisateur
func (s *Store) StoreRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKey(userID), token, ttl).Err()
}

// GetRefreshToken retourne ErrCacheMiss si l'utilisateur n'a pas de session
func (s *Store) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	v, err := s.client.Get(ctx, refreshKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

// DeleteRefreshToken supprime le refresh token (logout)
func (s *Store) DeleteRefreshToken(ctx context.Context, userID string) error {
	return s.client.Del(ctx, refreshKey(userID)).Err()
}

// --- Blacklist JWT (révocation avant expiration) ---

func (s *Store) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, "blacklist:"+tokenID, "revoked", ttl).Err()
}

func (s *Store) IsTokenBlacklisted(ctx context.Context, tokenID string) bool {
	exists, err := s.client.Exists(ctx, "blacklist:"+tokenID).Result()
	if err != nil {
		log.Printf("⚠️ Erreur vérification blacklist: %v", err)
		return false
	}
	return exists > 0
}

// --- Ban utilisateurs ---

// BanUser marque l'utilisateur comme bloqué, sans expiration
func (s *Store) BanUser(ctx context.Context, userID string) error {
	return s.client.Set(ctx, "banned:"+userID, "true", 0).Err()
}

func (s *Store) UnbanUser(ctx context.Context, userID string) error {
	return s.client.Del(ctx, "banned:"+userID).Err()
}

func (s *Store) IsUserBanned(ctx context.Context, userID string) bool {
	exists, err := s.client.Exists(ctx, "banned:"+userID).Result()
	if err != nil {
		log.Printf("⚠️ Erreur vérification ban: %v", err)
		return false
	}
	return exists > 0
}

// --- Cache générique JSON ---

func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("sérialisation %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *Store) GetJSON(ctx context.Context, key string, dst interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// --- Rate Limiting ---

// IncrementRateLimit incrémente le compteur et repousse la fenêtre
func (s *Store) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RetryAfter retourne le temps restant avant remise à zéro du compteur
func (s *Store) RetryAfter(ctx context.Context, key string) time.Duration {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

func (s *Store) ResetRateLimit(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// StartCooldown bloque une clé de rate limit pendant ttl
func (s *Store) StartCooldown(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, key, "1", ttl).Err()
}
