package cache

import (
	"context"
	"testing"
	"time"

	"stc_back_end/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupTestCache(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	s, mr := setupTestCache(t)
	ctx := context.Background()

	_, err := s.GetRefreshToken(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.StoreRefreshToken(ctx, "u1", "tok", time.Hour))
	got, err := s.GetRefreshToken(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	mr.FastForward(2 * time.Hour)
	_, err = s.GetRefreshToken(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestBlacklistAndBan(t *testing.T) {
	s, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, s.BlacklistToken(ctx, "jti-1", time.Minute))
	assert.True(t, s.IsTokenBlacklisted(ctx, "jti-1"))
	assert.False(t, s.IsTokenBlacklisted(ctx, "jti-2"))

	require.NoError(t, s.BanUser(ctx, "u1"))
	assert.True(t, s.IsUserBanned(ctx, "u1"))
	require.NoError(t, s.UnbanUser(ctx, "u1"))
	assert.False(t, s.IsUserBanned(ctx, "u1"))
}

func TestProductCache(t *testing.T) {
	s, _ := setupTestCache(t)
	ctx := context.Background()

	p := &models.Product{ID: primitive.NewObjectID(), ProductName: "ThinkPad X1", SalePrice: 1200}
	_, err := s.GetProduct(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.SetProduct(ctx, p))
	got, err := s.GetProduct(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "ThinkPad X1", got.ProductName)

	require.NoError(t, s.InvalidateProducts(ctx, p.ID.Hex()))
	_, err = s.GetProduct(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestPendingSignupAndPasswordOTP(t *testing.T) {
	s, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, s.SavePendingSignup(ctx, &models.UnverifiedUser{Email: "A@Mail.com", OTP: "123456"}))
	u, err := s.GetPendingSignup(ctx, "a@mail.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", u.OTP)

	require.NoError(t, s.SavePasswordOTP(ctx, "a@mail.com", "654321"))
	ok, err := s.ConsumePasswordOTP(ctx, "a@mail.com", "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ConsumePasswordOTP(ctx, "a@mail.com", "654321")
	require.NoError(t, err)
	assert.True(t, ok)

	// usage unique
	ok, _ = s.ConsumePasswordOTP(ctx, "a@mail.com", "654321")
	assert.False(t, ok)

	require.NoError(t, s.SavePasswordOTP(ctx, "b@mail.com", "111111"))
	mr.FastForward(3 * time.Minute)
	ok, _ = s.ConsumePasswordOTP(ctx, "b@mail.com", "111111")
	assert.False(t, ok)
}

func TestIncrementRateLimit(t *testing.T) {
	s, _ := setupTestCache(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := s.IncrementRateLimit(ctx, "rl:test", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}
	assert.Greater(t, s.RetryAfter(ctx, "rl:test"), time.Duration(0))

	require.NoError(t, s.ResetRateLimit(ctx, "rl:test"))
	n, _ := s.IncrementRateLimit(ctx, "rl:test", time.Minute)
	assert.Equal(t, int64(1), n)
}
