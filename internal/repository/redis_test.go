package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisCacheRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetOwner", func(t *testing.T) {
		err := repo.SetOwner(ctx, 1, 100)
		require.NoError(t, err)

		ownerID, ok, err := repo.GetOwner(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(100), ownerID)
	})

	t.Run("GetMissingOwner", func(t *testing.T) {
		_, ok, err := repo.GetOwner(ctx, 999)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("InvalidateOwner", func(t *testing.T) {
		require.NoError(t, repo.SetOwner(ctx, 2, 200))

		err := repo.InvalidateOwner(ctx, 2)
		require.NoError(t, err)

		_, ok, _ := repo.GetOwner(ctx, 2)
		assert.False(t, ok)
	})

	t.Run("OwnerTTLExpires", func(t *testing.T) {
		require.NoError(t, repo.SetOwner(ctx, 3, 300))

		s.FastForward(2 * time.Hour)

		_, ok, err := repo.GetOwner(ctx, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RateLimit", func(t *testing.T) {
		actorID := int64(789)
		limit := 2
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, actorID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, actorID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		// Third request in the window exceeds the limit
		allowed, err = repo.CheckRateLimit(ctx, actorID, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		// Window expiry resets the counter
		s.FastForward(2 * time.Second)
		allowed, err = repo.CheckRateLimit(ctx, actorID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRedisCacheRepositoryNilClient(t *testing.T) {
	repo := NewRedisCacheRepository(nil, time.Hour)
	ctx := context.Background()

	_, _, err := repo.GetOwner(ctx, 1)
	assert.Error(t, err)

	assert.Error(t, repo.SetOwner(ctx, 1, 100))
	assert.Error(t, repo.InvalidateOwner(ctx, 1))

	_, err = repo.CheckRateLimit(ctx, 1, 10, time.Minute)
	assert.Error(t, err)
}
