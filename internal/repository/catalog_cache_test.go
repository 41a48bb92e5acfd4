package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"spotbook/internal/domain"
	"spotbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetResourceOwner(ctx context.Context, resourceID int64) (int64, error) {
	args := m.Called(ctx, resourceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCatalog) GetResource(ctx context.Context, resourceID int64) (*models.Resource, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Resource), args.Error(1)
}

func (m *mockCatalog) ListResources(ctx context.Context) ([]*models.Resource, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Resource), args.Error(1)
}

func (m *mockCatalog) DeleteResource(ctx context.Context, resourceID int64) error {
	return m.Called(ctx, resourceID).Error(0)
}

func TestCachedCatalog(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("MissThenHit", func(t *testing.T) {
		catalog := new(mockCatalog)
		cache := NewMemoryCacheRepository(time.Hour)
		cached := NewCachedCatalog(catalog, cache, &logger)

		catalog.On("GetResourceOwner", ctx, int64(1)).Return(int64(100), nil).Once()

		ownerID, err := cached.GetResourceOwner(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(100), ownerID)

		// Second lookup is served from the cache; the mock allows one call only.
		ownerID, err = cached.GetResourceOwner(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(100), ownerID)

		catalog.AssertExpectations(t)
	})

	t.Run("NotFoundPassesThrough", func(t *testing.T) {
		catalog := new(mockCatalog)
		cache := NewMemoryCacheRepository(time.Hour)
		cached := NewCachedCatalog(catalog, cache, &logger)

		catalog.On("GetResourceOwner", ctx, int64(9)).Return(int64(0), domain.ErrNotFound).Twice()

		_, err := cached.GetResourceOwner(ctx, 9)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		// Misses are not cached.
		_, err = cached.GetResourceOwner(ctx, 9)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		catalog.AssertExpectations(t)
	})

	t.Run("DeleteInvalidates", func(t *testing.T) {
		catalog := new(mockCatalog)
		cache := NewMemoryCacheRepository(time.Hour)
		cached := NewCachedCatalog(catalog, cache, &logger)

		catalog.On("GetResourceOwner", ctx, int64(1)).Return(int64(100), nil).Once()
		_, err := cached.GetResourceOwner(ctx, 1)
		require.NoError(t, err)

		catalog.On("DeleteResource", ctx, int64(1)).Return(nil).Once()
		require.NoError(t, cached.DeleteResource(ctx, 1))

		// The stale owner is gone; a fresh lookup goes back to the catalog.
		catalog.On("GetResourceOwner", ctx, int64(1)).Return(int64(0), domain.ErrNotFound).Once()
		_, err = cached.GetResourceOwner(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		catalog.AssertExpectations(t)
	})
}
