package repository

import (
	"context"

	"spotbook/internal/domain"
	"spotbook/internal/models"

	"github.com/rs/zerolog"
)

// CachedCatalog decorates a ResourceCatalog with owner-lookup caching.
// Ownership resolution sits on the hot path of every create and cancel, and
// owners change only through re-seeding or deletion, so short TTLs are safe.
type CachedCatalog struct {
	catalog domain.ResourceCatalog
	cache   domain.CacheRepository
	logger  *zerolog.Logger
}

func NewCachedCatalog(catalog domain.ResourceCatalog, cache domain.CacheRepository, logger *zerolog.Logger) *CachedCatalog {
	return &CachedCatalog{catalog: catalog, cache: cache, logger: logger}
}

func (c *CachedCatalog) GetResourceOwner(ctx context.Context, resourceID int64) (int64, error) {
	if ownerID, ok, err := c.cache.GetOwner(ctx, resourceID); err == nil && ok {
		return ownerID, nil
	} else if err != nil {
		c.logger.Warn().Err(err).Int64("resource_id", resourceID).Msg("owner cache read failed")
	}

	ownerID, err := c.catalog.GetResourceOwner(ctx, resourceID)
	if err != nil {
		return 0, err
	}

	if err := c.cache.SetOwner(ctx, resourceID, ownerID); err != nil {
		c.logger.Warn().Err(err).Int64("resource_id", resourceID).Msg("owner cache write failed")
	}
	return ownerID, nil
}

func (c *CachedCatalog) GetResource(ctx context.Context, resourceID int64) (*models.Resource, error) {
	return c.catalog.GetResource(ctx, resourceID)
}

func (c *CachedCatalog) ListResources(ctx context.Context) ([]*models.Resource, error) {
	return c.catalog.ListResources(ctx)
}

func (c *CachedCatalog) DeleteResource(ctx context.Context, resourceID int64) error {
	if err := c.catalog.DeleteResource(ctx, resourceID); err != nil {
		return err
	}
	if err := c.cache.InvalidateOwner(ctx, resourceID); err != nil {
		c.logger.Warn().Err(err).Int64("resource_id", resourceID).Msg("owner cache invalidation failed")
	}
	return nil
}
