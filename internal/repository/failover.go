package repository

import (
	"context"
	"sync/atomic"
	"time"

	"spotbook/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverCacheRepository serves from the primary (Redis) until it errors,
// then degrades to the in-memory fallback and probes the primary once a
// minute.
type FailoverCacheRepository struct {
	primary  domain.CacheRepository
	fallback domain.CacheRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// lastCheck holds unix nanos; request goroutines read and write it
	// concurrently.
	lastCheck atomic.Int64
}

func NewFailoverCacheRepository(primary, fallback domain.CacheRepository, logger *zerolog.Logger) *FailoverCacheRepository {
	return &FailoverCacheRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverCacheRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary cache repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverCacheRepository) shouldProbe() bool {
	return r.isDown.Load() && time.Now().UnixNano()-r.lastCheck.Load() > int64(time.Minute)
}

func (r *FailoverCacheRepository) GetOwner(ctx context.Context, resourceID int64) (int64, bool, error) {
	if !r.isDown.Load() {
		ownerID, ok, err := r.primary.GetOwner(ctx, resourceID)
		if err == nil {
			return ownerID, ok, nil
		}
		r.markDown(err)
	}

	if r.shouldProbe() {
		ownerID, ok, err := r.primary.GetOwner(ctx, resourceID)
		if err == nil {
			r.isDown.Store(false)
			return ownerID, ok, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetOwner(ctx, resourceID)
}

func (r *FailoverCacheRepository) SetOwner(ctx context.Context, resourceID, ownerID int64) error {
	if !r.isDown.Load() {
		err := r.primary.SetOwner(ctx, resourceID, ownerID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetOwner(ctx, resourceID, ownerID)
}

func (r *FailoverCacheRepository) InvalidateOwner(ctx context.Context, resourceID int64) error {
	// Invalidate both sides so a recovered primary cannot serve a stale owner.
	var primaryErr error
	if !r.isDown.Load() {
		primaryErr = r.primary.InvalidateOwner(ctx, resourceID)
		if primaryErr != nil {
			r.markDown(primaryErr)
		}
	}
	return r.fallback.InvalidateOwner(ctx, resourceID)
}

func (r *FailoverCacheRepository) CheckRateLimit(ctx context.Context, actorID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, actorID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, actorID, limit, window)
}
