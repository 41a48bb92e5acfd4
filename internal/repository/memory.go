package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryCacheRepository is the in-process fallback when Redis is unavailable.
type MemoryCacheRepository struct {
	owners     sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryCacheRepository(ttl time.Duration) *MemoryCacheRepository {
	return &MemoryCacheRepository{
		ttl: ttl,
	}
}

type ownerEntry struct {
	ownerID   int64
	expiresAt time.Time
}

func (r *MemoryCacheRepository) GetOwner(ctx context.Context, resourceID int64) (int64, bool, error) {
	val, ok := r.owners.Load(resourceID)
	if !ok {
		return 0, false, nil
	}
	entry := val.(ownerEntry)
	if time.Now().After(entry.expiresAt) {
		r.owners.Delete(resourceID)
		return 0, false, nil
	}
	return entry.ownerID, true, nil
}

func (r *MemoryCacheRepository) SetOwner(ctx context.Context, resourceID, ownerID int64) error {
	r.owners.Store(resourceID, ownerEntry{ownerID: ownerID, expiresAt: time.Now().Add(r.ttl)})
	return nil
}

func (r *MemoryCacheRepository) InvalidateOwner(ctx context.Context, resourceID int64) error {
	r.owners.Delete(resourceID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryCacheRepository) CheckRateLimit(ctx context.Context, actorID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(actorID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(actorID, entry)
	return entry.count <= limit, nil
}
