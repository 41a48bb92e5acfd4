package domain

import (
	"context"
	"time"

	"spotbook/internal/interval"
	"spotbook/internal/models"
)

// Repository is the durable booking store. Create and UpdateDates own the
// atomicity boundary: the conflict re-check and the write happen in one
// transaction, so they never interleave with another writer on the same
// resource.
type Repository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingDates(ctx context.Context, id, fromVersion int64, iv interval.Interval) (*models.Booking, error)
	CancelBooking(ctx context.Context, id int64) error
	FindConflicts(ctx context.Context, resourceID int64, iv interval.Interval, excludeID int64) ([]*models.Booking, error)
	ListBookingsByResource(ctx context.Context, resourceID int64) ([]*models.Booking, error)
	ListBookingsByRequester(ctx context.Context, requesterID int64) ([]*models.Booking, error)
}

// ResourceCatalog resolves resource ownership. Deleting a resource cancels
// its bookings explicitly before removal; the booking core never cascades.
type ResourceCatalog interface {
	GetResourceOwner(ctx context.Context, resourceID int64) (int64, error)
	GetResource(ctx context.Context, resourceID int64) (*models.Resource, error)
	ListResources(ctx context.Context) ([]*models.Resource, error)
	DeleteResource(ctx context.Context, resourceID int64) error
}

// Clock is injected so tests control time.
type Clock interface {
	Now() time.Time
}

// CacheRepository backs short-lived lookups shared across instances: the
// resource-owner cache and per-actor rate limiting.
type CacheRepository interface {
	GetOwner(ctx context.Context, resourceID int64) (int64, bool, error)
	SetOwner(ctx context.Context, resourceID, ownerID int64) error
	InvalidateOwner(ctx context.Context, resourceID int64) error
	CheckRateLimit(ctx context.Context, actorID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, actorID, resourceID int64, iv interval.Interval) (*models.Booking, error)
	ModifyBooking(ctx context.Context, actorID, bookingID int64, iv interval.Interval) (*models.Booking, error)
	CancelBooking(ctx context.Context, actorID, bookingID int64) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookingsByResource(ctx context.Context, resourceID int64) ([]*models.Booking, error)
	ListBookingsByRequester(ctx context.Context, requesterID int64) ([]*models.Booking, error)
}
