package models

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// DateLayout is the calendar-date format used for booking intervals
// throughout storage and the API.
const DateLayout = "2006-01-02"

const (
	// DefaultOwnerCacheTTL lifetime of cached resource-owner lookups in Redis
	DefaultOwnerCacheTTL = 30 * 60 // 30 minutes in seconds

	// RateLimitRequests requests allowed per actor within the window
	RateLimitRequests = 30

	// RateLimitWindow rate limit window
	RateLimitWindow = 60 // 1 minute in seconds

	// DefaultMaxAdvanceDays furthest a booking may start in the future
	DefaultMaxAdvanceDays = 365
)
