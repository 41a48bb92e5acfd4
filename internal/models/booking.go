package models

import "time"

type Booking struct {
	ID          int64     `json:"id"`
	ResourceID  int64     `json:"resource_id"`
	RequesterID int64     `json:"requester_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Status      string    `json:"status"` // active, cancelled
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// Active reports whether the booking still occupies its interval.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}
