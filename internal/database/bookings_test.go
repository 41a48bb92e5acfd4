package database

import (
	"context"
	"os"
	"testing"

	"spotbook/internal/domain"
	"spotbook/internal/interval"
	"spotbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedResource(t *testing.T, db *DB, id, ownerID int64) {
	t.Helper()
	err := db.SeedResources(context.Background(), []models.Resource{
		{ID: id, OwnerID: ownerID, Name: "Test Resource"},
	})
	require.NoError(t, err)
}

func mustInterval(t *testing.T, start, end string) interval.Interval {
	t.Helper()
	iv, err := interval.Parse(start, end)
	require.NoError(t, err)
	return iv
}

func newBooking(t *testing.T, resourceID, requesterID int64, start, end string) *models.Booking {
	t.Helper()
	iv := mustInterval(t, start, end)
	return &models.Booking{
		ResourceID:  resourceID,
		RequesterID: requesterID,
		StartDate:   iv.Start,
		EndDate:     iv.End,
	}
}

func TestCreateBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)

	booking := newBooking(t, 1, 42, "2025-06-01", "2025-06-05")
	err := db.CreateBooking(ctx, booking)
	require.NoError(t, err)

	assert.NotZero(t, booking.ID)
	assert.Equal(t, models.StatusActive, booking.Status)
	assert.Equal(t, int64(1), booking.Version)

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ResourceID, got.ResourceID)
	assert.Equal(t, booking.RequesterID, got.RequesterID)
	assert.True(t, got.StartDate.Equal(booking.StartDate))
	assert.True(t, got.EndDate.Equal(booking.EndDate))
}

func TestCreateBookingConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)

	first := newBooking(t, 1, 42, "2025-06-01", "2025-06-05")
	require.NoError(t, db.CreateBooking(ctx, first))

	tests := []struct {
		name       string
		start, end string
		wantErr    error
	}{
		{"identical", "2025-06-01", "2025-06-05", domain.ErrConflict},
		{"straddles", "2025-06-04", "2025-06-06", domain.ErrConflict},
		{"contained", "2025-06-02", "2025-06-04", domain.ErrConflict},
		{"containing", "2025-05-30", "2025-06-10", domain.ErrConflict},
		{"adjacent after", "2025-06-05", "2025-06-08", nil},
		{"adjacent before", "2025-05-28", "2025-06-01", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBooking(t, 1, 43, tt.start, tt.end)
			err := db.CreateBooking(ctx, b)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateBookingDifferentResources(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)
	seedResource(t, db, 2, 100)

	// Same interval on different resources never conflicts.
	require.NoError(t, db.CreateBooking(ctx, newBooking(t, 1, 42, "2025-06-01", "2025-06-05")))
	require.NoError(t, db.CreateBooking(ctx, newBooking(t, 2, 42, "2025-06-01", "2025-06-05")))
}

func TestCreateBookingAfterCancel(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)

	first := newBooking(t, 1, 42, "2025-06-01", "2025-06-05")
	require.NoError(t, db.CreateBooking(ctx, first))
	require.NoError(t, db.CancelBooking(ctx, first.ID))

	// Cancelled bookings do not hold the interval.
	second := newBooking(t, 1, 43, "2025-06-01", "2025-06-05")
	assert.NoError(t, db.CreateBooking(ctx, second))
}

func TestFindConflicts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)

	booked := newBooking(t, 1, 42, "2025-06-01", "2025-06-05")
	require.NoError(t, db.CreateBooking(ctx, booked))

	conflicts, err := db.FindConflicts(ctx, 1, mustInterval(t, "2025-06-04", "2025-06-06"), 0)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, booked.ID, conflicts[0].ID)

	// Excluding the booking itself clears the conflict (modify path).
	conflicts, err = db.FindConflicts(ctx, 1, mustInterval(t, "2025-06-04", "2025-06-06"), booked.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// Boundary-adjacent candidate is clear.
	conflicts, err = db.FindConflicts(ctx, 1, mustInterval(t, "2025-06-05", "2025-06-08"), 0)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestUpdateBookingDates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)

	booking := newBooking(t, 1, 42, "2025-06-01", "2025-06-05")
	require.NoError(t, db.CreateBooking(ctx, booking))

	updated, err := db.UpdateBookingDates(ctx, booking.ID, booking.Version, mustInterval(t, "2025-06-02", "2025-06-06"))
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", updated.StartDate.Format(models.DateLayout))
	assert.Equal(t, "2025-06-06", updated.EndDate.Format(models.DateLayout))
	assert.Equal(t, booking.Version+1, updated.Version)
}

func TestUpdateBookingDatesConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)

	a := newBooking(t, 1, 42, "2025-06-01", "2025-06-05")
	require.NoError(t, db.CreateBooking(ctx, a))
	b := newBooking(t, 1, 43, "2025-06-05", "2025-06-08")
	require.NoError(t, db.CreateBooking(ctx, b))

	// Moving a onto b conflicts; a's own interval is excluded from the check.
	_, err := db.UpdateBookingDates(ctx, a.ID, a.Version, mustInterval(t, "2025-06-03", "2025-06-06"))
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Shrinking inside its own range is fine.
	_, err = db.UpdateBookingDates(ctx, a.ID, a.Version, mustInterval(t, "2025-06-02", "2025-06-04"))
	assert.NoError(t, err)
}

func TestUpdateBookingDatesVersionConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)

	booking := newBooking(t, 1, 42, "2025-06-01", "2025-06-05")
	require.NoError(t, db.CreateBooking(ctx, booking))

	_, err := db.UpdateBookingDates(ctx, booking.ID, booking.Version+5, mustInterval(t, "2025-06-02", "2025-06-06"))
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestUpdateBookingDatesNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)

	_, err := db.UpdateBookingDates(ctx, 999, 1, mustInterval(t, "2025-06-02", "2025-06-06"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	booking := newBooking(t, 1, 42, "2025-06-01", "2025-06-05")
	require.NoError(t, db.CreateBooking(ctx, booking))
	require.NoError(t, db.CancelBooking(ctx, booking.ID))

	_, err = db.UpdateBookingDates(ctx, booking.ID, booking.Version, mustInterval(t, "2025-06-02", "2025-06-06"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)

	booking := newBooking(t, 1, 42, "2025-06-01", "2025-06-05")
	require.NoError(t, db.CreateBooking(ctx, booking))

	require.NoError(t, db.CancelBooking(ctx, booking.ID))

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	// Second cancel fails: the booking is no longer active.
	err = db.CancelBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = db.CancelBooking(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetBookingNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetBooking(context.Background(), 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedResource(t, db, 1, 100)
	seedResource(t, db, 2, 100)

	b1 := newBooking(t, 1, 42, "2025-06-10", "2025-06-12")
	b2 := newBooking(t, 1, 43, "2025-06-01", "2025-06-05")
	b3 := newBooking(t, 2, 42, "2025-06-01", "2025-06-03")
	cancelled := newBooking(t, 1, 42, "2025-07-01", "2025-07-03")

	for _, b := range []*models.Booking{b1, b2, b3, cancelled} {
		require.NoError(t, db.CreateBooking(ctx, b))
	}
	require.NoError(t, db.CancelBooking(ctx, cancelled.ID))

	byResource, err := db.ListBookingsByResource(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byResource, 2)
	// Ordered by start date; cancelled bookings excluded.
	assert.Equal(t, b2.ID, byResource[0].ID)
	assert.Equal(t, b1.ID, byResource[1].ID)

	byRequester, err := db.ListBookingsByRequester(ctx, 42)
	require.NoError(t, err)
	require.Len(t, byRequester, 2)
	assert.Equal(t, b3.ID, byRequester[0].ID)
	assert.Equal(t, b1.ID, byRequester[1].ID)
}
