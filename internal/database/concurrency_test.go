package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"spotbook/internal/domain"
	"spotbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentOverlappingBookings(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	seedResource(t, db, 1, 100)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	// Pairwise-overlapping intervals: every pair shares at least 2025-06-03.
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			booking := newBooking(t, 1, int64(id+1),
				fmt.Sprintf("2025-06-%02d", 1+id%3),
				fmt.Sprintf("2025-06-%02d", 4+id%3))
			results <- db.CreateBooking(ctx, booking)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	conflictCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case assert.ErrorIs(t, err, domain.ErrConflict):
			conflictCount++
		}
	}

	assert.Equal(t, 1, successCount, "exactly one overlapping booking should win")
	assert.Equal(t, numGoroutines-1, conflictCount, "all others should conflict")

	bookings, err := db.ListBookingsByResource(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestConcurrentDisjointBookings(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	dbPath := filepath.Join(t.TempDir(), "disjoint.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	seedResource(t, db, 1, 100)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	// Back-to-back day-long intervals; adjacency never conflicts.
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			booking := newBooking(t, 1, int64(id+1),
				fmt.Sprintf("2025-06-%02d", 1+id),
				fmt.Sprintf("2025-06-%02d", 2+id))
			results <- db.CreateBooking(ctx, booking)
		}(i)
	}

	wg.Wait()
	close(results)

	for err := range results {
		assert.NoError(t, err)
	}

	bookings, err := db.ListBookingsByResource(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, bookings, numGoroutines)
}

func TestConcurrentCreateOnDifferentResources(t *testing.T) {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	dbPath := filepath.Join(t.TempDir(), "resources.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	const numResources = 8
	resources := make([]models.Resource, 0, numResources)
	for i := 1; i <= numResources; i++ {
		resources = append(resources, models.Resource{ID: int64(i), OwnerID: 100, Name: fmt.Sprintf("Resource %d", i)})
	}
	require.NoError(t, db.SeedResources(ctx, resources))

	var wg sync.WaitGroup
	wg.Add(numResources)
	results := make(chan error, numResources)

	// Identical interval on distinct resources: all must succeed.
	for i := 1; i <= numResources; i++ {
		go func(resID int64) {
			defer wg.Done()
			results <- db.CreateBooking(ctx, newBooking(t, resID, 42, "2025-06-01", "2025-06-05"))
		}(int64(i))
	}

	wg.Wait()
	close(results)

	for err := range results {
		assert.NoError(t, err)
	}
}
