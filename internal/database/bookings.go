package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spotbook/internal/domain"
	"spotbook/internal/interval"
	"spotbook/internal/models"
)

const bookingColumns = `id, resource_id, requester_id, start_date, end_date,
                 status, created_at, updated_at, version`

// overlapWhere is the one overlap predicate for the whole system: active
// bookings on the resource whose half-open [start_date, end_date) intersects
// the candidate range. Bound params: resource_id, exclude_id, candidate end,
// candidate start. ISO dates compare correctly as text. Passing exclude_id 0
// matches the create path, where no booking exists yet.
const overlapWhere = `resource_id = ?
      AND id != ?
      AND status != 'cancelled'
      AND start_date < ?
      AND ? < end_date`

func findConflicts(ctx context.Context, q querier, resourceID int64, iv interval.Interval, excludeID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings
              WHERE ` + overlapWhere + `
              ORDER BY start_date ASC`

	rows, err := q.QueryContext(ctx, query, resourceID, excludeID,
		iv.End.Format(models.DateLayout), iv.Start.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicts: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// FindConflicts returns every active booking on the resource overlapping the
// candidate interval, excluding excludeID (0 for none). Read-only; the
// authoritative re-check happens inside the write transaction.
func (db *DB) FindConflicts(ctx context.Context, resourceID int64, iv interval.Interval, excludeID int64) ([]*models.Booking, error) {
	return findConflicts(ctx, db.DB, resourceID, iv, excludeID)
}

// CreateBooking re-checks conflicts and inserts in one transaction, so two
// concurrent creations for the same resource can never both pass the check.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	iv := interval.Interval{Start: booking.StartDate, End: booking.EndDate}
	conflicts, err := findConflicts(ctx, tx, booking.ResourceID, iv, 0)
	if err != nil {
		return fmt.Errorf("failed to check conflicts in tx: %w", err)
	}
	if len(conflicts) > 0 {
		return domain.ErrConflict
	}

	query := `INSERT INTO bookings (
				resource_id, requester_id, start_date, end_date,
				status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		booking.ResourceID,
		booking.RequesterID,
		booking.StartDate.Format(models.DateLayout),
		booking.EndDate.Format(models.DateLayout),
		models.StatusActive,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.Status = models.StatusActive
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return tx.Commit()
}

// UpdateBookingDates moves an active booking to a new interval with the same
// conflict semantics as creation, excluding the booking itself. The version
// check rejects lost updates.
func (db *DB) UpdateBookingDates(ctx context.Context, id, fromVersion int64, iv interval.Interval) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := getBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !booking.Active() {
		return nil, domain.ErrNotFound
	}

	conflicts, err := findConflicts(ctx, tx, booking.ResourceID, iv, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check conflicts in tx: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, domain.ErrConflict
	}

	now := time.Now()
	query := `UPDATE bookings SET start_date = ?, end_date = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query,
		iv.Start.Format(models.DateLayout),
		iv.End.Format(models.DateLayout),
		now, id, fromVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking dates: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, domain.ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	booking.StartDate = iv.Start
	booking.EndDate = iv.End
	booking.Version = fromVersion + 1
	booking.UpdatedAt = now
	return booking, nil
}

// CancelBooking marks the booking cancelled. Not idempotent: a second cancel
// reports ErrNotFound, as does cancelling an unknown id.
func (db *DB) CancelBooking(ctx context.Context, id int64) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND status != ?`
	result, err := db.ExecContext(ctx, query, models.StatusCancelled, time.Now(), id, models.StatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func getBooking(ctx context.Context, q querier, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	row := q.QueryRowContext(ctx, query, id)

	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, db.DB, id)
}

// ListBookingsByResource returns the resource's active bookings ordered by
// start date.
func (db *DB) ListBookingsByResource(ctx context.Context, resourceID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings WHERE resource_id = ? AND status != ? ORDER BY start_date ASC`
	rows, err := db.QueryContext(ctx, query, resourceID, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by resource: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ListBookingsByRequester returns the requester's active bookings ordered by
// start date.
func (db *DB) ListBookingsByRequester(ctx context.Context, requesterID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings WHERE requester_id = ? AND status != ? ORDER BY start_date ASC`
	rows, err := db.QueryContext(ctx, query, requesterID, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings by requester: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookingRow(s rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var startStr, endStr string
	err := s.Scan(
		&b.ID, &b.ResourceID, &b.RequesterID, &startStr, &endStr,
		&b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.StartDate, err = time.Parse(models.DateLayout, startStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start date %s: %w", startStr, err)
	}
	b.EndDate, err = time.Parse(models.DateLayout, endStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse end date %s: %w", endStr, err)
	}
	return b, nil
}

func scanBooking(row *sql.Row) (*models.Booking, error) {
	return scanBookingRow(row)
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBookingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
