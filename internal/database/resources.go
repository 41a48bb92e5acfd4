package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spotbook/internal/domain"
	"spotbook/internal/models"
)

// SeedResources upserts the configured resources. Existing rows keep their id
// and created_at; ownership and name follow the config.
func (db *DB) SeedResources(ctx context.Context, resources []models.Resource) error {
	query := `INSERT INTO resources (id, owner_id, name, is_active, created_at, updated_at)
              VALUES (?, ?, ?, 1, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                owner_id = excluded.owner_id,
                name = excluded.name,
                is_active = 1,
                updated_at = excluded.updated_at`

	now := time.Now()
	for _, res := range resources {
		if _, err := db.ExecContext(ctx, query, res.ID, res.OwnerID, res.Name, now, now); err != nil {
			return fmt.Errorf("failed to seed resource %d: %w", res.ID, err)
		}
	}
	db.logger.Info().Int("count", len(resources)).Msg("resources seeded")
	return nil
}

// GetResourceOwner resolves ownership for an active resource.
func (db *DB) GetResourceOwner(ctx context.Context, resourceID int64) (int64, error) {
	query := `SELECT owner_id FROM resources WHERE id = ? AND is_active = 1`
	var ownerID int64
	err := db.QueryRowContext(ctx, query, resourceID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get resource owner: %w", err)
	}
	return ownerID, nil
}

func (db *DB) GetResource(ctx context.Context, resourceID int64) (*models.Resource, error) {
	query := `SELECT id, owner_id, name, is_active, created_at, updated_at
              FROM resources WHERE id = ? AND is_active = 1`
	res := &models.Resource{}
	err := db.QueryRowContext(ctx, query, resourceID).Scan(
		&res.ID, &res.OwnerID, &res.Name, &res.IsActive, &res.CreatedAt, &res.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return res, nil
}

func (db *DB) ListResources(ctx context.Context) ([]*models.Resource, error) {
	query := `SELECT id, owner_id, name, is_active, created_at, updated_at
              FROM resources WHERE is_active = 1 ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var resources []*models.Resource
	for rows.Next() {
		res := &models.Resource{}
		err := rows.Scan(&res.ID, &res.OwnerID, &res.Name, &res.IsActive, &res.CreatedAt, &res.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resources, nil
}

// DeleteResource deactivates a resource and cancels its remaining active
// bookings in the same transaction. Removing bookings is the catalog's
// explicit responsibility here, never an implicit cascade of the booking core.
func (db *DB) DeleteResource(ctx context.Context, resourceID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()

	result, err := tx.ExecContext(ctx,
		`UPDATE resources SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`,
		now, resourceID)
	if err != nil {
		return fmt.Errorf("failed to deactivate resource: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
         WHERE resource_id = ? AND status != ?`,
		models.StatusCancelled, now, resourceID, models.StatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel resource bookings: %w", err)
	}

	return tx.Commit()
}
