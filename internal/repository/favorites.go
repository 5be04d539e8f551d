package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/compass/internal/models"
)

// ErrBusinessNotFound is returned when a favorite refers to an unknown or unverified business.
var ErrBusinessNotFound = errors.New("business not found")

// AddFavorite marks a verified business as a favorite of owner.
// It reports false when the business already was a favorite.
func (r *Repository) AddFavorite(ctx context.Context, owner string, businessID int) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO favorites (owner, business_id)
		SELECT $1, b.id FROM businesses b WHERE b.id = $2 AND b.verified = true
		ON CONFLICT (owner, business_id) DO NOTHING;
	`, owner, businessID)
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	err = r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE owner = $1 AND business_id = $2);`,
		owner, businessID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	if !exists {
		return false, ErrBusinessNotFound
	}

	return false, nil
}

// RemoveFavorite drops a favorite. Removing a missing favorite is not an error.
func (r *Repository) RemoveFavorite(ctx context.Context, owner string, businessID int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM favorites WHERE owner = $1 AND business_id = $2;`, owner, businessID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	return nil
}

// FetchFavorites returns the favorite businesses of owner, newest first.
func (r *Repository) FetchFavorites(ctx context.Context, owner string) ([]models.Business, error) {
	query := businessColumns + `
		JOIN favorites f ON f.business_id = b.id
		WHERE f.owner = $1
		GROUP BY b.id, f.created_at
		ORDER BY f.created_at DESC, b.id;
	`

	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}

	return scanBusinesses(rows)
}

// ClearFavorites drops every favorite of owner.
func (r *Repository) ClearFavorites(ctx context.Context, owner string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM favorites WHERE owner = $1;`, owner)
	if err != nil {
		return fmt.Errorf("failed to clear favorites: %w", err)
	}
	r.log.DebugContext(ctx, "Cleared favorites", "owner", owner, "count", tag.RowsAffected())

	return nil
}
