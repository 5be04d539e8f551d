package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/jackc/pgx/v5"
)

const businessColumns = `
		SELECT
			b.id, b.business_name, b.owner_name, b.business_type, b.address, b.phone,
			COALESCE(b.website, ''), b.latitude, b.longitude, b.verified, b.created_at,
			COALESCE(string_agg(
				s.service_name || ' ($' || to_char(s.price, 'FM999999990.00') || ')', ', ' ORDER BY s.id
			), '')
		FROM businesses b
		LEFT JOIN services s ON s.business_id = b.id
`

// FetchVerifiedBusinesses returns every verified business with its services summary.
// An empty businessType matches every type.
func (r *Repository) FetchVerifiedBusinesses(ctx context.Context, businessType string) ([]models.Business, error) {
	query := businessColumns + `
		WHERE b.verified = true AND ($1::text = '' OR b.business_type = $1)
		GROUP BY b.id
		ORDER BY b.id;
	`

	rows, err := r.db.Query(ctx, query, businessType)
	if err != nil {
		return nil, fmt.Errorf("failed to query verified businesses: %w", err)
	}

	businesses, err := scanBusinesses(rows)
	if err != nil {
		return nil, err
	}

	r.log.DebugContext(ctx, "Fetched verified businesses", "type", businessType, "count", len(businesses))

	return businesses, nil
}

// SearchBusinesses performs a case-insensitive substring match on name, address and type
// of verified businesses.
func (r *Repository) SearchBusinesses(ctx context.Context, text string, limit int) ([]models.Business, error) {
	query := businessColumns + `
		WHERE b.verified = true
			AND (b.business_name ILIKE $1 OR b.address ILIKE $1 OR b.business_type ILIKE $1)
		GROUP BY b.id
		ORDER BY b.business_name
		LIMIT $2;
	`

	rows, err := r.db.Query(ctx, query, "%"+text+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search businesses: %w", err)
	}

	return scanBusinesses(rows)
}

func scanBusinesses(rows pgx.Rows) ([]models.Business, error) {
	defer rows.Close()

	businesses := []models.Business{}
	for rows.Next() {
		var b models.Business
		if err := rows.Scan(
			&b.ID, &b.Name, &b.OwnerName, &b.Type, &b.Address, &b.Phone, &b.Website,
			&b.Coordinates.Latitude, &b.Coordinates.Longitude, &b.Verified, &b.CreatedAt, &b.Services,
		); err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		businesses = append(businesses, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return businesses, nil
}
