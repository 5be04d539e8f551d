package repository

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the subset of a pgx pool the repository needs.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type Repository struct {
	db  Database
	log *slog.Logger
}

type Interface interface {
	FetchVerifiedBusinesses(ctx context.Context, businessType string) ([]models.Business, error)
	SearchBusinesses(ctx context.Context, query string, limit int) ([]models.Business, error)
	AddFavorite(ctx context.Context, owner string, businessID int) (bool, error)
	RemoveFavorite(ctx context.Context, owner string, businessID int) error
	FetchFavorites(ctx context.Context, owner string) ([]models.Business, error)
	ClearFavorites(ctx context.Context, owner string) error
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}
