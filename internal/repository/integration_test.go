//go:build integration

package repository_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/compass/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestRepository_Postgres(t *testing.T) {
	ctx := t.Context()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("compass"),
		postgres.WithUsername("compass"),
		postgres.WithPassword("compass"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	pool, err := repository.NewDatabase(host, port.Port(), "compass", "compass", "compass")
	require.NoError(t, err)
	defer pool.Close()

	repo := repository.NewRepository(pool, slog.Default())
	require.NoError(t, repo.Migrate(ctx))

	inserted, err := repo.SeedBusinesses(ctx, repository.SampleBusinesses())
	require.NoError(t, err)
	assert.Len(t, repository.SampleBusinesses(), inserted)

	again, err := repo.SeedBusinesses(ctx, repository.SampleBusinesses())
	require.NoError(t, err)
	assert.Zero(t, again)

	spas, err := repo.FetchVerifiedBusinesses(ctx, "Spa")
	require.NoError(t, err)
	require.NotEmpty(t, spas)
	for _, b := range spas {
		assert.Equal(t, "Spa", b.Type)
	}
	assert.Equal(t, "Full Body Massage ($120.00), Facial ($90.00)", spas[0].Services)

	all, err := repo.FetchVerifiedBusinesses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, inserted)

	found, err := repo.SearchBusinesses(ctx, "ottawa", 20)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	added, err := repo.AddFavorite(ctx, "session-a", found[0].ID)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.AddFavorite(ctx, "session-a", found[0].ID)
	require.NoError(t, err)
	assert.False(t, added)
	_, err = repo.AddFavorite(ctx, "session-a", 9999)
	require.ErrorIs(t, err, repository.ErrBusinessNotFound)

	favorites, err := repo.FetchFavorites(ctx, "session-a")
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, found[0].ID, favorites[0].ID)

	require.NoError(t, repo.ClearFavorites(ctx, "session-a"))
	favorites, err = repo.FetchFavorites(ctx, "session-a")
	require.NoError(t, err)
	assert.Empty(t, favorites)
}
