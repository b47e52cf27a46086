package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/divari/internal/adapters/repository"
	"github.com/okian/divari/internal/adapters/repository/sqlite"
	"github.com/okian/divari/internal/adapters/repository/storetest"
	"github.com/okian/divari/internal/domain/model"
)

func openTemp(t *testing.T) repository.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "divari.db"))
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openTemp)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestOpen_MigratesOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "divari.db")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	org, err := s.CreateOrganization(ctx, model.Organization{Name: "Alpha", Abbreviation: "ALP"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Organization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Name)
}

func TestConstraintMapping(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	defer s.Close()

	_, err := s.CreateOrganization(ctx, model.Organization{Name: "Alpha", Abbreviation: "ALP"})
	require.NoError(t, err)
	_, err = s.CreateOrganization(ctx, model.Organization{Name: "Alpha 2", Abbreviation: "ALP"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	_, err = s.CreateResult(ctx, model.Result{CompetitionID: 999, BowType: model.BowRecurve, TargetType: model.Target40, Athlete: "X"})
	assert.ErrorIs(t, err, repository.ErrReference)
}
