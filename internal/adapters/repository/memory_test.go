package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/divari/internal/adapters/repository"
	"github.com/okian/divari/internal/adapters/repository/storetest"
	"github.com/okian/divari/internal/domain/divari"
	"github.com/okian/divari/internal/domain/model"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) repository.Store {
		return repository.NewMemoryStore()
	})
}

func TestMemoryStore_ReadersSeeCommittedState(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()
	org, err := s.CreateOrganization(ctx, model.Organization{Name: "Alpha", Abbreviation: "ALP"})
	require.NoError(t, err)
	comp, err := s.CreateCompetition(ctx, model.Competition{OrganizationID: org.ID})
	require.NoError(t, err)

	inTx := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.InSeasonTx(ctx, 1, func(ctx context.Context, tx divari.Tx) error {
			_, err := tx.CreateTeamResult(ctx, model.TeamResult{CompetitionID: comp.ID, TeamID: 1, Score: 10})
			close(inTx)
			<-release
			return err
		})
	}()

	<-inTx
	counted := make(chan repository.Counts)
	go func() {
		c, _ := s.Counts(ctx)
		counted <- c
	}()
	close(release)
	wg.Wait()

	// the reader waited for the commit
	c := <-counted
	assert.Equal(t, 1, c.TeamResults)
}

func TestMemoryStore_References(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore()

	_, err := s.CreateAthlete(ctx, model.Athlete{FirstName: "A", Organization: model.Organization{ID: 42}})
	assert.ErrorIs(t, err, repository.ErrReference)

	_, err = s.CreateResult(ctx, model.Result{CompetitionID: 42})
	assert.ErrorIs(t, err, repository.ErrReference)

	_, err = s.EnsureTeams(ctx, []model.Team{{SeasonID: 42}})
	assert.ErrorIs(t, err, repository.ErrReference)

	_, err = s.CreateOrganization(ctx, model.Organization{Abbreviation: "X"})
	require.NoError(t, err)
	_, err = s.CreateOrganization(ctx, model.Organization{Abbreviation: "X"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}
