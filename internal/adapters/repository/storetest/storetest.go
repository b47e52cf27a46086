// Package storetest holds the behavior every repository.Store must satisfy.
package storetest

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/divari/internal/adapters/repository"
	"github.com/okian/divari/internal/domain/divari"
	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/internal/domain/ranking"
	"github.com/okian/divari/pkg/logger"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) repository.Store

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

// Run exercises store semantics against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	require.NoError(t, logger.Init(logger.WithOutput(io.Discard)))

	tests := map[string]func(t *testing.T, s repository.Store){
		"Seasons":       testSeasons,
		"Teams":         testTeams,
		"DivariInputs":  testDivariInputs,
		"Recalculation": testRecalculation,
		"Rollback":      testRollback,
		"RankedResults": testRankedResults,
		"PlacedResults": testPlacedResults,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func season(name, start, end string, count int) model.Season {
	return model.Season{
		Name:        name,
		DateStart:   day(start),
		DateEnd:     day(end),
		ResultCount: count,
		StartLevels: map[model.BowType]int{
			model.BowRecurve:  3,
			model.BowCompound: 2,
			model.BowBarebow:  1,
			model.BowLongbow:  1,
		},
	}
}

func testSeasons(t *testing.T, s repository.Store) {
	ctx := context.Background()

	s1, err := s.CreateSeason(ctx, season("2023", "2023-09-01", "2024-04-30", 3))
	require.NoError(t, err)
	s2, err := s.CreateSeason(ctx, season("2024", "2024-09-01", "2025-04-30", 2))
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s2.ID)

	got, err := s.Season(ctx, s2.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024", got.Name)
	assert.Equal(t, 2, got.ResultCount)
	assert.True(t, got.DateStart.Equal(day("2024-09-01")))
	assert.True(t, got.DateEnd.Equal(day("2025-04-30")))
	lvl, ok := got.StartLevel(model.BowRecurve)
	assert.True(t, ok)
	assert.Equal(t, 3, lvl)

	_, err = s.Season(ctx, s2.ID+1000)
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	all, err := s.Seasons(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, s1.ID, all[0].ID)

	at, err := s.SeasonsAt(ctx, day("2025-04-30"))
	require.NoError(t, err)
	require.Len(t, at, 1)
	assert.Equal(t, s2.ID, at[0].ID)

	at, err = s.SeasonsAt(ctx, day("2024-06-01"))
	require.NoError(t, err)
	assert.Empty(t, at)

	prev, err := s.PreviousSeason(ctx, day("2024-09-01"))
	require.NoError(t, err)
	assert.Equal(t, s1.ID, prev.ID)

	_, err = s.PreviousSeason(ctx, day("2023-09-01"))
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func testTeams(t *testing.T, s repository.Store) {
	ctx := context.Background()

	org, err := s.CreateOrganization(ctx, model.Organization{Name: "Alpha", Abbreviation: "ALP"})
	require.NoError(t, err)
	sn, err := s.CreateSeason(ctx, season("2024", "2024-09-01", "2025-04-30", 2))
	require.NoError(t, err)

	teams := []model.Team{
		{OrganizationID: org.ID, BowType: model.BowRecurve, Number: 1, Division: 1, SeasonID: sn.ID},
		{OrganizationID: org.ID, BowType: model.BowRecurve, Number: 2, Division: 2, SeasonID: sn.ID},
	}
	created, err := s.EnsureTeams(ctx, teams)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = s.EnsureTeams(ctx, teams)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	got, err := s.Teams(ctx, sn.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	counts, err := s.TeamResultCounts(ctx, sn.ID)
	require.NoError(t, err)
	assert.Len(t, counts, 2)
	for _, n := range counts {
		assert.Equal(t, 0, n)
	}
}

func testDivariInputs(t *testing.T, s repository.Store) {
	ctx := context.Background()

	org, err := s.CreateOrganization(ctx, model.Organization{Name: "Alpha", Abbreviation: "ALP"})
	require.NoError(t, err)
	gotOrg, err := s.Organization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "ALP", gotOrg.Abbreviation)

	_, err = s.CreateCompetition(ctx, model.Competition{OrganizationID: org.ID + 1000, Date: day("2024-10-01")})
	assert.True(t, errors.Is(err, repository.ErrReference))

	comp, err := s.CreateCompetition(ctx, model.Competition{OrganizationID: org.ID, Date: day("2024-10-01")})
	require.NoError(t, err)
	gotComp, err := s.Competition(ctx, comp.ID)
	require.NoError(t, err)
	assert.True(t, gotComp.Date.Equal(day("2024-10-01")))

	comps, err := s.OrganizationCompetitions(ctx, org.ID, day("2024-10-01"), day("2024-10-31"))
	require.NoError(t, err)
	assert.Len(t, comps, 1)
	comps, err = s.OrganizationCompetitions(ctx, org.ID, day("2024-11-01"), day("2024-11-30"))
	require.NoError(t, err)
	assert.Empty(t, comps)

	r := model.Result{CompetitionID: comp.ID, BowType: model.BowRecurve, TargetType: model.Target40, Athlete: "Anna", Score: 600}
	_, err = s.CreateResult(ctx, r)
	require.NoError(t, err)
	_, err = s.CreateResult(ctx, r)
	assert.True(t, errors.Is(err, repository.ErrAlreadyExists))

	r.TargetType = model.Target60
	r.Score = 0
	_, err = s.CreateResult(ctx, r)
	require.NoError(t, err)

	results, err := s.CompetitionResults(ctx, comp.ID)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Competitions)
	assert.Equal(t, 2, counts.Results)
}

// seedLeague creates one season and three competitions of one club.
func seedLeague(t *testing.T, s repository.Store) (model.Season, model.Organization) {
	t.Helper()
	ctx := context.Background()

	org, err := s.CreateOrganization(ctx, model.Organization{Name: "Alpha", Abbreviation: "ALP"})
	require.NoError(t, err)
	sn, err := s.CreateSeason(ctx, season("2024", "2024-09-01", "2025-04-30", 2))
	require.NoError(t, err)

	scores := map[string][]int{
		"2024-09-01": {100, 100, 100, 20},
		"2024-12-01": {90, 80, 80},
		"2025-04-30": {40, 30, 30},
		"2025-05-01": {200, 200, 200},
	}
	for date, list := range scores {
		comp, err := s.CreateCompetition(ctx, model.Competition{OrganizationID: org.ID, Date: day(date)})
		require.NoError(t, err)
		for i, score := range list {
			_, err := s.CreateResult(ctx, model.Result{
				CompetitionID: comp.ID,
				BowType:       model.BowRecurve,
				TargetType:    model.Target40,
				Athlete:       string(rune('A' + i)),
				Score:         score,
			})
			require.NoError(t, err)
		}
	}
	return sn, org
}

func testRecalculation(t *testing.T, s repository.Store) {
	ctx := context.Background()
	sn, org := seedLeague(t, s)
	calc := divari.NewCalculator(s)

	for range 2 {
		stats, err := calc.CalculateSeasonResults(ctx, sn)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Competitions)
		assert.Equal(t, 1, stats.SeasonResults)
	}

	standings, err := s.SeasonStandings(ctx, sn.ID, "")
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, 550, standings[0].Score)
	assert.Equal(t, org.ID, standings[0].Organization.ID)
	assert.Equal(t, "ALP", standings[0].Organization.Abbreviation)
	assert.Equal(t, 3, standings[0].Team.Division)
	assert.Equal(t, 1, standings[0].Team.Number)

	standings, err = s.SeasonStandings(ctx, sn.ID, model.BowCompound)
	require.NoError(t, err)
	assert.Empty(t, standings)

	counts, err := s.TeamResultCounts(ctx, sn.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	for _, n := range counts {
		assert.Equal(t, 3, n)
	}

	total, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total.Teams)
	assert.Equal(t, 3, total.TeamResults)
	assert.Equal(t, 1, total.SeasonResults)
}

func testRollback(t *testing.T, s repository.Store) {
	ctx := context.Background()
	sn, _ := seedLeague(t, s)
	calc := divari.NewCalculator(s)
	_, err := calc.CalculateSeasonResults(ctx, sn)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.InSeasonTx(ctx, sn.ID, func(ctx context.Context, tx divari.Tx) error {
		if err := tx.DeleteSeasonResults(ctx, sn.ID); err != nil {
			return err
		}
		comps, err := tx.CompetitionsBetween(ctx, sn.DateStart, sn.DateEnd)
		if err != nil {
			return err
		}
		for _, c := range comps {
			if err := tx.DeleteTeamResults(ctx, c.ID); err != nil {
				return err
			}
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))

	standings, err := s.SeasonStandings(ctx, sn.ID, "")
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, 550, standings[0].Score)

	total, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total.TeamResults)
}

func seedRegister(t *testing.T, s repository.Store) (model.Organization, model.Organization) {
	t.Helper()
	ctx := context.Background()

	home, err := s.CreateOrganization(ctx, model.Organization{Name: "Home", Abbreviation: "HOM"})
	require.NoError(t, err)
	guest, err := s.CreateOrganization(ctx, model.Organization{Name: "Guest", Abbreviation: "GST", External: true})
	require.NoError(t, err)

	anna, err := s.CreateAthlete(ctx, model.Athlete{FirstName: "Anna", LastName: "A", Organization: home})
	require.NoError(t, err)
	ben, err := s.CreateAthlete(ctx, model.Athlete{FirstName: "Ben", LastName: "B", Organization: guest})
	require.NoError(t, err)

	indoor, err := s.CreateRankedCompetition(ctx, model.RankedCompetition{
		Name: "Indoor SM", DateStart: day("2024-02-10"), DateEnd: day("2024-02-11"), Type: ranking.Type18m, Level: "SM",
	})
	require.NoError(t, err)
	field, err := s.CreateRankedCompetition(ctx, model.RankedCompetition{
		Name: "Field", DateStart: day("2024-06-01"), DateEnd: day("2024-06-01"), Type: "field", Level: "SM",
	})
	require.NoError(t, err)
	club, err := s.CreateRankedCompetition(ctx, model.RankedCompetition{
		Name: "Club 70m", DateStart: day("2023-12-31"), DateEnd: day("2024-01-01"), Type: ranking.Type70m, Level: "club",
	})
	require.NoError(t, err)

	rows := []model.RegisterResult{
		{CompetitionID: indoor.ID, AthleteID: anna.ID, OrganizationID: home.ID, Category: "Y", Score: 570, Position: 1},
		{CompetitionID: indoor.ID, AthleteID: ben.ID, OrganizationID: guest.ID, Category: "Y", Score: 580, Position: 2},
		{CompetitionID: indoor.ID, AthleteID: anna.ID, Category: "YT", Score: 590, Position: 3},
		{CompetitionID: field.ID, AthleteID: anna.ID, OrganizationID: home.ID, Category: "Y", Score: 400, Position: 9},
		{CompetitionID: club.ID, AthleteID: anna.ID, OrganizationID: home.ID, Category: "N", Score: 650},
	}
	for _, r := range rows {
		_, err := s.CreateRegisterResult(ctx, r)
		require.NoError(t, err)
	}
	return home, guest
}

func testRankedResults(t *testing.T, s repository.Store) {
	ctx := context.Background()
	home, _ := seedRegister(t, s)

	got, err := s.RankedResults(ctx, ranking.ResultFilter{
		DateStart:        day("2024-01-01"),
		DateEnd:          day("2024-12-31"),
		CompetitionTypes: ranking.CompetitionTypes,
		Categories:       ranking.DivisionRecurve.Categories(),
	})
	require.NoError(t, err)
	// external athlete, unlisted type and compound category are filtered out
	require.Len(t, got, 2)
	assert.Equal(t, 650, got[0].Score)
	assert.Equal(t, ranking.Type70m, got[0].CompetitionType)
	assert.Equal(t, 570, got[1].Score)
	assert.Equal(t, "Anna", got[1].Athlete.FirstName)
	assert.Equal(t, home.Abbreviation, got[1].Athlete.Organization.Abbreviation)
}

func testPlacedResults(t *testing.T, s repository.Store) {
	ctx := context.Background()
	home, guest := seedRegister(t, s)

	got, err := s.PlacedResults(ctx, ranking.PlacementFilter{Levels: []string{"SM"}, Year: 2024, MaxPosition: 8})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, home.ID, got[0].Organization.ID)
	assert.Equal(t, 1, got[0].Position)
	assert.Equal(t, guest.ID, got[1].Organization.ID)

	got, err = s.PlacedResults(ctx, ranking.PlacementFilter{Levels: []string{"SM"}, Year: 2023, MaxPosition: 8})
	require.NoError(t, err)
	assert.Empty(t, got)
}
