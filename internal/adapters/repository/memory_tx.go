package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/divari/internal/domain/model"
)

// memTx implements divari.Tx directly on a state it owns exclusively.
type memTx struct {
	st *memState
}

func (t *memTx) CompetitionsBetween(_ context.Context, start, end time.Time) ([]model.Competition, error) {
	var out []model.Competition
	for _, c := range t.st.competitions {
		if d := model.Day(c.Date); !d.Before(start) && !d.After(end) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b model.Competition) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (t *memTx) ResultBowTypes(_ context.Context, competitionID int64) ([]model.BowType, error) {
	var out []model.BowType
	for _, r := range t.st.results {
		if r.CompetitionID == competitionID && !slices.Contains(out, r.BowType) {
			out = append(out, r.BowType)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (t *memTx) Results(_ context.Context, competitionID int64, bow model.BowType) ([]model.Result, error) {
	var out []model.Result
	for _, r := range t.st.results {
		if r.CompetitionID == competitionID && r.BowType == bow {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Result) int { return cmp.Compare(b.Score, a.Score) })
	return out, nil
}

func (t *memTx) DeleteTeamResults(_ context.Context, competitionID int64) error {
	t.st.teamResults = slices.DeleteFunc(t.st.teamResults, func(tr model.TeamResult) bool {
		return tr.CompetitionID == competitionID
	})
	return nil
}

func (t *memTx) CreateTeamResult(_ context.Context, tr model.TeamResult) (model.TeamResult, error) {
	for _, o := range t.st.teamResults {
		if o.CompetitionID == tr.CompetitionID && o.TeamID == tr.TeamID {
			return model.TeamResult{}, fmt.Errorf("%w: team result %d/%d", ErrAlreadyExists, tr.CompetitionID, tr.TeamID)
		}
	}
	tr.ID = t.st.id()
	t.st.teamResults = append(t.st.teamResults, tr)
	return tr, nil
}

func (t *memTx) FindTeam(_ context.Context, key model.TeamKey) (model.Team, bool, error) {
	for _, team := range t.st.teams {
		if team.Key() == key {
			return team, true, nil
		}
	}
	return model.Team{}, false, nil
}

func (t *memTx) CreateTeam(ctx context.Context, team model.Team) (model.Team, error) {
	if _, ok, _ := t.FindTeam(ctx, team.Key()); ok {
		return model.Team{}, fmt.Errorf("%w: team %+v", ErrAlreadyExists, team.Key())
	}
	team.ID = t.st.id()
	t.st.teams = append(t.st.teams, team)
	return team, nil
}

func (t *memTx) SeasonTeams(_ context.Context, seasonID int64) ([]model.Team, error) {
	var out []model.Team
	for _, team := range t.st.teams {
		if team.SeasonID == seasonID {
			out = append(out, team)
		}
	}
	return out, nil
}

func (t *memTx) TeamResultScores(_ context.Context, teamID int64) ([]int, error) {
	var out []int
	for _, tr := range t.st.teamResults {
		if tr.TeamID == teamID {
			out = append(out, tr.Score)
		}
	}
	slices.SortFunc(out, func(a, b int) int { return cmp.Compare(b, a) })
	return out, nil
}

func (t *memTx) DeleteSeasonResults(_ context.Context, seasonID int64) error {
	inSeason := make(map[int64]bool)
	for _, team := range t.st.teams {
		if team.SeasonID == seasonID {
			inSeason[team.ID] = true
		}
	}
	t.st.seasonResults = slices.DeleteFunc(t.st.seasonResults, func(sr model.SeasonResult) bool {
		return inSeason[sr.TeamID]
	})
	return nil
}

func (t *memTx) CreateSeasonResult(_ context.Context, sr model.SeasonResult) (model.SeasonResult, error) {
	sr.ID = t.st.id()
	t.st.seasonResults = append(t.st.seasonResults, sr)
	return sr, nil
}
