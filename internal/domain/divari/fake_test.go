package divari

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/okian/divari/internal/domain/model"
)

// fakeStore is a single-threaded Tx used by the calculator tests.
type fakeStore struct {
	competitions  []model.Competition
	results       []model.Result
	teams         []model.Team
	teamResults   []model.TeamResult
	seasonResults []model.SeasonResult
	nextID        int64
	failOn        string
	txCalls       int
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) InSeasonTx(ctx context.Context, _ int64, fn func(ctx context.Context, tx Tx) error) error {
	f.txCalls++
	return fn(ctx, f)
}

func (f *fakeStore) CompetitionsBetween(_ context.Context, start, end time.Time) ([]model.Competition, error) {
	var out []model.Competition
	for _, c := range f.competitions {
		if d := model.Day(c.Date); !d.Before(start) && !d.After(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ResultBowTypes(_ context.Context, competitionID int64) ([]model.BowType, error) {
	var out []model.BowType
	for _, r := range f.results {
		if r.CompetitionID == competitionID && !slices.Contains(out, r.BowType) {
			out = append(out, r.BowType)
		}
	}
	return out, nil
}

func (f *fakeStore) Results(_ context.Context, competitionID int64, bow model.BowType) ([]model.Result, error) {
	var out []model.Result
	for _, r := range f.results {
		if r.CompetitionID == competitionID && r.BowType == bow {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Result) int { return cmp.Compare(b.Score, a.Score) })
	return out, nil
}

func (f *fakeStore) DeleteTeamResults(_ context.Context, competitionID int64) error {
	f.teamResults = slices.DeleteFunc(f.teamResults, func(tr model.TeamResult) bool {
		return tr.CompetitionID == competitionID
	})
	return nil
}

func (f *fakeStore) CreateTeamResult(_ context.Context, tr model.TeamResult) (model.TeamResult, error) {
	if f.failOn == "CreateTeamResult" {
		return model.TeamResult{}, errBoom
	}
	tr.ID = f.id()
	f.teamResults = append(f.teamResults, tr)
	return tr, nil
}

func (f *fakeStore) FindTeam(_ context.Context, key model.TeamKey) (model.Team, bool, error) {
	for _, t := range f.teams {
		if t.Key() == key {
			return t, true, nil
		}
	}
	return model.Team{}, false, nil
}

func (f *fakeStore) CreateTeam(_ context.Context, team model.Team) (model.Team, error) {
	team.ID = f.id()
	f.teams = append(f.teams, team)
	return team, nil
}

func (f *fakeStore) SeasonTeams(_ context.Context, seasonID int64) ([]model.Team, error) {
	var out []model.Team
	for _, t := range f.teams {
		if t.SeasonID == seasonID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) TeamResultScores(_ context.Context, teamID int64) ([]int, error) {
	var out []int
	for _, tr := range f.teamResults {
		if tr.TeamID == teamID {
			out = append(out, tr.Score)
		}
	}
	slices.SortFunc(out, func(a, b int) int { return cmp.Compare(b, a) })
	return out, nil
}

func (f *fakeStore) DeleteSeasonResults(_ context.Context, seasonID int64) error {
	f.seasonResults = slices.DeleteFunc(f.seasonResults, func(sr model.SeasonResult) bool {
		for _, t := range f.teams {
			if t.ID == sr.TeamID {
				return t.SeasonID == seasonID
			}
		}
		return false
	})
	return nil
}

func (f *fakeStore) CreateSeasonResult(_ context.Context, sr model.SeasonResult) (model.SeasonResult, error) {
	sr.ID = f.id()
	f.seasonResults = append(f.seasonResults, sr)
	return sr, nil
}

func (f *fakeStore) seasonScore(teamID int64) (int, bool) {
	for _, sr := range f.seasonResults {
		if sr.TeamID == teamID {
			return sr.Score, true
		}
	}
	return 0, false
}

func (f *fakeStore) addResults(compID int64, bow model.BowType, scores ...int) {
	for _, s := range scores {
		f.results = append(f.results, model.Result{
			ID:            f.id(),
			CompetitionID: compID,
			BowType:       bow,
			TargetType:    model.Target40,
			Score:         s,
		})
	}
}
