package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/okian/divari/internal/domain/divari"
	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/internal/domain/ranking"
)

// memState holds every table of the in-memory store. Slices are kept in id order.
type memState struct {
	nextID int64

	organizations      map[int64]model.Organization
	athletes           map[int64]model.Athlete
	rankedCompetitions map[int64]model.RankedCompetition
	registerResults    []model.RegisterResult

	seasons       map[int64]model.Season
	competitions  map[int64]model.Competition
	results       []model.Result
	teams         []model.Team
	teamResults   []model.TeamResult
	seasonResults []model.SeasonResult
}

func newMemState() *memState {
	return &memState{
		organizations:      make(map[int64]model.Organization),
		athletes:           make(map[int64]model.Athlete),
		rankedCompetitions: make(map[int64]model.RankedCompetition),
		seasons:            make(map[int64]model.Season),
		competitions:       make(map[int64]model.Competition),
	}
}

// clone copies the state deeply enough for a transaction to mutate it.
// Season start level maps are never mutated after creation and are shared.
func (s *memState) clone() *memState {
	return &memState{
		nextID:             s.nextID,
		organizations:      maps.Clone(s.organizations),
		athletes:           maps.Clone(s.athletes),
		rankedCompetitions: maps.Clone(s.rankedCompetitions),
		registerResults:    slices.Clone(s.registerResults),
		seasons:            maps.Clone(s.seasons),
		competitions:       maps.Clone(s.competitions),
		results:            slices.Clone(s.results),
		teams:              slices.Clone(s.teams),
		teamResults:        slices.Clone(s.teamResults),
		seasonResults:      slices.Clone(s.seasonResults),
	}
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// MemoryStore keeps everything in process memory. Writers are serialized;
// a season transaction works on a staged copy that replaces the live state
// only when the transaction succeeds.
type MemoryStore struct {
	mu sync.RWMutex
	st *memState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// InSeasonTx runs fn against a staged copy of the state.
func (m *MemoryStore) InSeasonTx(ctx context.Context, _ int64, fn func(ctx context.Context, tx divari.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.st.clone()
	if err := fn(ctx, &memTx{st: staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.st = staged
	return nil
}

func (m *MemoryStore) read() (*memState, func()) {
	m.mu.RLock()
	return m.st, m.mu.RUnlock
}

func (m *MemoryStore) write() (*memState, func()) {
	m.mu.Lock()
	return m.st, m.mu.Unlock
}

// CreateOrganization stores org with a new id.
func (m *MemoryStore) CreateOrganization(_ context.Context, org model.Organization) (model.Organization, error) {
	st, unlock := m.write()
	defer unlock()

	for _, o := range st.organizations {
		if o.Abbreviation == org.Abbreviation {
			return model.Organization{}, fmt.Errorf("%w: organization %q", ErrAlreadyExists, org.Abbreviation)
		}
	}
	org.ID = st.id()
	st.organizations[org.ID] = org
	return org, nil
}

// Organization returns the organization with id.
func (m *MemoryStore) Organization(_ context.Context, id int64) (model.Organization, error) {
	st, unlock := m.read()
	defer unlock()

	org, ok := st.organizations[id]
	if !ok {
		return model.Organization{}, fmt.Errorf("%w: organization %d", ErrNotFound, id)
	}
	return org, nil
}

// CreateAthlete stores a.
func (m *MemoryStore) CreateAthlete(_ context.Context, a model.Athlete) (model.Athlete, error) {
	st, unlock := m.write()
	defer unlock()

	org, ok := st.organizations[a.Organization.ID]
	if !ok {
		return model.Athlete{}, fmt.Errorf("%w: organization %d", ErrReference, a.Organization.ID)
	}
	a.ID = st.id()
	a.Organization = org
	st.athletes[a.ID] = a
	return a, nil
}

// CreateRankedCompetition stores c.
func (m *MemoryStore) CreateRankedCompetition(_ context.Context, c model.RankedCompetition) (model.RankedCompetition, error) {
	st, unlock := m.write()
	defer unlock()

	c.ID = st.id()
	st.rankedCompetitions[c.ID] = c
	return c, nil
}

// CreateRegisterResult stores r.
func (m *MemoryStore) CreateRegisterResult(_ context.Context, r model.RegisterResult) (model.RegisterResult, error) {
	st, unlock := m.write()
	defer unlock()

	if _, ok := st.rankedCompetitions[r.CompetitionID]; !ok {
		return model.RegisterResult{}, fmt.Errorf("%w: competition %d", ErrReference, r.CompetitionID)
	}
	if _, ok := st.athletes[r.AthleteID]; !ok {
		return model.RegisterResult{}, fmt.Errorf("%w: athlete %d", ErrReference, r.AthleteID)
	}
	if _, ok := st.organizations[r.OrganizationID]; r.OrganizationID != 0 && !ok {
		return model.RegisterResult{}, fmt.Errorf("%w: organization %d", ErrReference, r.OrganizationID)
	}
	r.ID = st.id()
	st.registerResults = append(st.registerResults, r)
	return r, nil
}

// RankedResults implements ranking.Source.
func (m *MemoryStore) RankedResults(_ context.Context, f ranking.ResultFilter) ([]model.RankedResult, error) {
	st, unlock := m.read()
	defer unlock()

	start, end := model.Day(f.DateStart), model.Day(f.DateEnd)
	var out []model.RankedResult
	for _, r := range st.registerResults {
		comp := st.rankedCompetitions[r.CompetitionID]
		athlete, ok := st.athletes[r.AthleteID]
		if !ok || athlete.Organization.External {
			continue
		}
		if !slices.Contains(f.CompetitionTypes, comp.Type) || !slices.Contains(f.Categories, r.Category) {
			continue
		}
		if model.Day(comp.DateEnd).Before(start) || model.Day(comp.DateStart).After(end) {
			continue
		}
		athlete.Organization = st.organizations[athlete.Organization.ID]
		out = append(out, model.RankedResult{
			ID:              r.ID,
			CompetitionID:   r.CompetitionID,
			Athlete:         athlete,
			Category:        r.Category,
			CompetitionType: comp.Type,
			Score:           r.Score,
		})
	}
	slices.SortStableFunc(out, func(a, b model.RankedResult) int {
		if c := cmp.Compare(a.Athlete.ID, b.Athlete.ID); c != 0 {
			return c
		}
		return cmp.Compare(b.Score, a.Score)
	})
	return out, nil
}

// PlacedResults implements ranking.Source.
func (m *MemoryStore) PlacedResults(_ context.Context, f ranking.PlacementFilter) ([]model.PlacedResult, error) {
	st, unlock := m.read()
	defer unlock()

	var out []model.PlacedResult
	for _, r := range st.registerResults {
		comp := st.rankedCompetitions[r.CompetitionID]
		if r.OrganizationID == 0 || r.Position < 1 || r.Position > f.MaxPosition {
			continue
		}
		if comp.DateStart.Year() != f.Year || !slices.Contains(f.Levels, comp.Level) {
			continue
		}
		org := st.organizations[r.OrganizationID]
		out = append(out, model.PlacedResult{
			ID:            r.ID,
			CompetitionID: r.CompetitionID,
			Organization:  &org,
			Position:      r.Position,
		})
	}
	return out, nil
}

// CreateSeason stores s.
func (m *MemoryStore) CreateSeason(_ context.Context, s model.Season) (model.Season, error) {
	st, unlock := m.write()
	defer unlock()

	s.ID = st.id()
	s.StartLevels = maps.Clone(s.StartLevels)
	st.seasons[s.ID] = s
	return s, nil
}

// Season returns the season with id.
func (m *MemoryStore) Season(_ context.Context, id int64) (model.Season, error) {
	st, unlock := m.read()
	defer unlock()

	s, ok := st.seasons[id]
	if !ok {
		return model.Season{}, fmt.Errorf("%w: season %d", ErrNotFound, id)
	}
	return s, nil
}

// Seasons returns all seasons by start date.
func (m *MemoryStore) Seasons(_ context.Context) ([]model.Season, error) {
	st, unlock := m.read()
	defer unlock()

	return sortedSeasons(st.seasons, func(model.Season) bool { return true }), nil
}

// SeasonsAt returns the seasons containing d.
func (m *MemoryStore) SeasonsAt(_ context.Context, d time.Time) ([]model.Season, error) {
	st, unlock := m.read()
	defer unlock()

	return sortedSeasons(st.seasons, func(s model.Season) bool { return s.Contains(d) }), nil
}

// PreviousSeason returns the latest season ending before d.
func (m *MemoryStore) PreviousSeason(_ context.Context, d time.Time) (model.Season, error) {
	st, unlock := m.read()
	defer unlock()

	d = model.Day(d)
	var prev model.Season
	found := false
	for _, s := range sortedSeasons(st.seasons, func(s model.Season) bool { return model.Day(s.DateEnd).Before(d) }) {
		if !found || !s.DateEnd.Before(prev.DateEnd) {
			prev, found = s, true
		}
	}
	if !found {
		return model.Season{}, fmt.Errorf("%w: season before %s", ErrNotFound, d.Format(time.DateOnly))
	}
	return prev, nil
}

func sortedSeasons(seasons map[int64]model.Season, keep func(model.Season) bool) []model.Season {
	out := make([]model.Season, 0, len(seasons))
	for _, s := range seasons {
		if keep(s) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.Season) int {
		if c := a.DateStart.Compare(b.DateStart); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// EnsureTeams creates the missing teams.
func (m *MemoryStore) EnsureTeams(ctx context.Context, teams []model.Team) (int, error) {
	st, unlock := m.write()
	defer unlock()

	tx := &memTx{st: st}
	created := 0
	for _, t := range teams {
		if _, ok := st.seasons[t.SeasonID]; !ok {
			return created, fmt.Errorf("%w: season %d", ErrReference, t.SeasonID)
		}
		if _, ok, _ := tx.FindTeam(ctx, t.Key()); ok {
			continue
		}
		if _, err := tx.CreateTeam(ctx, t); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// Teams returns the teams of a season.
func (m *MemoryStore) Teams(ctx context.Context, seasonID int64) ([]model.Team, error) {
	st, unlock := m.read()
	defer unlock()

	return (&memTx{st: st}).SeasonTeams(ctx, seasonID)
}

// TeamResultCounts counts team results per team of the season.
func (m *MemoryStore) TeamResultCounts(_ context.Context, seasonID int64) (map[int64]int, error) {
	st, unlock := m.read()
	defer unlock()

	counts := make(map[int64]int)
	for _, t := range st.teams {
		if t.SeasonID == seasonID {
			counts[t.ID] = 0
		}
	}
	for _, tr := range st.teamResults {
		if _, ok := counts[tr.TeamID]; ok {
			counts[tr.TeamID]++
		}
	}
	return counts, nil
}

// SeasonStandings returns the season table.
func (m *MemoryStore) SeasonStandings(_ context.Context, seasonID int64, bow model.BowType) ([]model.Standing, error) {
	st, unlock := m.read()
	defer unlock()

	teams := make(map[int64]model.Team)
	for _, t := range st.teams {
		if t.SeasonID == seasonID && (bow == "" || t.BowType == bow) {
			teams[t.ID] = t
		}
	}
	var out []model.Standing
	for _, sr := range st.seasonResults {
		t, ok := teams[sr.TeamID]
		if !ok {
			continue
		}
		out = append(out, model.Standing{Team: t, Organization: st.organizations[t.OrganizationID], Score: sr.Score})
	}
	slices.SortFunc(out, compareStandings)
	return out, nil
}

func compareStandings(a, b model.Standing) int {
	if c := cmp.Compare(a.Team.BowType, b.Team.BowType); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Team.Division, b.Team.Division); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.Team.ID, b.Team.ID)
}

// CreateCompetition stores c.
func (m *MemoryStore) CreateCompetition(_ context.Context, c model.Competition) (model.Competition, error) {
	st, unlock := m.write()
	defer unlock()

	if _, ok := st.organizations[c.OrganizationID]; !ok {
		return model.Competition{}, fmt.Errorf("%w: organization %d", ErrReference, c.OrganizationID)
	}
	c.ID = st.id()
	c.Date = model.Day(c.Date)
	st.competitions[c.ID] = c
	return c, nil
}

// Competition returns the competition with id.
func (m *MemoryStore) Competition(_ context.Context, id int64) (model.Competition, error) {
	st, unlock := m.read()
	defer unlock()

	c, ok := st.competitions[id]
	if !ok {
		return model.Competition{}, fmt.Errorf("%w: competition %d", ErrNotFound, id)
	}
	return c, nil
}

// OrganizationCompetitions returns an organization's competitions within [from, to].
func (m *MemoryStore) OrganizationCompetitions(ctx context.Context, orgID int64, from, to time.Time) ([]model.Competition, error) {
	st, unlock := m.read()
	defer unlock()

	comps, _ := (&memTx{st: st}).CompetitionsBetween(ctx, model.Day(from), model.Day(to))
	return slices.DeleteFunc(comps, func(c model.Competition) bool { return c.OrganizationID != orgID }), nil
}

// CreateResult stores r.
func (m *MemoryStore) CreateResult(_ context.Context, r model.Result) (model.Result, error) {
	st, unlock := m.write()
	defer unlock()

	if _, ok := st.competitions[r.CompetitionID]; !ok {
		return model.Result{}, fmt.Errorf("%w: competition %d", ErrReference, r.CompetitionID)
	}
	for _, o := range st.results {
		if o.CompetitionID == r.CompetitionID && o.BowType == r.BowType &&
			o.TargetType == r.TargetType && o.Athlete == r.Athlete {
			return model.Result{}, fmt.Errorf("%w: result of %q", ErrAlreadyExists, r.Athlete)
		}
	}
	r.ID = st.id()
	st.results = append(st.results, r)
	return r, nil
}

// CompetitionResults returns the results of a competition in id order.
func (m *MemoryStore) CompetitionResults(_ context.Context, competitionID int64) ([]model.Result, error) {
	st, unlock := m.read()
	defer unlock()

	var out []model.Result
	for _, r := range st.results {
		if r.CompetitionID == competitionID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Counts returns row totals.
func (m *MemoryStore) Counts(_ context.Context) (Counts, error) {
	st, unlock := m.read()
	defer unlock()

	return Counts{
		Seasons:       len(st.seasons),
		Competitions:  len(st.competitions),
		Results:       len(st.results),
		Teams:         len(st.teams),
		TeamResults:   len(st.teamResults),
		SeasonResults: len(st.seasonResults),
	}, nil
}

var _ Store = (*MemoryStore)(nil)
