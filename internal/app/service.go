// Package service wires storage, the divari calculator, the ranking engine
// and the recalculation worker pool into the operations the HTTP API and
// the command line tools use.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/okian/divari/internal/adapters/mq/queue"
	"github.com/okian/divari/internal/adapters/mq/worker"
	"github.com/okian/divari/internal/adapters/repository"
	"github.com/okian/divari/internal/adapters/repository/postgres"
	"github.com/okian/divari/internal/adapters/repository/sqlite"
	"github.com/okian/divari/internal/config"
	"github.com/okian/divari/internal/domain/dedupe"
	"github.com/okian/divari/internal/domain/divari"
	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/internal/domain/ranking"
	"github.com/okian/divari/pkg/logger"
	"github.com/okian/divari/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

// Reasons recorded on scheduled jobs.
const (
	ReasonResult = "result"
)

// Service implements the API dependencies for divari and the ranking reports.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	ownsStore bool
	calc      *divari.Calculator
	engine    *ranking.Engine
	deduper   dedupe.Deduper
	jobs      *queue.InMemoryQueue
	pool      *worker.Pool
	cancel    context.CancelFunc

	// Configuration
	driver            string
	sqlitePath        string
	postgresURL       string
	workerCount       int
	queueSize         int
	dedupeSize        int
	recalcConcurrency int
	maxRankingLimit   int
	now               func() time.Time

	// inputMu serializes the check-then-write of divari inputs.
	inputMu sync.Mutex
	// outstanding counts queued jobs that have not finished.
	outstanding atomic.Int64

	started  bool
	stopping bool
	logger   logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		ownsStore:         true,
		driver:            config.DriverMemory,
		workerCount:       runtime.NumCPU(),
		queueSize:         1024,
		dedupeSize:        4096,
		recalcConcurrency: 1,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens storage and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting divari service...")

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}
	s.calc = divari.NewCalculator(s.store)
	s.engine = ranking.NewEngine(s.store)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobs, jobRunner{s}, worker.WithPending(s.deduper))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "divari service started",
		logger.String("storage", s.driver),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.driver {
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, s.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, s.postgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", s.driver)
}

// Stop drains pending jobs and releases storage.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pool := s.pool
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping divari service...")

	// Draining workers call back into the service; the lock must be free.
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "error closing store", logger.Error(err))
		}
		s.store = nil
	}
	s.started = false
	s.stopping = false
	s.logger.Info(ctx, "divari service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// jobRunner runs queued jobs for the worker pool.
type jobRunner struct{ s *Service }

func (r jobRunner) RecalculateSeason(ctx context.Context, seasonID int64) error {
	defer r.s.outstanding.Add(-1)
	_, err := r.s.CalculateSeason(ctx, seasonID)
	return err
}

// CalculateSeason recomputes one season synchronously.
func (s *Service) CalculateSeason(ctx context.Context, seasonID int64) (divari.Stats, error) {
	if err := s.ready(); err != nil {
		return divari.Stats{}, err
	}
	season, err := s.season(ctx, seasonID)
	if err != nil {
		return divari.Stats{}, err
	}
	return s.calc.CalculateSeasonResults(ctx, season)
}

// RecalculateSeasons recomputes every season containing date, or every
// season when date is nil, and returns how many it processed.
func (s *Service) RecalculateSeasons(ctx context.Context, date *time.Time) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var (
		seasons []model.Season
		err     error
	)
	if date != nil {
		seasons, err = s.store.SeasonsAt(ctx, model.Day(*date))
	} else {
		seasons, err = s.store.Seasons(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("list seasons: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.recalcConcurrency)
	for _, season := range seasons {
		g.Go(func() error {
			_, err := s.calc.CalculateSeasonResults(gctx, season)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "seasons recalculated", logger.Int("seasons", len(seasons)))
	return len(seasons), nil
}

// Schedule queues an asynchronous recalculation of a season. A request for
// a season that already has a pending job joins that job.
func (s *Service) Schedule(ctx context.Context, seasonID int64, reason string) error {
	if err := s.ready(); err != nil {
		return err
	}
	job := queue.NewJob(seasonID, reason)
	if s.deduper.SeenAndRecord(ctx, job.Key()) {
		metrics.RecordJobCoalesced()
		return nil
	}
	s.outstanding.Add(1)
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		s.outstanding.Add(-1)
		s.deduper.Unrecord(ctx, job.Key())
		return fmt.Errorf("enqueue season %d: %w", seasonID, err)
	}
	return nil
}

// CreateSeason stores a season and carries over the previous season's teams
// that played a full season. It returns the season and the number of teams
// carried over.
func (s *Service) CreateSeason(ctx context.Context, in model.Season) (model.Season, int, error) {
	if err := s.ready(); err != nil {
		return model.Season{}, 0, err
	}
	if err := validateSeason(in); err != nil {
		return model.Season{}, 0, err
	}

	previous, err := s.store.PreviousSeason(ctx, in.DateStart)
	hasPrevious := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.Season{}, 0, fmt.Errorf("previous season: %w", err)
	}

	season, err := s.store.CreateSeason(ctx, in)
	if err != nil {
		return model.Season{}, 0, fmt.Errorf("create season: %w", err)
	}
	if !hasPrevious {
		return season, 0, nil
	}

	teams, err := s.store.Teams(ctx, previous.ID)
	if err != nil {
		return season, 0, fmt.Errorf("teams of season %d: %w", previous.ID, err)
	}
	counts, err := s.store.TeamResultCounts(ctx, previous.ID)
	if err != nil {
		return season, 0, fmt.Errorf("team result counts of season %d: %w", previous.ID, err)
	}
	created, err := s.store.EnsureTeams(ctx, divari.SeedTeams(previous, teams, counts, season))
	if err != nil {
		return season, 0, fmt.Errorf("seed teams: %w", err)
	}
	s.logger.Info(ctx, "season created",
		logger.Int64("season", season.ID),
		logger.Int64("previous", previous.ID),
		logger.Int("seeded_teams", created),
	)
	return season, created, nil
}

func validateSeason(in model.Season) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: season name is required", ErrInvalidInput)
	}
	if in.DateStart.IsZero() || in.DateEnd.IsZero() || model.Day(in.DateEnd).Before(model.Day(in.DateStart)) {
		return fmt.Errorf("%w: season must end on or after its start", ErrInvalidInput)
	}
	if in.ResultCount < 0 {
		return fmt.Errorf("%w: result count must not be negative", ErrInvalidInput)
	}
	for bow, lvl := range in.StartLevels {
		if !bow.Valid() || lvl < 1 {
			return fmt.Errorf("%w: start level %d for %q", ErrInvalidInput, lvl, bow)
		}
	}
	return nil
}

// CreateCompetition stores a divari competition. An organization holds at
// most one competition per month, and the date must fall inside a season
// and not in the future.
func (s *Service) CreateCompetition(ctx context.Context, in model.Competition) (model.Competition, error) {
	if err := s.ready(); err != nil {
		return model.Competition{}, err
	}
	if in.Date.IsZero() {
		return model.Competition{}, fmt.Errorf("%w: competition date is required", ErrInvalidInput)
	}
	date := model.Day(in.Date)
	if date.After(model.Day(s.now())) {
		return model.Competition{}, fmt.Errorf("%w: cannot create a future competition", ErrInvalidInput)
	}
	if _, err := s.store.Organization(ctx, in.OrganizationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Competition{}, fmt.Errorf("%w: unknown organization %d", ErrInvalidInput, in.OrganizationID)
		}
		return model.Competition{}, err
	}

	s.inputMu.Lock()
	defer s.inputMu.Unlock()

	seasons, err := s.store.SeasonsAt(ctx, date)
	if err != nil {
		return model.Competition{}, fmt.Errorf("seasons at %s: %w", date.Format(time.DateOnly), err)
	}
	if len(seasons) == 0 {
		return model.Competition{}, fmt.Errorf("%w: there is no divari season active", ErrInvalidInput)
	}

	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	existing, err := s.store.OrganizationCompetitions(ctx, in.OrganizationID, first, last)
	if err != nil {
		return model.Competition{}, fmt.Errorf("competitions of organization %d: %w", in.OrganizationID, err)
	}
	if len(existing) > 0 {
		return model.Competition{}, fmt.Errorf("%w: there is already a competition in this month", ErrInvalidInput)
	}

	in.Date = date
	return s.store.CreateCompetition(ctx, in)
}

// CreateResult stores a divari result and schedules recalculation of the
// seasons containing the competition. Athlete names are unique per
// competition, bow type and target type, compared case-insensitively.
func (s *Service) CreateResult(ctx context.Context, in model.Result) (model.Result, error) {
	if err := s.ready(); err != nil {
		return model.Result{}, err
	}
	in.Athlete = strings.TrimSpace(in.Athlete)
	switch {
	case in.Athlete == "":
		return model.Result{}, fmt.Errorf("%w: athlete is required", ErrInvalidInput)
	case in.Score < model.MinScore || in.Score > model.MaxScore:
		return model.Result{}, fmt.Errorf("%w: invalid result value %d", ErrInvalidInput, in.Score)
	case !in.BowType.Valid():
		return model.Result{}, fmt.Errorf("%w: unknown bow type %q", ErrInvalidInput, in.BowType)
	case !in.TargetType.Valid():
		return model.Result{}, fmt.Errorf("%w: unknown target type %q", ErrInvalidInput, in.TargetType)
	}

	comp, err := s.store.Competition(ctx, in.CompetitionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Result{}, fmt.Errorf("%w: unknown competition %d", ErrInvalidInput, in.CompetitionID)
		}
		return model.Result{}, err
	}

	s.inputMu.Lock()
	result, err := s.createUniqueResult(ctx, in)
	s.inputMu.Unlock()
	if err != nil {
		return model.Result{}, err
	}

	seasons, err := s.store.SeasonsAt(ctx, comp.Date)
	if err != nil {
		return result, fmt.Errorf("seasons at %s: %w", comp.Date.Format(time.DateOnly), err)
	}
	for _, season := range seasons {
		if err := s.Schedule(ctx, season.ID, ReasonResult); err != nil {
			metrics.RecordErrorByComponent("service", "schedule")
			s.logger.Warn(ctx, "recalculation not scheduled",
				logger.Int64("season", season.ID),
				logger.Error(err),
			)
		}
	}
	return result, nil
}

func (s *Service) createUniqueResult(ctx context.Context, in model.Result) (model.Result, error) {
	existing, err := s.store.CompetitionResults(ctx, in.CompetitionID)
	if err != nil {
		return model.Result{}, fmt.Errorf("results of competition %d: %w", in.CompetitionID, err)
	}
	fold := cases.Fold()
	name := fold.String(in.Athlete)
	for _, r := range existing {
		if r.BowType == in.BowType && r.TargetType == in.TargetType && fold.String(r.Athlete) == name {
			return model.Result{}, fmt.Errorf("%w: %q already has a result in this competition", ErrInvalidInput, in.Athlete)
		}
	}

	result, err := s.store.CreateResult(ctx, in)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return model.Result{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return result, err
}

// CreateOrganization stores a register organization.
func (s *Service) CreateOrganization(ctx context.Context, in model.Organization) (model.Organization, error) {
	if err := s.ready(); err != nil {
		return model.Organization{}, err
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Abbreviation) == "" {
		return model.Organization{}, fmt.Errorf("%w: organization name and abbreviation are required", ErrInvalidInput)
	}
	return inputErr(s.store.CreateOrganization(ctx, in))
}

// CreateAthlete stores a register athlete.
func (s *Service) CreateAthlete(ctx context.Context, in model.Athlete) (model.Athlete, error) {
	if err := s.ready(); err != nil {
		return model.Athlete{}, err
	}
	return inputErr(s.store.CreateAthlete(ctx, in))
}

// CreateRankedCompetition stores a register competition.
func (s *Service) CreateRankedCompetition(ctx context.Context, in model.RankedCompetition) (model.RankedCompetition, error) {
	if err := s.ready(); err != nil {
		return model.RankedCompetition{}, err
	}
	if in.DateStart.IsZero() || in.DateEnd.IsZero() || in.DateEnd.Before(in.DateStart) {
		return model.RankedCompetition{}, fmt.Errorf("%w: competition must end on or after its start", ErrInvalidInput)
	}
	return inputErr(s.store.CreateRankedCompetition(ctx, in))
}

// CreateRegisterResult stores a register result.
func (s *Service) CreateRegisterResult(ctx context.Context, in model.RegisterResult) (model.RegisterResult, error) {
	if err := s.ready(); err != nil {
		return model.RegisterResult{}, err
	}
	if in.Position < 0 {
		return model.RegisterResult{}, fmt.Errorf("%w: position must not be negative", ErrInvalidInput)
	}
	return inputErr(s.store.CreateRegisterResult(ctx, in))
}

// inputErr reports broken references and duplicates as invalid input.
func inputErr[T any](v T, err error) (T, error) {
	if errors.Is(err, repository.ErrReference) || errors.Is(err, repository.ErrAlreadyExists) {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return v, err
}

// SJALRanking computes the SJAL ranking. The limit is capped by the
// configured maximum.
func (s *Service) SJALRanking(ctx context.Context, q ranking.Query) ([]ranking.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.maxRankingLimit > 0 && (q.Limit <= 0 || q.Limit > s.maxRankingLimit) {
		q.Limit = s.maxRankingLimit
	}
	return s.engine.SJAL(ctx, q)
}

// OrganizationPoints computes the organization points tally.
func (s *Service) OrganizationPoints(ctx context.Context, q ranking.PointsQuery) ([]ranking.OrganizationPoints, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.engine.OrganizationPoints(ctx, q)
}

// SeasonStandings returns the season table, optionally for one bow type.
func (s *Service) SeasonStandings(ctx context.Context, seasonID int64, bow model.BowType) ([]model.Standing, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if bow != "" && !bow.Valid() {
		return nil, fmt.Errorf("%w: unknown bow type %q", ErrInvalidInput, bow)
	}
	if _, err := s.season(ctx, seasonID); err != nil {
		return nil, err
	}
	return s.store.SeasonStandings(ctx, seasonID, bow)
}

// Seasons lists every season.
func (s *Service) Seasons(ctx context.Context) ([]model.Season, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Seasons(ctx)
}

func (s *Service) season(ctx context.Context, id int64) (model.Season, error) {
	season, err := s.store.Season(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Season{}, fmt.Errorf("%w: %d", ErrSeasonNotFound, id)
	}
	if err != nil {
		return model.Season{}, fmt.Errorf("get season %d: %w", id, err)
	}
	return season, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"storage":     s.driver,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	stats["queueLength"] = s.jobs.Len()
	stats["pendingSeasons"] = s.deduper.Size()
	stats["outstandingJobs"] = s.outstanding.Load()
	counts, err := s.store.Counts(context.Background())
	if err != nil {
		s.logger.Warn(context.Background(), "counts unavailable", logger.Error(err))
		return stats
	}
	stats["counts"] = counts
	return stats
}

// WaitIdle blocks until every scheduled job has finished, or ctx is done.
func (s *Service) WaitIdle(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.outstanding.Load() <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
