// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/okian/divari/internal/domain/divari"
	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/internal/domain/ranking"
	"github.com/okian/divari/pkg/logger"
)

const maxBodyBytes = 1 << 20

// DivariService runs and reads divari calculations.
type DivariService interface {
	CalculateSeason(ctx context.Context, seasonID int64) (divari.Stats, error)
	RecalculateSeasons(ctx context.Context, date *time.Time) (int, error)
	Seasons(ctx context.Context) ([]model.Season, error)
	CreateSeason(ctx context.Context, s model.Season) (model.Season, int, error)
	CreateCompetition(ctx context.Context, c model.Competition) (model.Competition, error)
	CreateResult(ctx context.Context, r model.Result) (model.Result, error)
	SeasonStandings(ctx context.Context, seasonID int64, bow model.BowType) ([]model.Standing, error)
}

// RankingService computes the statistics reports.
type RankingService interface {
	SJALRanking(ctx context.Context, q ranking.Query) ([]ranking.Entry, error)
	OrganizationPoints(ctx context.Context, q ranking.PointsQuery) ([]ranking.OrganizationPoints, error)
}

// RegisterService writes the national results register.
type RegisterService interface {
	CreateOrganization(ctx context.Context, o model.Organization) (model.Organization, error)
	CreateAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error)
	CreateRankedCompetition(ctx context.Context, c model.RankedCompetition) (model.RankedCompetition, error)
	CreateRegisterResult(ctx context.Context, r model.RegisterResult) (model.RegisterResult, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DivariService
	RankingService
	RegisterService
	StatsProvider
}

// Option configures the Server.
type Option func(*Server)

// WithRecalcLimit throttles the calculate and recalculate routes.
func WithRecalcLimit(perSec float64, burst int) Option {
	return func(s *Server) {
		if perSec > 0 && burst > 0 {
			s.recalcLimiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	divariHandler     *DivariHandler
	statisticsHandler *StatisticsHandler
	registerHandler   *RegisterHandler

	recalcLimiter *rate.Limiter
	logger        logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		recalcLimiter: rate.NewLimiter(rate.Limit(1), 5),
		logger:        logger.Get().Named("http"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.divariHandler = NewDivariHandler(deps, s.logger)
	s.statisticsHandler = NewStatisticsHandler(deps, s.logger)
	s.registerHandler = NewRegisterHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	limited := func(h http.HandlerFunc) http.HandlerFunc { return RateLimit(s.recalcLimiter, h) }

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	d := s.divariHandler
	mux.HandleFunc("POST /divari/calculate", MetricsMiddleware(limited(d.HandleCalculate), "divari_calculate"))
	mux.HandleFunc("POST /divari/recalculate", MetricsMiddleware(limited(d.HandleRecalculate), "divari_recalculate"))
	mux.HandleFunc("GET /divari/seasons", MetricsMiddleware(d.HandleListSeasons, "divari_seasons"))
	mux.HandleFunc("POST /divari/seasons", MetricsMiddleware(d.HandleCreateSeason, "divari_seasons"))
	mux.HandleFunc("POST /divari/competitions", MetricsMiddleware(d.HandleCreateCompetition, "divari_competitions"))
	mux.HandleFunc("POST /divari/results", MetricsMiddleware(d.HandleCreateResult, "divari_results"))
	mux.HandleFunc("GET /divari/seasonresults", MetricsMiddleware(d.HandleSeasonResults, "divari_seasonresults"))

	st := s.statisticsHandler
	mux.HandleFunc("GET /statistics/sjal-ranking/{division}", MetricsMiddleware(st.HandleSJALRanking, "sjal_ranking"))
	mux.HandleFunc("GET /statistics/organization-points/{year}", MetricsMiddleware(st.HandleOrganizationPoints, "organization_points"))

	rg := s.registerHandler
	mux.HandleFunc("POST /register/organizations", MetricsMiddleware(rg.HandleCreateOrganization, "register_organizations"))
	mux.HandleFunc("POST /register/athletes", MetricsMiddleware(rg.HandleCreateAthlete, "register_athletes"))
	mux.HandleFunc("POST /register/competitions", MetricsMiddleware(rg.HandleCreateCompetition, "register_competitions"))
	mux.HandleFunc("POST /register/results", MetricsMiddleware(rg.HandleCreateResult, "register_results"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// listResponse wraps every list payload.
type listResponse[T any] struct {
	Results []T `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps err and logs the ones that are not the caller's fault.
func writeServiceError(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// validate reports fields by their JSON names.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", ErrBadRequest, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, describe(err))
	}
	return nil
}

// describe renders validation errors as "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fe.Field()+": "+rule)
	}
	return strings.Join(parts, ", ")
}

// parseDay parses a YYYY-MM-DD value.
func parseDay(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, strings.TrimSpace(s))
}
