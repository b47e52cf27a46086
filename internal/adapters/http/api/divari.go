package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/divari/internal/app"
	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/pkg/logger"
)

// DivariHandler serves the divari trigger, input and standings routes.
type DivariHandler struct {
	svc    DivariService
	logger logger.Logger
}

// NewDivariHandler creates a new divari handler.
func NewDivariHandler(svc DivariService, log logger.Logger) *DivariHandler {
	return &DivariHandler{svc: svc, logger: log}
}

// seasonID accepts a JSON number or a numeric string.
type seasonID int64

func (id *seasonID) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return fmt.Errorf("season %v is not an integer", v)
		}
		*id = seasonID(v)
		return nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("season %q is not an integer", v)
		}
		*id = seasonID(n)
		return nil
	}
	return fmt.Errorf("season must be an integer")
}

type calculateRequest struct {
	Season *seasonID `json:"season" validate:"required"`
}

type calculateResponse struct {
	Season     int64 `json:"season"`
	Calculated bool  `json:"calculated"`
}

// HandleCalculate handles POST /divari/calculate.
func (h *DivariHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req calculateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidSeason, errInvalidSeason)
		return
	}

	id := int64(*req.Season)
	stats, err := h.svc.CalculateSeason(ctx, id)
	if errors.Is(err, service.ErrSeasonNotFound) {
		writeError(w, http.StatusBadRequest, codeInvalidSeason, errInvalidSeason)
		return
	}
	if err != nil {
		writeServiceError(ctx, h.logger, w, err)
		return
	}
	h.logger.Info(ctx, "season calculated",
		logger.Int64("season", id),
		logger.Int("team_results", stats.TeamResults),
		logger.Int("season_results", stats.SeasonResults),
	)
	writeJSON(w, http.StatusOK, calculateResponse{Season: id, Calculated: true})
}

type recalculateResponse struct {
	Date    string `json:"date,omitempty"`
	Seasons int    `json:"seasons"`
}

// HandleRecalculate handles POST /divari/recalculate?date=YYYY-MM-DD.
func (h *DivariHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := parseDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, fmt.Errorf("invalid date %q; must be YYYY-MM-DD", raw))
			return
		}
		date = &d
	}

	n, err := h.svc.RecalculateSeasons(ctx, date)
	if err != nil {
		writeServiceError(ctx, h.logger, w, err)
		return
	}
	resp := recalculateResponse{Seasons: n}
	if date != nil {
		resp.Date = date.Format(time.DateOnly)
	}
	writeJSON(w, http.StatusOK, resp)
}

type seasonRequest struct {
	Name               string `json:"name" validate:"required"`
	DateStart          string `json:"date_start" validate:"required,datetime=2006-01-02"`
	DateEnd            string `json:"date_end" validate:"required,datetime=2006-01-02"`
	ResultCount        *int   `json:"result_count" validate:"required,min=0"`
	StartLevelRecurve  *int   `json:"start_level_recurve" validate:"omitempty,min=1"`
	StartLevelCompound *int   `json:"start_level_compound" validate:"omitempty,min=1"`
	StartLevelBarebow  *int   `json:"start_level_barebow" validate:"omitempty,min=1"`
	StartLevelLongbow  *int   `json:"start_level_longbow" validate:"omitempty,min=1"`
}

func (req seasonRequest) season() model.Season {
	start, _ := parseDay(req.DateStart)
	end, _ := parseDay(req.DateEnd)
	s := model.Season{
		Name:        req.Name,
		DateStart:   start,
		DateEnd:     end,
		ResultCount: *req.ResultCount,
		StartLevels: make(map[model.BowType]int),
	}
	for bow, lvl := range map[model.BowType]*int{
		model.BowRecurve:  req.StartLevelRecurve,
		model.BowCompound: req.StartLevelCompound,
		model.BowBarebow:  req.StartLevelBarebow,
		model.BowLongbow:  req.StartLevelLongbow,
	} {
		if lvl != nil {
			s.StartLevels[bow] = *lvl
		}
	}
	return s
}

type seasonResponse struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	DateStart          string `json:"date_start"`
	DateEnd            string `json:"date_end"`
	ResultCount        int    `json:"result_count"`
	StartLevelRecurve  *int   `json:"start_level_recurve"`
	StartLevelCompound *int   `json:"start_level_compound"`
	StartLevelBarebow  *int   `json:"start_level_barebow"`
	StartLevelLongbow  *int   `json:"start_level_longbow"`
	SeededTeams        *int   `json:"seeded_teams,omitempty"`
}

func newSeasonResponse(s model.Season) seasonResponse {
	level := func(b model.BowType) *int {
		if lvl, ok := s.StartLevel(b); ok {
			return &lvl
		}
		return nil
	}
	return seasonResponse{
		ID:                 s.ID,
		Name:               s.Name,
		DateStart:          s.DateStart.Format(time.DateOnly),
		DateEnd:            s.DateEnd.Format(time.DateOnly),
		ResultCount:        s.ResultCount,
		StartLevelRecurve:  level(model.BowRecurve),
		StartLevelCompound: level(model.BowCompound),
		StartLevelBarebow:  level(model.BowBarebow),
		StartLevelLongbow:  level(model.BowLongbow),
	}
}

// HandleListSeasons handles GET /divari/seasons.
func (h *DivariHandler) HandleListSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.svc.Seasons(r.Context())
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	out := make([]seasonResponse, 0, len(seasons))
	for _, s := range seasons {
		out = append(out, newSeasonResponse(s))
	}
	writeJSON(w, http.StatusOK, listResponse[seasonResponse]{Results: out})
}

// HandleCreateSeason handles POST /divari/seasons.
func (h *DivariHandler) HandleCreateSeason(w http.ResponseWriter, r *http.Request) {
	var req seasonRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err)
		return
	}
	season, seeded, err := h.svc.CreateSeason(r.Context(), req.season())
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	resp := newSeasonResponse(season)
	resp.SeededTeams = &seeded
	writeJSON(w, http.StatusCreated, resp)
}

type competitionRequest struct {
	Organization int64  `json:"organization" validate:"required,gt=0"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
}

type competitionResponse struct {
	ID           int64  `json:"id"`
	Organization int64  `json:"organization"`
	Date         string `json:"date"`
}

// HandleCreateCompetition handles POST /divari/competitions.
func (h *DivariHandler) HandleCreateCompetition(w http.ResponseWriter, r *http.Request) {
	var req competitionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err)
		return
	}
	date, _ := parseDay(req.Date)
	c, err := h.svc.CreateCompetition(r.Context(), model.Competition{OrganizationID: req.Organization, Date: date})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, competitionResponse{
		ID:           c.ID,
		Organization: c.OrganizationID,
		Date:         c.Date.Format(time.DateOnly),
	})
}

type resultRequest struct {
	Competition int64  `json:"competition" validate:"required,gt=0"`
	BowType     string `json:"bow_type" validate:"required,oneof=recurve compound barebow longbow"`
	TargetType  string `json:"target_type" validate:"required,oneof=40 60"`
	Athlete     string `json:"athlete" validate:"required,max=255"`
	Result      *int   `json:"result" validate:"required,min=0,max=600"`
}

type resultResponse struct {
	ID          int64  `json:"id"`
	Competition int64  `json:"competition"`
	BowType     string `json:"bow_type"`
	TargetType  string `json:"target_type"`
	Athlete     string `json:"athlete"`
	Result      int    `json:"result"`
}

// HandleCreateResult handles POST /divari/results.
func (h *DivariHandler) HandleCreateResult(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err)
		return
	}
	res, err := h.svc.CreateResult(r.Context(), model.Result{
		CompetitionID: req.Competition,
		BowType:       model.BowType(req.BowType),
		TargetType:    model.TargetType(req.TargetType),
		Athlete:       req.Athlete,
		Score:         *req.Result,
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resultResponse{
		ID:          res.ID,
		Competition: res.CompetitionID,
		BowType:     string(res.BowType),
		TargetType:  string(res.TargetType),
		Athlete:     res.Athlete,
		Result:      res.Score,
	})
}

type teamResponse struct {
	ID           int64  `json:"id"`
	BowType      string `json:"bow_type"`
	Organization string `json:"organization"`
	Number       int    `json:"number"`
	Division     int    `json:"division"`
	Season       int64  `json:"season"`
}

type standingResponse struct {
	Team   teamResponse `json:"team"`
	Result int          `json:"result"`
}

// HandleSeasonResults handles GET /divari/seasonresults?season=&bow_type=.
func (h *DivariHandler) HandleSeasonResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.ParseInt(q.Get("season"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidSeason, errInvalidSeason)
		return
	}

	standings, err := h.svc.SeasonStandings(r.Context(), id, model.BowType(q.Get("bow_type")))
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	out := make([]standingResponse, 0, len(standings))
	for _, s := range standings {
		out = append(out, standingResponse{
			Team: teamResponse{
				ID:           s.Team.ID,
				BowType:      string(s.Team.BowType),
				Organization: s.Organization.Name,
				Number:       s.Team.Number,
				Division:     s.Team.Division,
				Season:       s.Team.SeasonID,
			},
			Result: s.Score,
		})
	}
	writeJSON(w, http.StatusOK, listResponse[standingResponse]{Results: out})
}
