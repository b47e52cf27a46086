package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/divari/internal/domain/ranking"
	"github.com/okian/divari/pkg/logger"
)

// StatisticsHandler serves the ranking reports.
type StatisticsHandler struct {
	svc    RankingService
	logger logger.Logger
}

// NewStatisticsHandler creates a new statistics handler.
func NewStatisticsHandler(svc RankingService, log logger.Logger) *StatisticsHandler {
	return &StatisticsHandler{svc: svc, logger: log}
}

type athleteResponse struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Organization string `json:"organization"`
}

type rankingEntryResponse struct {
	Athlete      athleteResponse `json:"athlete"`
	Result       int             `json:"result"`
	Competitions int             `json:"competitions"`
	Rank         int             `json:"rank"`
}

// HandleSJALRanking handles GET /statistics/sjal-ranking/{division}.
// An unknown division or missing dates give an empty ranking.
func (h *StatisticsHandler) HandleSJALRanking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	division, _ := ranking.ParseDivision(r.PathValue("division"))
	query := ranking.Query{Division: division}
	if d, err := parseDay(q.Get("date_start")); err == nil {
		query.DateStart = d
	}
	if d, err := parseDay(q.Get("date_end")); err == nil {
		query.DateEnd = d
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		query.Limit = n
	}

	entries, err := h.svc.SJALRanking(r.Context(), query)
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	out := make([]rankingEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, rankingEntryResponse{
			Athlete: athleteResponse{
				ID:           e.Athlete.ID,
				FirstName:    e.Athlete.FirstName,
				LastName:     e.Athlete.LastName,
				Organization: e.Athlete.Organization.Abbreviation,
			},
			Result:       e.Result,
			Competitions: e.Competitions,
			Rank:         e.Rank,
		})
	}
	writeJSON(w, http.StatusOK, listResponse[rankingEntryResponse]{Results: out})
}

type organizationResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type pointsResponse struct {
	Organization organizationResponse `json:"organization"`
	Value        int                  `json:"value"`
}

// HandleOrganizationPoints handles GET /statistics/organization-points/{year}.
func (h *StatisticsHandler) HandleOrganizationPoints(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, codeInvalidInput, fmt.Errorf("invalid year %q", r.PathValue("year")))
		return
	}

	q := r.URL.Query()
	query := ranking.PointsQuery{Year: year, Levels: levels(q["level"])}
	if raw := q.Get("max_position"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, codeInvalidInput, fmt.Errorf("invalid max_position %q", raw))
			return
		}
		query.MaxPosition = n
	}

	points, err := h.svc.OrganizationPoints(r.Context(), query)
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	out := make([]pointsResponse, 0, len(points))
	for _, p := range points {
		out = append(out, pointsResponse{
			Organization: organizationResponse{
				ID:           p.Organization.ID,
				Name:         p.Organization.Name,
				Abbreviation: p.Organization.Abbreviation,
			},
			Value: p.Value,
		})
	}
	writeJSON(w, http.StatusOK, listResponse[pointsResponse]{Results: out})
}

// levels accepts repeated and comma separated level parameters.
func levels(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
	}
	return out
}
