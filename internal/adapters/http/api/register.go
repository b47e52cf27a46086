package api

import (
	"net/http"
	"time"

	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/pkg/logger"
)

// RegisterHandler accepts writes to the national results register.
type RegisterHandler struct {
	svc    RegisterService
	logger logger.Logger
}

// NewRegisterHandler creates a new register handler.
func NewRegisterHandler(svc RegisterService, log logger.Logger) *RegisterHandler {
	return &RegisterHandler{svc: svc, logger: log}
}

type organizationRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Abbreviation string `json:"abbreviation" validate:"required,max=32"`
	External     bool   `json:"external"`
}

type createdOrganizationResponse struct {
	organizationResponse
	External bool `json:"external"`
}

// HandleCreateOrganization handles POST /register/organizations.
func (h *RegisterHandler) HandleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err)
		return
	}
	org, err := h.svc.CreateOrganization(r.Context(), model.Organization{
		Name:         req.Name,
		Abbreviation: req.Abbreviation,
		External:     req.External,
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdOrganizationResponse{
		organizationResponse: organizationResponse{ID: org.ID, Name: org.Name, Abbreviation: org.Abbreviation},
		External:             org.External,
	})
}

type athleteRequest struct {
	FirstName    string `json:"first_name" validate:"required,max=255"`
	LastName     string `json:"last_name" validate:"required,max=255"`
	Organization int64  `json:"organization" validate:"required,gt=0"`
}

// HandleCreateAthlete handles POST /register/athletes.
func (h *RegisterHandler) HandleCreateAthlete(w http.ResponseWriter, r *http.Request) {
	var req athleteRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err)
		return
	}
	a, err := h.svc.CreateAthlete(r.Context(), model.Athlete{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Organization: model.Organization{ID: req.Organization},
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, athleteResponse{
		ID:           a.ID,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Organization: a.Organization.Abbreviation,
	})
}

type rankedCompetitionRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	DateStart string `json:"date_start" validate:"required,datetime=2006-01-02"`
	DateEnd   string `json:"date_end" validate:"required,datetime=2006-01-02"`
	Type      string `json:"type" validate:"required,max=16"`
	Level     string `json:"level" validate:"omitempty,max=16"`
}

type rankedCompetitionResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	DateStart string `json:"date_start"`
	DateEnd   string `json:"date_end"`
	Type      string `json:"type"`
	Level     string `json:"level,omitempty"`
}

// HandleCreateCompetition handles POST /register/competitions.
func (h *RegisterHandler) HandleCreateCompetition(w http.ResponseWriter, r *http.Request) {
	var req rankedCompetitionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err)
		return
	}
	start, _ := parseDay(req.DateStart)
	end, _ := parseDay(req.DateEnd)
	c, err := h.svc.CreateRankedCompetition(r.Context(), model.RankedCompetition{
		Name:      req.Name,
		DateStart: start,
		DateEnd:   end,
		Type:      req.Type,
		Level:     req.Level,
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rankedCompetitionResponse{
		ID:        c.ID,
		Name:      c.Name,
		DateStart: c.DateStart.Format(time.DateOnly),
		DateEnd:   c.DateEnd.Format(time.DateOnly),
		Type:      c.Type,
		Level:     c.Level,
	})
}

type registerResultRequest struct {
	Competition  int64  `json:"competition" validate:"required,gt=0"`
	Athlete      int64  `json:"athlete" validate:"required,gt=0"`
	Organization int64  `json:"organization" validate:"omitempty,gt=0"`
	Category     string `json:"category" validate:"required,max=16"`
	Result       int    `json:"result" validate:"min=0"`
	Position     int    `json:"position" validate:"omitempty,min=1"`
}

type registerResultResponse struct {
	ID           int64  `json:"id"`
	Competition  int64  `json:"competition"`
	Athlete      int64  `json:"athlete"`
	Organization int64  `json:"organization,omitempty"`
	Category     string `json:"category"`
	Result       int    `json:"result"`
	Position     int    `json:"position,omitempty"`
}

// HandleCreateResult handles POST /register/results.
func (h *RegisterHandler) HandleCreateResult(w http.ResponseWriter, r *http.Request) {
	var req registerResultRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err)
		return
	}
	res, err := h.svc.CreateRegisterResult(r.Context(), model.RegisterResult{
		CompetitionID:  req.Competition,
		AthleteID:      req.Athlete,
		OrganizationID: req.Organization,
		Category:       req.Category,
		Score:          req.Result,
		Position:       req.Position,
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResultResponse{
		ID:           res.ID,
		Competition:  res.CompetitionID,
		Athlete:      res.AthleteID,
		Organization: res.OrganizationID,
		Category:     res.Category,
		Result:       res.Score,
		Position:     res.Position,
	})
}
