package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"teamhealth/internal/model"
	"teamhealth/internal/service"
	"teamhealth/internal/survey"
)

// HealthCheckHandler handles health check endpoints
type HealthCheckHandler struct {
	checks   *service.HealthCheckService
	sessions *service.SessionService
}

// NewHealthCheckHandler creates a new health check handler
func NewHealthCheckHandler(checks *service.HealthCheckService, sessions *service.SessionService) *HealthCheckHandler {
	return &HealthCheckHandler{
		checks:   checks,
		sessions: sessions,
	}
}

// TopicsResponse describes the survey every health check uses
type TopicsResponse struct {
	Topics  []model.Topic  `json:"topics"`
	Ratings []RatingChoice `json:"ratings"`
}

// RatingChoice is one point of the rating scale
type RatingChoice struct {
	Value model.Rating `json:"value"`
	Label string       `json:"label"`
}

// Topics godoc
// @Summary List survey topics and rating labels
// @Tags topics
// @Produce json
// @Success 200 {object} TopicsResponse
// @Router /topics [get]
func (h *HealthCheckHandler) Topics(w http.ResponseWriter, r *http.Request) {
	resp := TopicsResponse{Topics: survey.Topics()}
	for _, rating := range []model.Rating{model.RatingSucky, model.RatingOK, model.RatingAwesome} {
		resp.Ratings = append(resp.Ratings, RatingChoice{Value: rating, Label: survey.RatingLabel(rating)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create godoc
// @Summary Create a health check
// @Tags checks
// @Produce json
// @Success 201 {object} model.CreateHealthCheckResponse
// @Failure 502 {object} Error
// @Router /checks [post]
func (h *HealthCheckHandler) Create(w http.ResponseWriter, r *http.Request) {
	created, err := h.checks.Create(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get godoc
// @Summary Get a health check
// @Tags checks
// @Produce json
// @Param id path string true "Health check ID"
// @Success 200 {object} model.HealthCheckInfo
// @Failure 404 {object} Error
// @Router /checks/{id} [get]
func (h *HealthCheckHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.checks.Info(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Results godoc
// @Summary Aggregated results of a health check
// @Tags checks
// @Produce json
// @Param id path string true "Health check ID"
// @Success 200 {object} results.Summary
// @Failure 404 {object} Error
// @Router /checks/{id}/results [get]
func (h *HealthCheckHandler) Results(w http.ResponseWriter, r *http.Request) {
	summary, err := h.checks.Results(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// StartSession godoc
// @Summary Open a participant session
// @Tags sessions
// @Produce json
// @Param id path string true "Health check ID"
// @Success 201 {object} model.SessionStartResponse
// @Failure 404 {object} Error
// @Router /checks/{id}/sessions [post]
func (h *HealthCheckHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	start, err := h.sessions.Start(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, start)
}
