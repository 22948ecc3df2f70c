package handler

import (
	"encoding/json"
	"net/http"

	"teamhealth/internal/model"
	"teamhealth/internal/service"
	"teamhealth/internal/transport/rest/middleware"
)

// SessionHandler handles participant session endpoints. Every route sits
// behind RequireParticipant.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.GetSessionID(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return id, true
}

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, view *model.SessionView, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Get godoc
// @Summary Current session snapshot
// @Tags sessions
// @Security ParticipantToken
// @Produce json
// @Success 200 {object} model.SessionView
// @Router /session [get]
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.sessions.Get(r.Context(), id)
	h.respond(w, r, view, err)
}

// Begin godoc
// @Summary Start answering topics
// @Tags sessions
// @Security ParticipantToken
// @Produce json
// @Success 200 {object} model.SessionView
// @Failure 409 {object} Error
// @Router /session/begin [post]
func (h *SessionHandler) Begin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.sessions.Begin(r.Context(), id)
	h.respond(w, r, view, err)
}

// Select godoc
// @Summary Choose a rating for the current topic
// @Tags sessions
// @Security ParticipantToken
// @Accept json
// @Produce json
// @Param body body model.SelectRatingRequest true "Topic index and rating"
// @Success 200 {object} model.SessionView
// @Failure 409 {object} Error
// @Failure 422 {object} Error
// @Router /session/select [post]
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req model.SelectRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.sessions.SelectRating(r.Context(), id, req.Topic, req.Rating)
	h.respond(w, r, view, err)
}

// Confirm godoc
// @Summary Confirm the selected rating and move to the next topic
// @Tags sessions
// @Security ParticipantToken
// @Produce json
// @Success 200 {object} model.SessionView
// @Failure 409 {object} Error
// @Failure 422 {object} Error
// @Router /session/confirm [post]
func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.sessions.ConfirmTopic(r.Context(), id)
	h.respond(w, r, view, err)
}

// Restart godoc
// @Summary Discard collected ratings and start over
// @Tags sessions
// @Security ParticipantToken
// @Produce json
// @Success 200 {object} model.SessionView
// @Failure 409 {object} Error
// @Router /session/restart [post]
func (h *SessionHandler) Restart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.sessions.Restart(r.Context(), id)
	h.respond(w, r, view, err)
}

// Submit godoc
// @Summary Submit the collected ratings
// @Tags sessions
// @Security ParticipantToken
// @Produce json
// @Success 200 {object} model.SessionView
// @Failure 409 {object} Error
// @Failure 502 {object} Error
// @Router /session/submit [post]
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.sessions.Submit(r.Context(), id)
	h.respond(w, r, view, err)
}
