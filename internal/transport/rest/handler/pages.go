package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"teamhealth/internal/model"
	"teamhealth/internal/results"
	"teamhealth/internal/service"
	"teamhealth/internal/survey"
	"teamhealth/internal/transport/rest/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"deref": func(r *model.Rating) model.Rating { return *r },
}

func parsePage(name string) *template.Template {
	return template.Must(template.New(name).Funcs(pageFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

var (
	createPage  = parsePage("create.html")
	checkPage   = parsePage("check.html")
	resultsPage = parsePage("results.html")
)

type createData struct {
	Error   string
	Created *model.CreateHealthCheckResponse
}

// checkData drives check.html; the template picks the view from Session.Phase
type checkData struct {
	ID       string
	Error    string
	NotFound bool
	Session  *model.SessionView
	Choices  []RatingChoice
}

type resultsData struct {
	ID       string
	Error    string
	NotFound bool
	Summary  *results.Summary
}

// PageHandler serves the browser pages. Session actions are plain form
// posts that redirect back to the check page.
type PageHandler struct {
	checks   *service.HealthCheckService
	sessions *service.SessionService
	authSvc  *service.AuthService
}

// NewPageHandler creates a new page handler
func NewPageHandler(checks *service.HealthCheckService, sessions *service.SessionService, authSvc *service.AuthService) *PageHandler {
	return &PageHandler{
		checks:   checks,
		sessions: sessions,
		authSvc:  authSvc,
	}
}

func render(w http.ResponseWriter, t *template.Template, status int, data interface{}) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("[HTTP] render %s: %v", t.Name(), err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Home handles GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	render(w, createPage, http.StatusOK, createData{})
}

// CreateCheck handles POST /
func (h *PageHandler) CreateCheck(w http.ResponseWriter, r *http.Request) {
	created, err := h.checks.Create(r.Context())
	if err != nil {
		log.Printf("[HTTP] create health check: %v", err)
		render(w, createPage, statusFor(err), createData{Error: "Could not create a health check. Please try again."})
		return
	}
	render(w, createPage, http.StatusCreated, createData{Created: created})
}

// Check handles GET /check/{id}
func (h *PageHandler) Check(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data, status := h.loadCheck(r, id)
	render(w, checkPage, status, data)
}

func (h *PageHandler) loadCheck(r *http.Request, id string) (*checkData, int) {
	data := &checkData{ID: id, Choices: choices()}
	if _, err := h.checks.Get(r.Context(), id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			data.NotFound = true
			return data, http.StatusNotFound
		}
		log.Printf("[HTTP] load health check %s: %v", id, err)
		data.Error = "Could not reach the health check service. Please try again."
		return data, http.StatusBadGateway
	}
	data.Session = h.currentSession(r, id)
	return data, http.StatusOK
}

func choices() []RatingChoice {
	out := make([]RatingChoice, 0, model.RatingLevels)
	for _, rating := range survey.Choices() {
		out = append(out, RatingChoice{Value: rating, Label: survey.RatingLabel(rating)})
	}
	return out
}

// currentSession returns the cookie's session when it belongs to this
// health check
func (h *PageHandler) currentSession(r *http.Request, healthCheckID string) *model.SessionView {
	c, err := r.Cookie(middleware.SessionCookie)
	if err != nil {
		return nil
	}
	claims, err := h.authSvc.ValidateParticipantToken(c.Value)
	if err != nil || claims.HealthCheckID != healthCheckID {
		return nil
	}
	view, err := h.sessions.Get(r.Context(), claims.SessionID)
	if err != nil {
		if !errors.Is(err, model.ErrSessionNotFound) {
			log.Printf("[HTTP] load session %s: %v", claims.SessionID, err)
		}
		return nil
	}
	return view
}

func (h *PageHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authSvc.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func redirectToCheck(w http.ResponseWriter, r *http.Request, id string) {
	http.Redirect(w, r, "/check/"+id, http.StatusSeeOther)
}

// actionFailed re-renders the check page with the error of a rejected action
func (h *PageHandler) actionFailed(w http.ResponseWriter, r *http.Request, id string, err error, message string) {
	data, status := h.loadCheck(r, id)
	if status == http.StatusOK {
		status = statusFor(err)
		data.Error = message
	}
	render(w, checkPage, status, data)
}

// startSession opens a new session, stores its token in the cookie and
// begins it
func (h *PageHandler) startSession(w http.ResponseWriter, r *http.Request, id string) error {
	start, err := h.sessions.Start(r.Context(), id)
	if err != nil {
		return err
	}
	h.setSessionCookie(w, r, start.Token)
	_, err = h.sessions.Begin(r.Context(), start.Session.SessionID)
	return err
}

// Begin handles POST /check/{id}/begin
func (h *PageHandler) Begin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	current := h.currentSession(r, id)
	var err error
	switch {
	case current == nil:
		err = h.startSession(w, r, id)
	case current.Phase == "ready":
		_, err = h.sessions.Begin(r.Context(), current.SessionID)
	}
	if err != nil {
		h.actionFailed(w, r, id, err, "Could not start the health check: "+err.Error())
		return
	}
	redirectToCheck(w, r, id)
}

// Again handles POST /check/{id}/again; a new session records a new response
func (h *PageHandler) Again(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.startSession(w, r, id); err != nil {
		h.actionFailed(w, r, id, err, "Could not start the health check: "+err.Error())
		return
	}
	redirectToCheck(w, r, id)
}

// Rate handles POST /check/{id}/rate: selects the posted rating, if any,
// and confirms the topic
func (h *PageHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	current := h.currentSession(r, id)
	if current == nil {
		redirectToCheck(w, r, id)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if raw := r.PostForm.Get("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			h.actionFailed(w, r, id, model.ErrInvalidRating, "Please choose a rating.")
			return
		}
		topic, err := strconv.Atoi(r.PostForm.Get("topic"))
		if err != nil {
			topic = current.CurrentTopic
		}
		if _, err := h.sessions.SelectRating(r.Context(), current.SessionID, topic, model.Rating(rating)); err != nil {
			h.actionFailed(w, r, id, err, ratingMessage(err))
			return
		}
	}

	if _, err := h.sessions.ConfirmTopic(r.Context(), current.SessionID); err != nil {
		h.actionFailed(w, r, id, err, ratingMessage(err))
		return
	}
	redirectToCheck(w, r, id)
}

func ratingMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrNoRatingSelected), errors.Is(err, model.ErrInvalidRating):
		return "Please choose a rating."
	case errors.Is(err, model.ErrInvalidTransition):
		return "That topic has already been answered."
	}
	return fmt.Sprintf("Could not save your rating: %v", err)
}

// Restart handles POST /check/{id}/restart
func (h *PageHandler) Restart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if current := h.currentSession(r, id); current != nil {
		if _, err := h.sessions.Restart(r.Context(), current.SessionID); err != nil {
			h.actionFailed(w, r, id, err, "Could not start over: "+err.Error())
			return
		}
	}
	redirectToCheck(w, r, id)
}

// Submit handles POST /check/{id}/submit
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	current := h.currentSession(r, id)
	if current == nil {
		redirectToCheck(w, r, id)
		return
	}

	if _, err := h.sessions.Submit(r.Context(), current.SessionID); err != nil {
		msg := "Could not submit your responses. Your answers are kept; please try again."
		if errors.Is(err, model.ErrSubmissionInFlight) {
			msg = "Your responses are already being submitted."
		}
		h.actionFailed(w, r, id, err, msg)
		return
	}
	redirectToCheck(w, r, id)
}

// Results handles GET /results/{id}
func (h *PageHandler) Results(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	summary, err := h.checks.Results(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			render(w, resultsPage, http.StatusNotFound, resultsData{ID: id, NotFound: true})
			return
		}
		log.Printf("[HTTP] load results %s: %v", id, err)
		render(w, resultsPage, http.StatusBadGateway, resultsData{ID: id, Error: "Could not load results. Please try again."})
		return
	}
	render(w, resultsPage, http.StatusOK, resultsData{ID: id, Summary: summary})
}
