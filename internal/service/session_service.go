package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"teamhealth/internal/cache"
	"teamhealth/internal/model"
	"teamhealth/internal/session"
	"teamhealth/internal/survey"
)

const (
	completedSaveAttempts = 3
	completedSaveBackoff  = 50 * time.Millisecond
	notifyTimeout         = 5 * time.Second
)

// SessionService drives participant sessions. Each operation loads the
// stored state, applies one event and stores the result; the state is only
// written back when the event was accepted. No event is accepted while a
// submit for the session is outstanding.
type SessionService struct {
	checks      *HealthCheckService
	backend     Backend
	sessions    cache.SessionCache
	gate        cache.SubmitGate
	authSvc     *AuthService
	broadcaster Broadcaster
}

// NewSessionService creates a new session service
func NewSessionService(checks *HealthCheckService, backend Backend, sessions cache.SessionCache, gate cache.SubmitGate, authSvc *AuthService) *SessionService {
	return &SessionService{
		checks:      checks,
		backend:     backend,
		sessions:    sessions,
		gate:        gate,
		authSvc:     authSvc,
		broadcaster: noopBroadcaster{},
	}
}

// SetBroadcaster sets the broadcaster (called after hub is created)
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	if b == nil {
		b = noopBroadcaster{}
	}
	s.broadcaster = b
}

// Start opens a new Ready session for a health check and returns the
// participant token bound to it. The health check must exist.
func (s *SessionService) Start(ctx context.Context, healthCheckID string) (*model.SessionStartResponse, error) {
	if _, err := s.checks.Get(ctx, healthCheckID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &session.Record{
		ID:            uuid.NewString(),
		HealthCheckID: healthCheckID,
		State:         session.NewState(survey.TopicCount()),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.sessions.Set(ctx, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	token, err := s.authSvc.GenerateParticipantToken(healthCheckID, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	log.Printf("[Session] %s started for health check %s", rec.ID, healthCheckID)
	return &model.SessionStartResponse{
		Token:   token,
		Session: View(rec),
	}, nil
}

// Get returns the current snapshot of a session. While a submit is
// outstanding the snapshot reports Submitting.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.SessionView, error) {
	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	view := View(rec)
	if view.Reviewable {
		held, err := s.gate.Held(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("check submit gate: %w", err)
		}
		view.Submitting = held
	}
	return view, nil
}

func (s *SessionService) Begin(ctx context.Context, sessionID string) (*model.SessionView, error) {
	return s.apply(ctx, sessionID, session.Event{Type: session.EventBegin})
}

// SelectRating records the candidate rating for the displayed topic
func (s *SessionService) SelectRating(ctx context.Context, sessionID string, topic int, rating model.Rating) (*model.SessionView, error) {
	return s.apply(ctx, sessionID, session.Event{Type: session.EventSelectRating, Topic: topic, Rating: rating})
}

func (s *SessionService) ConfirmTopic(ctx context.Context, sessionID string) (*model.SessionView, error) {
	return s.apply(ctx, sessionID, session.Event{Type: session.EventConfirmTopic})
}

func (s *SessionService) Restart(ctx context.Context, sessionID string) (*model.SessionView, error) {
	return s.apply(ctx, sessionID, session.Event{Type: session.EventRestart})
}

// Submit sends the collected ratings to the backend. Only one submit per
// session may be outstanding; a concurrent one gets
// model.ErrSubmissionInFlight without reaching the backend. On failure the
// stored session stays reviewable and the error wraps
// model.ErrSubmissionFailed. If the backend took the response but the
// completed session cannot be saved, the session is dropped and an error is
// returned.
func (s *SessionService) Submit(ctx context.Context, sessionID string) (*model.SessionView, error) {
	ok, err := s.gate.Acquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("acquire submit gate: %w", err)
	}
	if !ok {
		return nil, model.ErrSubmissionInFlight
	}
	defer func() {
		// the gate must be released even when the request context is gone
		if err := s.gate.Release(context.Background(), sessionID); err != nil {
			log.Printf("[Session] release submit gate for %s: %v", sessionID, err)
		}
	}()

	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m, err := session.Restore(rec.State)
	if err != nil {
		return nil, err
	}

	if _, err := m.Submit(ctx, s.backend, rec.HealthCheckID); err != nil {
		return nil, err
	}

	rec.State = m.State()
	rec.UpdatedAt = time.Now().UTC()
	if err := s.saveCompleted(rec); err != nil {
		s.publishResults(rec.HealthCheckID)
		return nil, err
	}

	log.Printf("[Session] %s submitted response %s to health check %s", sessionID, rec.State.ResponseID, rec.HealthCheckID)
	s.publishResults(rec.HealthCheckID)
	return View(rec), nil
}

// saveCompleted stores a submitted session. When it cannot be stored the
// session is deleted, since the stored copy is still reviewable and a second
// submit of it would count the response twice.
func (s *SessionService) saveCompleted(rec *session.Record) error {
	// the response exists now; a cancelled request must not lose it
	ctx := context.Background()

	var err error
	for attempt := 0; attempt < completedSaveAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * completedSaveBackoff)
		}
		if err = s.sessions.Set(ctx, rec); err == nil {
			return nil
		}
		log.Printf("[Session] save completed session %s (attempt %d/%d): %v", rec.ID, attempt+1, completedSaveAttempts, err)
	}

	if delErr := s.sessions.Delete(ctx, rec.ID); delErr != nil {
		log.Printf("[Session] delete unsaved session %s: %v", rec.ID, delErr)
	}
	return fmt.Errorf("response %s stored but session %s was not saved: %w", rec.State.ResponseID, rec.ID, err)
}

// publishResults pushes a fresh summary to the check's results viewers in
// the background
func (s *SessionService) publishResults(healthCheckID string) {
	if s.broadcaster.Viewers(healthCheckID) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		s.notifyResults(ctx, healthCheckID)
	}()
}

func (s *SessionService) notifyResults(ctx context.Context, healthCheckID string) {
	summary, err := s.checks.Results(ctx, healthCheckID)
	if err != nil {
		log.Printf("[Session] reload results for %s: %v", healthCheckID, err)
		s.broadcaster.BroadcastResults(healthCheckID, model.MsgResultsUpdate, map[string]string{"healthCheckId": healthCheckID})
		return
	}
	s.broadcaster.BroadcastResults(healthCheckID, model.MsgResultsUpdate, summary)
}

func (s *SessionService) load(ctx context.Context, sessionID string) (*session.Record, error) {
	rec, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return nil, model.ErrSessionNotFound
	}
	return rec, nil
}

func (s *SessionService) apply(ctx context.Context, sessionID string, e session.Event) (*model.SessionView, error) {
	held, err := s.gate.Held(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("check submit gate: %w", err)
	}
	if held {
		return nil, model.ErrSubmissionInFlight
	}

	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m, err := session.Restore(rec.State)
	if err != nil {
		return nil, err
	}
	if err := m.Apply(e); err != nil {
		return nil, err
	}

	rec.State = m.State()
	rec.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Set(ctx, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return View(rec), nil
}

// View projects a stored session into the snapshot the UI renders
func View(rec *session.Record) *model.SessionView {
	st := rec.State
	v := &model.SessionView{
		SessionID:       rec.ID,
		HealthCheckID:   rec.HealthCheckID,
		Phase:           string(st.Phase),
		TopicCount:      st.TopicCount,
		CurrentTopic:    st.CurrentTopic,
		Candidate:       st.Candidate,
		Collected:       make([]model.Rating, len(st.Collected)),
		CollectedLabels: make([]string, len(st.Collected)),
		Reviewable:      st.Reviewable(),
		Submitting:      st.Submitting,
		ResponseID:      st.ResponseID,
	}
	copy(v.Collected, st.Collected)
	for i, r := range st.Collected {
		v.CollectedLabels[i] = survey.RatingLabel(r)
	}

	if st.Phase == session.PhaseInProgress && st.CurrentTopic < st.TopicCount {
		if t, ok := survey.Topic(st.CurrentTopic); ok {
			v.Topic = &t
			v.TopicColor = survey.TopicColor(st.CurrentTopic)
		}
	}

	if v.Reviewable {
		v.Review = make([]model.ReviewRow, len(st.Collected))
		for i, r := range st.Collected {
			t, _ := survey.Topic(i)
			v.Review[i] = model.ReviewRow{Title: t.Title, Rating: r, Label: survey.RatingLabel(r)}
		}
	}
	return v
}
