// Package session drives one participant through a health check.
//
// A session is a plain State value. Every change goes through Transition,
// which takes a state and an event and returns the next state or an error;
// the input state is never modified. Machine wraps a State for callers that
// prefer method calls and adds the Submit round trip.
//
//	ready --begin--> in_progress --submit ok--> complete
//
// Inside in_progress the session walks the topics in order. selectRating
// sets a candidate for the current topic, confirmTopic appends it and moves
// on. Once every topic is confirmed the session is reviewable and may be
// submitted or restarted.
package session

import (
	"fmt"

	"teamhealth/internal/model"
)

// Phase is the top-level state of a session
type Phase string

const (
	PhaseReady      Phase = "ready"
	PhaseInProgress Phase = "in_progress"
	PhaseComplete   Phase = "complete"
)

// State is the complete value of a session
type State struct {
	Phase        Phase          `json:"phase"`
	TopicCount   int            `json:"topicCount"`
	CurrentTopic int            `json:"currentTopic"`
	Collected    []model.Rating `json:"collected"`
	Candidate    *model.Rating  `json:"candidate,omitempty"`
	Submitting   bool           `json:"submitting,omitempty"`
	ResponseID   string         `json:"responseId,omitempty"`
}

// NewState returns a Ready session over topicCount topics
func NewState(topicCount int) State {
	return State{Phase: PhaseReady, TopicCount: topicCount}
}

// Reviewable is true once every topic has a confirmed rating and the
// response has not been submitted yet
func (s State) Reviewable() bool {
	return s.Phase == PhaseInProgress && s.CurrentTopic == s.TopicCount
}

// Validate checks the invariants a stored state must satisfy
func (s State) Validate() error {
	switch s.Phase {
	case PhaseReady, PhaseInProgress, PhaseComplete:
	default:
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	if s.TopicCount <= 0 {
		return fmt.Errorf("topic count must be positive, got %d", s.TopicCount)
	}
	if s.CurrentTopic < 0 || s.CurrentTopic > s.TopicCount {
		return fmt.Errorf("current topic %d outside [0, %d]", s.CurrentTopic, s.TopicCount)
	}
	if s.Phase == PhaseInProgress && len(s.Collected) != s.CurrentTopic {
		return fmt.Errorf("collected %d ratings at topic %d", len(s.Collected), s.CurrentTopic)
	}
	for i, r := range s.Collected {
		if !r.Valid() {
			return fmt.Errorf("collected rating %d: %w", i, model.ErrInvalidRating)
		}
	}
	if s.Candidate != nil && !s.Candidate.Valid() {
		return fmt.Errorf("candidate: %w", model.ErrInvalidRating)
	}
	return nil
}

func (s State) clone() State {
	next := s
	if s.Collected != nil {
		next.Collected = make([]model.Rating, len(s.Collected))
		copy(next.Collected, s.Collected)
	}
	if s.Candidate != nil {
		c := *s.Candidate
		next.Candidate = &c
	}
	return next
}

// EventType names a UI action or a network completion
type EventType string

const (
	EventBegin           EventType = "begin"
	EventSelectRating    EventType = "select_rating"
	EventConfirmTopic    EventType = "confirm_topic"
	EventRestart         EventType = "restart"
	EventSubmitStarted   EventType = "submit_started"
	EventSubmitSucceeded EventType = "submit_succeeded"
	EventSubmitFailed    EventType = "submit_failed"
)

// Event is the input to Transition. Topic and Rating are read by
// EventSelectRating, ResponseID by EventSubmitSucceeded.
type Event struct {
	Type       EventType
	Topic      int
	Rating     model.Rating
	ResponseID string
}

// Transition returns the state that follows s after e
func Transition(s State, e Event) (State, error) {
	switch e.Type {
	case EventBegin:
		if s.Phase != PhaseReady {
			return s, invalid(s, e)
		}
		return State{
			Phase:      PhaseInProgress,
			TopicCount: s.TopicCount,
			Collected:  []model.Rating{},
		}, nil

	case EventSelectRating:
		if !s.collecting() {
			return s, invalid(s, e)
		}
		if e.Topic != s.CurrentTopic {
			return s, fmt.Errorf("%w: topic %d is not the current topic %d", model.ErrInvalidTransition, e.Topic, s.CurrentTopic)
		}
		if !e.Rating.Valid() {
			return s, fmt.Errorf("%w: got %d", model.ErrInvalidRating, e.Rating)
		}
		next := s.clone()
		r := e.Rating
		next.Candidate = &r
		return next, nil

	case EventConfirmTopic:
		if !s.collecting() {
			return s, invalid(s, e)
		}
		if s.Candidate == nil {
			return s, model.ErrNoRatingSelected
		}
		next := s.clone()
		next.Collected = append(next.Collected, *s.Candidate)
		next.Candidate = nil
		next.CurrentTopic++
		return next, nil

	case EventRestart:
		if s.Phase != PhaseInProgress || s.Submitting {
			return s, invalid(s, e)
		}
		return State{
			Phase:      PhaseInProgress,
			TopicCount: s.TopicCount,
			Collected:  []model.Rating{},
		}, nil

	case EventSubmitStarted:
		if !s.Reviewable() {
			return s, invalid(s, e)
		}
		if s.Submitting {
			return s, model.ErrSubmissionInFlight
		}
		next := s.clone()
		next.Submitting = true
		return next, nil

	case EventSubmitSucceeded:
		if !s.Submitting {
			return s, invalid(s, e)
		}
		// the ratings now belong to the backend
		return State{
			Phase:        PhaseComplete,
			TopicCount:   s.TopicCount,
			CurrentTopic: s.TopicCount,
			ResponseID:   e.ResponseID,
		}, nil

	case EventSubmitFailed:
		if !s.Submitting {
			return s, invalid(s, e)
		}
		next := s.clone()
		next.Submitting = false
		return next, nil
	}

	return s, fmt.Errorf("%w: unknown event %q", model.ErrInvalidTransition, e.Type)
}

// collecting is true while a topic is on screen and can take a rating
func (s State) collecting() bool {
	return s.Phase == PhaseInProgress && !s.Submitting && s.CurrentTopic < s.TopicCount
}

func invalid(s State, e Event) error {
	return fmt.Errorf("%w: %s from %s (topic %d of %d)", model.ErrInvalidTransition, e.Type, s.Phase, s.CurrentTopic, s.TopicCount)
}
