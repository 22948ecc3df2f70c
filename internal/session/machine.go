package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"teamhealth/internal/model"
)

// Submitter appends a finished response vector to a health check and
// returns the created response ID
type Submitter interface {
	CreateHealthCheckResponse(ctx context.Context, healthCheckID string, ratings model.ResponseVector) (string, error)
}

// Machine owns one session's state. It is not safe for concurrent use;
// callers serialise UI events per session.
type Machine struct {
	state State
}

// New returns a machine in the Ready phase
func New(topicCount int) *Machine {
	return &Machine{state: NewState(topicCount)}
}

// Restore rebuilds a machine from a stored state
func Restore(s State) (*Machine, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if s.Submitting {
		return nil, fmt.Errorf("restore session: stored state has a submission in flight")
	}
	return &Machine{state: s.clone()}, nil
}

// State returns a copy of the current state
func (m *Machine) State() State {
	return m.state.clone()
}

// Apply runs one event through Transition. On error the state is unchanged.
func (m *Machine) Apply(e Event) error {
	next, err := Transition(m.state, e)
	if err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *Machine) Begin() error {
	return m.Apply(Event{Type: EventBegin})
}

// SelectRating sets or replaces the candidate rating for the current topic
func (m *Machine) SelectRating(topic int, rating model.Rating) error {
	return m.Apply(Event{Type: EventSelectRating, Topic: topic, Rating: rating})
}

// ConfirmTopic commits the candidate rating and advances to the next topic
func (m *Machine) ConfirmTopic() error {
	return m.Apply(Event{Type: EventConfirmTopic})
}

// Restart discards collected ratings and starts again at the first topic
func (m *Machine) Restart() error {
	return m.Apply(Event{Type: EventRestart})
}

func (m *Machine) Phase() Phase      { return m.state.Phase }
func (m *Machine) CurrentTopic() int { return m.state.CurrentTopic }
func (m *Machine) Reviewable() bool  { return m.state.Reviewable() }

// Ratings returns the confirmed ratings collected so far
func (m *Machine) Ratings() model.ResponseVector {
	return model.ResponseVector(m.state.Collected).Clone()
}

// Submit sends the collected ratings to sub. On success the machine is
// Complete and the created response ID is returned. On failure the machine
// stays reviewable with its ratings intact and Submit may be called again.
// There is no automatic retry: a repeated create call after an ambiguous
// failure could count the response twice.
func (m *Machine) Submit(ctx context.Context, sub Submitter, healthCheckID string) (string, error) {
	if err := m.Apply(Event{Type: EventSubmitStarted}); err != nil {
		return "", err
	}

	start := time.Now()
	id, err := sub.CreateHealthCheckResponse(ctx, healthCheckID, m.Ratings())
	if err != nil {
		// SubmitFailed is always valid while Submitting is set
		_ = m.Apply(Event{Type: EventSubmitFailed})
		log.Printf("[Session] submit to %s failed after %v: %v", healthCheckID, time.Since(start), err)
		return "", fmt.Errorf("%w: %w", model.ErrSubmissionFailed, err)
	}

	if err := m.Apply(Event{Type: EventSubmitSucceeded, ResponseID: id}); err != nil {
		return "", err
	}
	return id, nil
}
