package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhealth/internal/cache"
	"teamhealth/internal/model"
	"teamhealth/internal/results"
	"teamhealth/internal/session"
	"teamhealth/internal/testutil"
)

type recordedBroadcast struct {
	healthCheckID string
	msgType       string
	payload       interface{}
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []recordedBroadcast
}

func (b *recordingBroadcaster) BroadcastResults(healthCheckID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, recordedBroadcast{healthCheckID, msgType, payload})
}

func (b *recordingBroadcaster) Viewers(string) int { return 1 }

func (b *recordingBroadcaster) all() []recordedBroadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedBroadcast(nil), b.msgs...)
}

type fixture struct {
	backend  *testutil.FakeBackend
	checks   *HealthCheckService
	sessions *SessionService
	auth     *AuthService
	bc       *recordingBroadcaster
	redis    *miniredis.Miniredis
}

// failingCompleteCache refuses to store completed sessions
type failingCompleteCache struct {
	cache.SessionCache
	mu    sync.Mutex
	fails int
}

func (c *failingCompleteCache) Set(ctx context.Context, rec *session.Record) error {
	if rec.State.Phase == session.PhaseComplete {
		c.mu.Lock()
		c.fails++
		c.mu.Unlock()
		return errors.New("redis: connection refused")
	}
	return c.SessionCache.Set(ctx, rec)
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, nil)
}

func newFixtureWithCache(t *testing.T, wrap func(cache.SessionCache) cache.SessionCache) *fixture {
	t.Helper()
	fb := testutil.NewFakeBackend(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	client := NewHealthCheckClient(fb.URL(), 5*time.Second, 2).WithBackoff(time.Millisecond)
	checks := NewHealthCheckService(client, "http://teamhealth.test/")
	auth := NewAuthService("test-secret", time.Hour)
	sessions := cache.NewSessionCache(rdb, time.Hour)
	if wrap != nil {
		sessions = wrap(sessions)
	}
	svc := NewSessionService(checks, client, sessions, cache.NewSubmitGate(rdb, time.Minute), auth)
	bc := &recordingBroadcaster{}
	svc.SetBroadcaster(bc)

	return &fixture{backend: fb, checks: checks, sessions: svc, auth: auth, bc: bc, redis: mr}
}

var scenario = []model.Rating{2, 1, 0, 2, 1, 0, 2, 1, 0, 2, 1}

func (f *fixture) walk(t *testing.T, sessionID string, ratings []model.Rating) *model.SessionView {
	t.Helper()
	ctx := context.Background()
	var view *model.SessionView
	for i, r := range ratings {
		_, err := f.sessions.SelectRating(ctx, sessionID, i, r)
		require.NoError(t, err)
		view, err = f.sessions.ConfirmTopic(ctx, sessionID)
		require.NoError(t, err)
	}
	return view
}

func TestSessionServiceStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.checks.Create(ctx)
	require.NoError(t, err)

	start, err := f.sessions.Start(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(session.PhaseReady), start.Session.Phase)
	assert.Equal(t, 11, start.Session.TopicCount)

	claims, err := f.auth.ValidateParticipantToken(start.Token)
	require.NoError(t, err)
	assert.Equal(t, start.Session.SessionID, claims.SessionID)
	assert.Equal(t, created.ID, claims.HealthCheckID)

	_, err = f.sessions.Start(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSessionServiceFullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.checks.Create(ctx)
	require.NoError(t, err)
	start, err := f.sessions.Start(ctx, created.ID)
	require.NoError(t, err)
	id := start.Session.SessionID

	view, err := f.sessions.Begin(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, view.Topic)
	assert.Equal(t, "Delivering Value", view.Topic.Title)
	assert.Equal(t, "orange", view.TopicColor)

	view = f.walk(t, id, scenario)
	assert.True(t, view.Reviewable)
	assert.Nil(t, view.Topic)
	require.Len(t, view.Review, 11)
	assert.Equal(t, model.ReviewRow{Title: "Easy to release", Rating: model.RatingOK, Label: "OK"}, view.Review[1])
	assert.Equal(t, "Awesome", view.CollectedLabels[0])

	_, err = f.sessions.ConfirmTopic(ctx, id)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	view, err = f.sessions.Submit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(session.PhaseComplete), view.Phase)
	assert.NotEmpty(t, view.ResponseID)

	assert.Equal(t, [][]int{{2, 1, 0, 2, 1, 0, 2, 1, 0, 2, 1}}, f.backend.Responses(created.ID))

	require.Eventually(t, func() bool { return len(f.bc.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	msgs := f.bc.all()
	assert.Equal(t, created.ID, msgs[0].healthCheckID)
	assert.Equal(t, model.MsgResultsUpdate, msgs[0].msgType)
	summary, ok := msgs[0].payload.(*results.Summary)
	require.True(t, ok)
	assert.Equal(t, 1, summary.TotalResponses)
	assert.Equal(t, [3]int{0, 1, 0}, summary.Topics[1].Counts)
	assert.Equal(t, results.BucketMid, summary.Topics[1].Bucket)

	stored, err := f.sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(session.PhaseComplete), stored.Phase)
}

func TestSessionServiceRejectedEventsAreNotStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, _ := f.checks.Create(ctx)
	start, err := f.sessions.Start(ctx, created.ID)
	require.NoError(t, err)
	id := start.Session.SessionID

	_, err = f.sessions.ConfirmTopic(ctx, id)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = f.sessions.Begin(ctx, id)
	require.NoError(t, err)
	_, err = f.sessions.ConfirmTopic(ctx, id)
	assert.ErrorIs(t, err, model.ErrNoRatingSelected)
	_, err = f.sessions.SelectRating(ctx, id, 3, model.RatingOK)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	_, err = f.sessions.SelectRating(ctx, id, 0, model.Rating(7))
	assert.ErrorIs(t, err, model.ErrInvalidRating)

	view, err := f.sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, view.CurrentTopic)
	assert.Nil(t, view.Candidate)
}

func TestSessionServiceRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, _ := f.checks.Create(ctx)
	start, _ := f.sessions.Start(ctx, created.ID)
	id := start.Session.SessionID

	_, err := f.sessions.Begin(ctx, id)
	require.NoError(t, err)
	f.walk(t, id, scenario[:5])

	view, err := f.sessions.Restart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(session.PhaseInProgress), view.Phase)
	assert.Zero(t, view.CurrentTopic)
	assert.Empty(t, view.Collected)
}

func TestSessionServiceSubmitFailureKeepsRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, _ := f.checks.Create(ctx)
	start, _ := f.sessions.Start(ctx, created.ID)
	id := start.Session.SessionID
	_, err := f.sessions.Begin(ctx, id)
	require.NoError(t, err)
	f.walk(t, id, scenario)

	f.backend.FailNext("createHealthCheckResponse", 1)
	_, err = f.sessions.Submit(ctx, id)
	require.ErrorIs(t, err, model.ErrSubmissionFailed)

	view, err := f.sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, view.Reviewable)
	assert.False(t, view.Submitting)
	assert.Equal(t, scenario, view.Collected)
	assert.Empty(t, f.bc.all())
	assert.False(t, f.redis.Exists("session:"+id+":submitting"), "gate released after failure")

	view, err = f.sessions.Submit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(session.PhaseComplete), view.Phase)
	assert.Len(t, f.backend.Responses(created.ID), 1)
}

func TestSessionServiceConcurrentSubmitIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, _ := f.checks.Create(ctx)
	start, _ := f.sessions.Start(ctx, created.ID)
	id := start.Session.SessionID
	_, err := f.sessions.Begin(ctx, id)
	require.NoError(t, err)
	f.walk(t, id, scenario)

	release := f.backend.Hold()
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := f.sessions.Submit(ctx, id)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return f.backend.Calls("createHealthCheckResponse") == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, err = f.sessions.Submit(ctx, id)
	assert.ErrorIs(t, err, model.ErrSubmissionInFlight)

	release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.backend.Calls("createHealthCheckResponse"))
	assert.Len(t, f.backend.Responses(created.ID), 1)
}

func TestSessionServiceUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	_, err = f.sessions.Submit(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestSessionServiceRefusesEventsWhileSubmitting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, _ := f.checks.Create(ctx)
	start, _ := f.sessions.Start(ctx, created.ID)
	id := start.Session.SessionID
	_, err := f.sessions.Begin(ctx, id)
	require.NoError(t, err)
	f.walk(t, id, scenario)

	release := f.backend.Hold()
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := f.sessions.Submit(ctx, id)
		done <- err
	}()
	require.Eventually(t, func() bool {
		return f.backend.Calls("createHealthCheckResponse") == 1
	}, 2*time.Second, 5*time.Millisecond)

	view, err := f.sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, view.Submitting)
	assert.True(t, view.Reviewable)

	_, err = f.sessions.Restart(ctx, id)
	assert.ErrorIs(t, err, model.ErrSubmissionInFlight)
	_, err = f.sessions.SelectRating(ctx, id, 0, model.RatingAwesome)
	assert.ErrorIs(t, err, model.ErrSubmissionInFlight)
	_, err = f.sessions.ConfirmTopic(ctx, id)
	assert.ErrorIs(t, err, model.ErrSubmissionInFlight)

	release()
	require.NoError(t, <-done)

	view, err = f.sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(session.PhaseComplete), view.Phase)
	assert.False(t, view.Submitting)
	assert.Equal(t, []int{2, 1, 0, 2, 1, 0, 2, 1, 0, 2, 1}, f.backend.Responses(created.ID)[0])

	_, err = f.sessions.Restart(ctx, id)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestSessionServiceUnsavedCompletionCannotBeResubmitted(t *testing.T) {
	failing := &failingCompleteCache{}
	f := newFixtureWithCache(t, func(c cache.SessionCache) cache.SessionCache {
		failing.SessionCache = c
		return failing
	})
	ctx := context.Background()
	created, _ := f.checks.Create(ctx)
	start, _ := f.sessions.Start(ctx, created.ID)
	id := start.Session.SessionID
	_, err := f.sessions.Begin(ctx, id)
	require.NoError(t, err)
	f.walk(t, id, scenario)

	_, err = f.sessions.Submit(ctx, id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrSubmissionFailed)
	assert.Equal(t, completedSaveAttempts, failing.fails)
	assert.Len(t, f.backend.Responses(created.ID), 1)

	_, err = f.sessions.Get(ctx, id)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	_, err = f.sessions.Submit(ctx, id)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	assert.Equal(t, 1, f.backend.Calls("createHealthCheckResponse"))
	assert.Len(t, f.backend.Responses(created.ID), 1)
}

func TestSessionServiceSkipsResultsReloadWithoutViewers(t *testing.T) {
	f := newFixture(t)
	f.sessions.SetBroadcaster(nil)
	ctx := context.Background()
	created, _ := f.checks.Create(ctx)
	start, _ := f.sessions.Start(ctx, created.ID)
	id := start.Session.SessionID
	_, err := f.sessions.Begin(ctx, id)
	require.NoError(t, err)
	f.walk(t, id, scenario)

	reads := f.backend.Calls("HealthCheck")
	_, err = f.sessions.Submit(ctx, id)
	require.NoError(t, err)
	assert.Never(t, func() bool { return f.backend.Calls("HealthCheck") != reads }, 50*time.Millisecond, 5*time.Millisecond)
}
