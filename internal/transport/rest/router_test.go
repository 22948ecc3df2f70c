package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhealth/internal/cache"
	"teamhealth/internal/model"
	"teamhealth/internal/results"
	"teamhealth/internal/service"
	"teamhealth/internal/testutil"
	"teamhealth/internal/transport/ws"
)

type testApp struct {
	server  *httptest.Server
	backend *testutil.FakeBackend
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	fb := testutil.NewFakeBackend(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	client := service.NewHealthCheckClient(fb.URL(), 5*time.Second, 2).WithBackoff(time.Millisecond)
	checks := service.NewHealthCheckService(client, "http://teamhealth.test")
	auth := service.NewAuthService("test-secret", time.Hour)
	sessions := service.NewSessionService(checks, client, cache.NewSessionCache(rdb, time.Hour), cache.NewSubmitGate(rdb, time.Minute), auth)
	hub := ws.NewHub()
	t.Cleanup(hub.Close)
	sessions.SetBroadcaster(hub)

	srv := httptest.NewServer(NewRouter(&Container{
		AuthService:        auth,
		HealthCheckService: checks,
		SessionService:     sessions,
		WSHub:              hub,
		AllowedOrigins:     []string{"*"},
	}))
	t.Cleanup(srv.Close)
	return &testApp{server: srv, backend: fb}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.server.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthAndDocs(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, "GET", "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]interface{}
	decode(t, resp, &doc)
	assert.Contains(t, doc["paths"], "/session/submit")
}

func TestTopicsEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, "GET", "/v1/topics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Topics  []model.Topic `json:"topics"`
		Ratings []struct {
			Value int    `json:"value"`
			Label string `json:"label"`
		} `json:"ratings"`
	}
	decode(t, resp, &body)
	require.Len(t, body.Topics, 11)
	assert.Equal(t, "Teamwork", body.Topics[10].Title)
	require.Len(t, body.Ratings, 3)
	assert.Equal(t, "Sucky", body.Ratings[0].Label)
	assert.Equal(t, "Awesome", body.Ratings[2].Label)
}

func TestJSONSessionFlow(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, "POST", "/v1/checks", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.CreateHealthCheckResponse
	decode(t, resp, &created)
	assert.Equal(t, "http://teamhealth.test/check/"+created.ID, created.ShareURL)

	resp = app.do(t, "POST", "/v1/checks/"+created.ID+"/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var start model.SessionStartResponse
	decode(t, resp, &start)
	token := start.Token
	assert.Equal(t, "ready", start.Session.Phase)

	resp = app.do(t, "POST", "/v1/session/begin", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, "POST", "/v1/session/confirm", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	ratings := []int{2, 1, 0, 2, 1, 0, 2, 1, 0, 2, 1}
	for i, r := range ratings {
		resp = app.do(t, "POST", "/v1/session/select", token, map[string]int{"topic": i, "rating": r})
		require.Equal(t, http.StatusOK, resp.StatusCode, "select %d", i)
		resp = app.do(t, "POST", "/v1/session/confirm", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "confirm %d", i)
	}

	var view model.SessionView
	resp = app.do(t, "GET", "/v1/session", token, nil)
	decode(t, resp, &view)
	assert.True(t, view.Reviewable)
	assert.Equal(t, 11, view.CurrentTopic)

	resp = app.do(t, "POST", "/v1/session/confirm", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(t, "POST", "/v1/session/submit", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &view)
	assert.Equal(t, "complete", view.Phase)
	assert.NotEmpty(t, view.ResponseID)

	resp = app.do(t, "POST", "/v1/session/restart", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.do(t, "GET", "/v1/checks/"+created.ID+"/results", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary results.Summary
	decode(t, resp, &summary)
	assert.Equal(t, 1, summary.TotalResponses)
	assert.Equal(t, "Easy to release", summary.Topics[1].Title)
	assert.Equal(t, [3]int{0, 1, 0}, summary.Topics[1].Counts)
	assert.Equal(t, results.BucketMid, summary.Topics[1].Bucket)

	resp = app.do(t, "GET", "/v1/checks/"+created.ID, "", nil)
	var info model.HealthCheckInfo
	decode(t, resp, &info)
	assert.Equal(t, 1, info.ResponseCount)
}

func TestSubmitFailureReturnsBadGateway(t *testing.T) {
	app := newTestApp(t)
	app.backend.Seed("hc-1")

	resp := app.do(t, "POST", "/v1/checks/hc-1/sessions", "", nil)
	var start model.SessionStartResponse
	decode(t, resp, &start)
	app.do(t, "POST", "/v1/session/begin", start.Token, nil)
	for i := 0; i < 11; i++ {
		app.do(t, "POST", "/v1/session/select", start.Token, map[string]int{"topic": i, "rating": 1})
		app.do(t, "POST", "/v1/session/confirm", start.Token, nil)
	}

	app.backend.FailNext("createHealthCheckResponse", 1)
	resp = app.do(t, "POST", "/v1/session/submit", start.Token, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var view model.SessionView
	decode(t, app.do(t, "GET", "/v1/session", start.Token, nil), &view)
	assert.True(t, view.Reviewable)

	resp = app.do(t, "POST", "/v1/session/submit", start.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIErrors(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"unknown check", "GET", "/v1/checks/missing", "", http.StatusNotFound},
		{"unknown check results", "GET", "/v1/checks/missing/results", "", http.StatusNotFound},
		{"session for unknown check", "POST", "/v1/checks/missing/sessions", "", http.StatusNotFound},
		{"no token", "GET", "/v1/session", "", http.StatusUnauthorized},
		{"bad token", "POST", "/v1/session/begin", "garbage", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, "OPTIONS", "/v1/session/submit", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

// browser follows the page flow with a cookie jar, the way a participant does
type browser struct {
	t      *testing.T
	client *http.Client
	base   string
}

func newBrowser(t *testing.T, app *testApp) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, client: &http.Client{Jar: jar}, base: app.server.URL}
}

func (b *browser) get(path string) (int, string) {
	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (b *browser) post(path string, form url.Values) (int, string) {
	resp, err := b.client.PostForm(b.base+path, form)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestPageFlow(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)

	status, body := b.get("/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Create New Health Check")

	status, body = b.post("/", nil)
	require.Equal(t, http.StatusCreated, status)
	require.Contains(t, body, "http://teamhealth.test/check/")
	start := strings.Index(body, "/check/") + len("/check/")
	id := body[start : start+strings.IndexAny(body[start:], `"<`)]
	require.NotEmpty(t, id)

	status, body = b.get("/check/" + id)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Begin Health Check")

	status, body = b.post("/check/"+id+"/begin", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Delivering Value")
	assert.Contains(t, body, "topic orange")

	status, body = b.post("/check/"+id+"/rate", url.Values{"topic": {"0"}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "Please choose a rating.")

	ratings := []string{"2", "1", "0", "2", "1", "0", "2", "1", "0", "2", "1"}
	for i, r := range ratings {
		status, body = b.post("/check/"+id+"/rate", url.Values{"topic": {strconv.Itoa(i)}, "rating": {r}})
		require.Equal(t, http.StatusOK, status, body)
	}
	assert.Contains(t, body, "Review your responses")
	assert.Contains(t, body, "Easy to release")
	assert.Contains(t, body, "Start over")

	status, body = b.post("/check/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Thanks for completing the health check!!")
	assert.Contains(t, body, "View results")

	status, body = b.get("/results/" + id)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Health Check Results")
	assert.Contains(t, body, "1 response so far")

	status, body = b.post("/check/"+id+"/again", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Delivering Value")
	assert.Len(t, app.backend.Responses(id), 1)
}

func TestPageRestart(t *testing.T) {
	app := newTestApp(t)
	app.backend.Seed("hc-9")
	b := newBrowser(t, app)

	b.post("/check/hc-9/begin", nil)
	b.post("/check/hc-9/rate", url.Values{"topic": {"0"}, "rating": {"2"}})
	_, body := b.get("/check/hc-9")
	assert.Contains(t, body, "Easy to release")

	status, body := b.post("/check/hc-9/restart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Delivering Value")
	assert.Contains(t, body, "Topic 1 of 11")
}

func TestPagesNotFound(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)

	status, body := b.get("/check/nope")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Could not load HealthCheck with id: nope")

	status, body = b.get("/results/nope")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Could not load HealthCheck with id: nope")
}

func TestResultsPageEmpty(t *testing.T) {
	app := newTestApp(t)
	app.backend.Seed("hc-empty")
	b := newBrowser(t, app)

	status, body := b.get("/results/hc-empty")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "0 responses so far")
	assert.Equal(t, 11, strings.Count(body, "No responses yet"))
}
