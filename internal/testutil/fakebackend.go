// Package testutil provides an in-memory stand-in for the health check
// GraphQL backend.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeBackend serves HealthCheck, createHealthCheck and
// createHealthCheckResponse from memory
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	checks   map[string][][]int
	respIDs  map[string][]string
	nextID   int
	queries  []string
	failures map[string]int
	status   map[string]int
	hold     chan struct{}
}

// NewFakeBackend starts a fake backend that is closed with the test
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		checks:   make(map[string][][]int),
		respIDs:  make(map[string][]string),
		failures: make(map[string]int),
		status:   make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the GraphQL endpoint
func (f *FakeBackend) URL() string { return f.Server.URL + "/graphql" }

// Seed stores a health check with the given raw rating vectors
func (f *FakeBackend) Seed(id string, vectors ...[]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks[id] = append(f.checks[id], vectors...)
	for range vectors {
		f.nextID++
		f.respIDs[id] = append(f.respIDs[id], fmt.Sprintf("resp-%d", f.nextID))
	}
}

// FailNext makes the next n calls of op answer with a GraphQL error
func (f *FakeBackend) FailNext(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = n
}

// StatusNext makes the next calls of op answer with an HTTP status code
// until Reset is called
func (f *FakeBackend) StatusNext(op string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[op] = code
}

// Hold blocks createHealthCheckResponse until the returned func is called
func (f *FakeBackend) Hold() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.hold = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.hold = nil
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Reset clears injected failures
func (f *FakeBackend) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]int)
	f.status = make(map[string]int)
}

// Responses returns the stored vectors of a health check
func (f *FakeBackend) Responses(id string) [][]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]int, len(f.checks[id]))
	copy(out, f.checks[id])
	return out
}

// Queries returns every operation document received, in order
func (f *FakeBackend) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Calls counts received documents for op
func (f *FakeBackend) Calls(op string) int {
	n := 0
	for _, q := range f.Queries() {
		if operationOf(q) == op {
			n++
		}
	}
	return n
}

func operationOf(query string) string {
	switch {
	case strings.Contains(query, "createHealthCheckResponse("):
		return "createHealthCheckResponse"
	case strings.Contains(query, "createHealthCheck("):
		return "createHealthCheck"
	case strings.Contains(query, "HealthCheck(id:"):
		return "HealthCheck"
	}
	return ""
}

type request struct {
	Query     string          `json:"query"`
	Variables json.RawMessage `json:"variables"`
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	op := operationOf(req.Query)

	f.mu.Lock()
	f.queries = append(f.queries, req.Query)
	if code := f.status[op]; code != 0 {
		f.mu.Unlock()
		http.Error(w, http.StatusText(code), code)
		return
	}
	if f.failures[op] > 0 {
		f.failures[op]--
		f.mu.Unlock()
		writeJSON(w, map[string]interface{}{"data": nil, "errors": []map[string]string{{"message": "injected failure"}}})
		return
	}
	hold := f.hold
	f.mu.Unlock()

	switch op {
	case "HealthCheck":
		var vars struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(req.Variables, &vars)
		writeJSON(w, map[string]interface{}{"data": map[string]interface{}{"HealthCheck": f.lookup(vars.ID)}})

	case "createHealthCheck":
		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("hc-%d", f.nextID)
		f.checks[id] = [][]int{}
		f.mu.Unlock()
		writeJSON(w, map[string]interface{}{"data": map[string]interface{}{"createHealthCheck": map[string]string{"id": id}}})

	case "createHealthCheckResponse":
		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		var vars struct {
			Ratings       []int  `json:"ratings"`
			HealthCheckID string `json:"healthCheckId"`
		}
		_ = json.Unmarshal(req.Variables, &vars)
		f.mu.Lock()
		if _, ok := f.checks[vars.HealthCheckID]; !ok {
			f.mu.Unlock()
			writeJSON(w, map[string]interface{}{"data": nil, "errors": []map[string]string{{"message": "HealthCheck not found"}}})
			return
		}
		f.nextID++
		id := fmt.Sprintf("resp-%d", f.nextID)
		f.checks[vars.HealthCheckID] = append(f.checks[vars.HealthCheckID], vars.Ratings)
		f.respIDs[vars.HealthCheckID] = append(f.respIDs[vars.HealthCheckID], id)
		f.mu.Unlock()
		writeJSON(w, map[string]interface{}{"data": map[string]interface{}{"createHealthCheckResponse": map[string]string{"id": id}}})

	default:
		writeJSON(w, map[string]interface{}{"errors": []map[string]string{{"message": "unknown operation"}}})
	}
}

func (f *FakeBackend) lookup(id string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	vectors, ok := f.checks[id]
	if !ok {
		return nil
	}
	responses := make([]map[string]interface{}, len(vectors))
	for i, v := range vectors {
		responses[i] = map[string]interface{}{"id": f.respIDs[id][i], "ratings": v}
	}
	return map[string]interface{}{"id": id, "responses": responses}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
