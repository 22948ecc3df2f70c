package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"teamhealth/internal/model"
)

// Operation documents sent to the health check backend. The operation and
// field names are the backend's wire contract.
const (
	HealthCheckQuery = `query HealthCheck($id: ID!) { HealthCheck(id: $id) { id responses { id ratings } } }`

	CreateHealthCheckMutation = `mutation createHealthCheck($responses: [HealthCheckresponsesHealthCheckResponse!]) { createHealthCheck(responses: $responses) { id } }`

	CreateHealthCheckResponseMutation = `mutation createHealthCheckResponse($ratings: [Int!]!, $healthCheckId: ID!) { createHealthCheckResponse(ratings: $ratings, healthCheckId: $healthCheckId) { id } }`
)

// Backend is the external store of health checks and their responses
type Backend interface {
	CreateHealthCheck(ctx context.Context) (string, error)
	CreateHealthCheckResponse(ctx context.Context, healthCheckID string, ratings model.ResponseVector) (string, error)
	// GetHealthCheck returns model.ErrNotFound when the ID does not resolve
	GetHealthCheck(ctx context.Context, id string) (*model.HealthCheck, error)
}

// HealthCheckClient talks to the GraphQL backend over HTTP
type HealthCheckClient struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewHealthCheckClient creates a client. maxRetries applies to queries only;
// mutations are sent once.
func NewHealthCheckClient(endpoint string, timeout time.Duration, maxRetries int) *HealthCheckClient {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &HealthCheckClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// WithBackoff sets the base delay between read retries
func (c *HealthCheckClient) WithBackoff(d time.Duration) *HealthCheckClient {
	c.backoff = d
	return c
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// errRetryable marks failures a query may be retried on
var errRetryable = errors.New("retryable")

// doRequest posts one operation. Transport errors, 429 and 5xx responses are
// retried with exponential backoff when retry is set.
func (c *HealthCheckClient) doRequest(ctx context.Context, op string, req graphQLRequest, retry bool) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", op, err)
	}

	attempts := 1
	if retry {
		attempts = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			log.Printf("[Backend] retry %d/%d for %s in %v", attempt, attempts-1, op, wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		data, err := c.post(ctx, op, body)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !errors.Is(err, errRetryable) {
			return nil, err
		}
	}

	if attempts > 1 {
		log.Printf("[Backend] %s failed after %d attempts: %v", op, attempts, lastErr)
	}
	return nil, lastErr
}

func (c *HealthCheckClient) post(ctx context.Context, op string, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Backend] %s: %v", op, err)
		return nil, fmt.Errorf("%s: %w: %v", op, errRetryable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: read body: %v", op, errRetryable, err)
	}
	log.Printf("[Backend] %s -> %d (%d bytes) in %v", op, resp.StatusCode, len(respBody), time.Since(start))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%s: %w: status %d", op, errRetryable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: backend returned %d: %s", op, resp.StatusCode, truncate(string(respBody), 200))
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, len(gqlResp.Errors))
		for i, e := range gqlResp.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("%s: %s", op, strings.Join(msgs, "; "))
	}
	return gqlResp.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type idPayload struct {
	ID string `json:"id"`
}

// CreateHealthCheck creates an empty health check and returns its ID
func (c *HealthCheckClient) CreateHealthCheck(ctx context.Context) (string, error) {
	data, err := c.doRequest(ctx, "createHealthCheck", graphQLRequest{
		Query:     CreateHealthCheckMutation,
		Variables: map[string]interface{}{"responses": []interface{}{}},
	}, false)
	if err != nil {
		return "", err
	}

	var out struct {
		CreateHealthCheck *idPayload `json:"createHealthCheck"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("createHealthCheck: decode data: %w", err)
	}
	if out.CreateHealthCheck == nil || out.CreateHealthCheck.ID == "" {
		return "", errors.New("createHealthCheck: backend returned no id")
	}
	return out.CreateHealthCheck.ID, nil
}

// CreateHealthCheckResponse appends one response vector to a health check
func (c *HealthCheckClient) CreateHealthCheckResponse(ctx context.Context, healthCheckID string, ratings model.ResponseVector) (string, error) {
	ints := make([]int, len(ratings))
	for i, r := range ratings {
		ints[i] = int(r)
	}

	data, err := c.doRequest(ctx, "createHealthCheckResponse", graphQLRequest{
		Query: CreateHealthCheckResponseMutation,
		Variables: map[string]interface{}{
			"ratings":       ints,
			"healthCheckId": healthCheckID,
		},
	}, false)
	if err != nil {
		return "", err
	}

	var out struct {
		CreateHealthCheckResponse *idPayload `json:"createHealthCheckResponse"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("createHealthCheckResponse: decode data: %w", err)
	}
	if out.CreateHealthCheckResponse == nil || out.CreateHealthCheckResponse.ID == "" {
		return "", errors.New("createHealthCheckResponse: backend returned no id")
	}
	return out.CreateHealthCheckResponse.ID, nil
}

// GetHealthCheck reads a health check with all of its responses
func (c *HealthCheckClient) GetHealthCheck(ctx context.Context, id string) (*model.HealthCheck, error) {
	data, err := c.doRequest(ctx, "HealthCheck", graphQLRequest{
		Query:     HealthCheckQuery,
		Variables: map[string]interface{}{"id": id},
	}, true)
	if err != nil {
		return nil, err
	}

	var out struct {
		HealthCheck *model.HealthCheck `json:"HealthCheck"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("HealthCheck: decode data: %w", err)
	}
	if out.HealthCheck == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return out.HealthCheck, nil
}
