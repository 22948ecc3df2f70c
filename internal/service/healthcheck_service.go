package service

import (
	"context"
	"fmt"
	"strings"

	"teamhealth/internal/model"
	"teamhealth/internal/results"
	"teamhealth/internal/survey"
)

// HealthCheckService creates health checks and reads their results
type HealthCheckService struct {
	backend   Backend
	publicURL string
}

// NewHealthCheckService creates a new health check service. publicURL is
// the externally visible base used for share links.
func NewHealthCheckService(backend Backend, publicURL string) *HealthCheckService {
	return &HealthCheckService{
		backend:   backend,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// ShareURL is the link participants open to take the health check
func (s *HealthCheckService) ShareURL(id string) string {
	return s.publicURL + "/check/" + id
}

// ResultsURL is the link to the aggregated results
func (s *HealthCheckService) ResultsURL(id string) string {
	return s.publicURL + "/results/" + id
}

// Create asks the backend for a new, empty health check. Every call creates
// a distinct instance.
func (s *HealthCheckService) Create(ctx context.Context) (*model.CreateHealthCheckResponse, error) {
	id, err := s.backend.CreateHealthCheck(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSubmissionFailed, err)
	}
	return &model.CreateHealthCheckResponse{
		ID:       id,
		ShareURL: s.ShareURL(id),
	}, nil
}

// Get loads a health check; unknown IDs return model.ErrNotFound
func (s *HealthCheckService) Get(ctx context.Context, id string) (*model.HealthCheck, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.ErrNotFound
	}
	return s.backend.GetHealthCheck(ctx, id)
}

// Info returns the public summary of a health check
func (s *HealthCheckService) Info(ctx context.Context, id string) (*model.HealthCheckInfo, error) {
	hc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.HealthCheckInfo{
		ID:            hc.ID,
		ResponseCount: len(hc.Responses),
	}, nil
}

// Results aggregates every stored response of a health check
func (s *HealthCheckService) Results(ctx context.Context, id string) (*results.Summary, error) {
	hc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := results.Summarize(hc.ID, survey.Topics(), hc.Vectors())
	return &summary, nil
}
