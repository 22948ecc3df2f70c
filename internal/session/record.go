package session

import "time"

// Record is a stored session: its identity, the health check it answers
// and the state machine value
type Record struct {
	ID            string    `json:"id"`
	HealthCheckID string    `json:"healthCheckId"`
	State         State     `json:"state"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
