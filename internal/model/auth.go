package model

import "github.com/golang-jwt/jwt/v5"

// ParticipantClaims are JWT claims binding an anonymous participant to one session
type ParticipantClaims struct {
	HealthCheckID string `json:"healthCheckId"`
	SessionID     string `json:"sessionId"`
	jwt.RegisteredClaims
}
