package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"teamhealth/internal/model"
)

// AuthService issues and checks participant session tokens. Participants are
// anonymous; a token only binds a browser to one session of one health check.
type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: []byte(secret),
		ttl:       ttl,
	}
}

// TTL is how long an issued token stays valid
func (s *AuthService) TTL() time.Duration { return s.ttl }

// GenerateParticipantToken creates a token scoped to one session
func (s *AuthService) GenerateParticipantToken(healthCheckID, sessionID string) (string, error) {
	now := time.Now()
	claims := &model.ParticipantClaims{
		HealthCheckID: healthCheckID,
		SessionID:     sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateParticipantToken validates a participant JWT and returns claims
func (s *AuthService) ValidateParticipantToken(tokenString string) (*model.ParticipantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.ParticipantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, model.ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.ParticipantClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, model.ErrInvalidToken
	}

	return claims, nil
}
