package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmitGate marks a session as having a create-response call outstanding,
// so a second submit from another request or replica is refused.
type SubmitGate interface {
	// Acquire returns false when the gate is already held
	Acquire(ctx context.Context, sessionID string) (bool, error)
	Release(ctx context.Context, sessionID string) error
	// Held reports whether a submit is outstanding for the session
	Held(ctx context.Context, sessionID string) (bool, error)
}

type submitGate struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmitGate creates a gate whose hold expires after ttl, which should
// exceed the backend timeout
func NewSubmitGate(client *redis.Client, ttl time.Duration) SubmitGate {
	return &submitGate{client: client, ttl: ttl}
}

func (g *submitGate) key(sessionID string) string {
	return fmt.Sprintf("session:%s:submitting", sessionID)
}

func (g *submitGate) Acquire(ctx context.Context, sessionID string) (bool, error) {
	return g.client.SetNX(ctx, g.key(sessionID), time.Now().Unix(), g.ttl).Result()
}

func (g *submitGate) Release(ctx context.Context, sessionID string) error {
	return g.client.Del(ctx, g.key(sessionID)).Err()
}

func (g *submitGate) Held(ctx context.Context, sessionID string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
