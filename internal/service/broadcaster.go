package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastResults(healthCheckID string, msgType string, payload interface{})
	// Viewers reports how many clients watch a health check's results
	Viewers(healthCheckID string) int
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastResults(string, string, interface{}) {}
func (noopBroadcaster) Viewers(string) int                       { return 0 }
