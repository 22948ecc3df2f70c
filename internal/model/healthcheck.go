package model

// Rating is a participant's sentiment on one topic
type Rating int

const (
	RatingSucky   Rating = 0
	RatingOK      Rating = 1
	RatingAwesome Rating = 2
)

// RatingLevels is the number of points on the rating scale
const RatingLevels = 3

// Valid reports whether r is on the rating scale
func (r Rating) Valid() bool {
	return r >= RatingSucky && r <= RatingAwesome
}

// Topic is one dimension of team health being rated
type Topic struct {
	Title               string `json:"title"`
	PositiveDescription string `json:"positiveDescription,omitempty"`
	NegativeDescription string `json:"negativeDescription,omitempty"`
}

// ResponseVector holds one rating per topic, indexed by topic position
type ResponseVector []Rating

// Clone returns a copy that shares no storage with v
func (v ResponseVector) Clone() ResponseVector {
	if v == nil {
		return nil
	}
	out := make(ResponseVector, len(v))
	copy(out, v)
	return out
}

// HealthCheckResponse is one stored response as returned by the backend
type HealthCheckResponse struct {
	ID      string         `json:"id"`
	Ratings ResponseVector `json:"ratings"`
}

// HealthCheck is a survey instance owned by the backend
type HealthCheck struct {
	ID        string                `json:"id"`
	Responses []HealthCheckResponse `json:"responses"`
}

// Vectors returns the rating vectors of all stored responses in arrival order
func (h *HealthCheck) Vectors() []ResponseVector {
	out := make([]ResponseVector, 0, len(h.Responses))
	for _, r := range h.Responses {
		out = append(out, r.Ratings)
	}
	return out
}

// CreateHealthCheckResponse is returned after a new health check is created
type CreateHealthCheckResponse struct {
	ID       string `json:"id"`
	ShareURL string `json:"shareUrl"`
}

// HealthCheckInfo is the public summary of a health check
type HealthCheckInfo struct {
	ID            string `json:"id"`
	ResponseCount int    `json:"responseCount"`
}

// MsgResultsUpdate is the message type pushed to results viewers after a
// response is submitted
const MsgResultsUpdate = "results_update"
