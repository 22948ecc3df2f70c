package model

// ReviewRow is one line of the review list shown before final submit
type ReviewRow struct {
	Title  string `json:"title"`
	Rating Rating `json:"rating"`
	Label  string `json:"label"`
}

// SessionView is the read-only projection of a participant session handed to the UI
type SessionView struct {
	SessionID       string      `json:"sessionId"`
	HealthCheckID   string      `json:"healthCheckId"`
	Phase           string      `json:"phase"`
	TopicCount      int         `json:"topicCount"`
	CurrentTopic    int         `json:"currentTopic"`
	Topic           *Topic      `json:"topic,omitempty"`
	TopicColor      string      `json:"topicColor,omitempty"`
	Candidate       *Rating     `json:"candidate,omitempty"`
	Collected       []Rating    `json:"collected"`
	CollectedLabels []string    `json:"collectedLabels"`
	Review          []ReviewRow `json:"review,omitempty"`
	Reviewable      bool        `json:"reviewable"`
	Submitting      bool        `json:"submitting"`
	ResponseID      string      `json:"responseId,omitempty"`
}

// SessionStartResponse is returned when a participant opens a new session
type SessionStartResponse struct {
	Token   string       `json:"token"`
	Session *SessionView `json:"session"`
}

// SelectRatingRequest is the request body for choosing a candidate rating
type SelectRatingRequest struct {
	Topic  int    `json:"topic"`
	Rating Rating `json:"rating"`
}
