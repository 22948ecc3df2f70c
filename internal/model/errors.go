package model

import "errors"

var (
	// ErrInvalidTransition is returned when a session operation is invoked from the wrong state
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNoRatingSelected is returned when a topic is confirmed without a candidate rating
	ErrNoRatingSelected = errors.New("no rating selected")
	ErrInvalidRating    = errors.New("rating must be 0, 1 or 2")

	// ErrSubmissionFailed wraps backend or network failures on create calls; the caller may retry
	ErrSubmissionFailed   = errors.New("submission failed")
	ErrSubmissionInFlight = errors.New("submission already in progress")

	// ErrNotFound is returned when a health check ID does not resolve
	ErrNotFound = errors.New("health check not found")

	// ErrMalformedResponseVector marks stored responses whose length or values do not match the survey
	ErrMalformedResponseVector = errors.New("malformed response vector")

	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = errors.New("invalid or expired token")
)
