package models

import "time"

// IdleAnnotation is the user-supplied context for one closed idle interval.
type IdleAnnotation struct {
	Reason          string    `json:"reason"`
	Note            string    `json:"note"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationSeconds int       `json:"durationSeconds"`
}

// IdleAnnotationRequest wraps an annotation with the identity fields the
// backend expects.
type IdleAnnotationRequest struct {
	IdleAnnotation
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}
