package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckinSession is one attendance window for a classroom meeting,
// identified by a short code handed out on screen or as a QR image.
type CheckinSession struct {
	ID               uuid.UUID  `json:"id"`
	ClassroomID      uuid.UUID  `json:"classroom_id"`
	Code             string     `json:"code"`
	IsOpen           bool       `json:"is_open"`
	PeakParticipants int        `json:"peak_participants"`
	CreatedAt        time.Time  `json:"created_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
}

// SessionSummary is a session row with its attendee count, for history listings.
type SessionSummary struct {
	CheckinSession
	AttendeeCount int `json:"attendee_count"`
}
