package models

import (
	"time"

	"github.com/google/uuid"
)

// Attendance status codes, matching the numeric status field students and
// teachers see in the roster table.
const (
	StatusAbsent  = 0
	StatusPresent = 1
	StatusLate    = 2
)

// RosterEntry is one student's recorded attendance within a check-in session.
// Keyed by (session, user): re-submitting overwrites instead of duplicating.
type RosterEntry struct {
	SessionID  uuid.UUID `json:"session_id"`
	UserID     uuid.UUID `json:"user_id"`
	StudentNo  string    `json:"student_no"`
	FullName   string    `json:"full_name"`
	Note       string    `json:"note,omitempty"`
	Score      *float64  `json:"score,omitempty"`
	Status     int       `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RosterEdit is one teacher edit to an entry's free fields.
type RosterEdit struct {
	UserID uuid.UUID `json:"user_id"`
	Note   *string   `json:"note,omitempty"`
	Score  *float64  `json:"score,omitempty"`
	Status *int      `json:"status,omitempty"`
}
