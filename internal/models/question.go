package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is an in-session prompt shown to students while its shown flag is set.
type Question struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Number    int       `json:"number"`
	Text      string    `json:"text"`
	Shown     bool      `json:"shown"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer is one student's free-text response to a question. One per student:
// re-submitting replaces the previous answer.
type Answer struct {
	QuestionID  uuid.UUID `json:"question_id"`
	UserID      uuid.UUID `json:"user_id"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}
