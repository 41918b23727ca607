package models

import (
	"time"

	"github.com/google/uuid"
)

// Classroom represents a named course room owned by one teacher.
type Classroom struct {
	ID         uuid.UUID `json:"id"`
	CourseID   string    `json:"course_id"`
	CourseName string    `json:"course_name"`
	RoomName   string    `json:"room_name"`
	ImageKey   string    `json:"image_key,omitempty"` // S3 object key for the cover image
	OwnerID    uuid.UUID `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ClassroomStudent is one enrolled student in a classroom.
type ClassroomStudent struct {
	ClassroomID uuid.UUID `json:"classroom_id"`
	UserID      uuid.UUID `json:"user_id"`
	StudentNo   string    `json:"student_no"`
	FullName    string    `json:"full_name"`
	JoinedAt    time.Time `json:"joined_at"`
}
