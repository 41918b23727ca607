package checkin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

// Check-in error taxonomy surfaced to clients.
var (
	// ErrSessionNotFound means no check-in session exists for the classroom.
	ErrSessionNotFound = errors.New("no check-in session found")
	// ErrSessionClosed means the session exists but its open flag is false.
	ErrSessionClosed = errors.New("check-in is closed")
	// ErrCodeMismatch means the submitted code does not match the stored one.
	ErrCodeMismatch = errors.New("incorrect check-in code")
)

// Store is the narrow persistence interface the check-in workflow needs.
// The pgx Repository implements it; tests use an in-memory fake.
type Store interface {
	CreateSession(ctx context.Context, classroomID uuid.UUID, code string) (*models.CheckinSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.CheckinSession, error)
	// LatestSession returns the most recently created session for a
	// classroom, or nil when none exists.
	LatestSession(ctx context.Context, classroomID uuid.UUID) (*models.CheckinSession, error)
	OpenSession(ctx context.Context, id uuid.UUID, code string) error
	CloseSession(ctx context.Context, id uuid.UUID) (time.Time, error)
	UpsertRosterEntry(ctx context.Context, e *models.RosterEntry) error
}

// Service implements the check-in workflow: session creation, code
// verification, and attendance recording.
type Service struct {
	store      Store
	codeLength int
	now        func() time.Time
}

// NewService creates a check-in service.
func NewService(store Store, codeLength int) *Service {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	return &Service{store: store, codeLength: codeLength, now: time.Now}
}

// CreateSession opens a new check-in session for a classroom with a freshly
// generated code.
func (s *Service) CreateSession(ctx context.Context, classroomID uuid.UUID) (*models.CheckinSession, error) {
	code, err := GenerateCode(s.codeLength)
	if err != nil {
		return nil, err
	}
	return s.store.CreateSession(ctx, classroomID, code)
}

// Reopen reopens a session with a regenerated code and returns the updated
// session. Matches the teacher action of re-opening check-in on an existing
// meeting.
func (s *Service) Reopen(ctx context.Context, sessionID uuid.UUID) (*models.CheckinSession, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, ErrSessionNotFound
	}
	code, err := GenerateCode(s.codeLength)
	if err != nil {
		return nil, err
	}
	if err := s.store.OpenSession(ctx, sessionID, code); err != nil {
		return nil, err
	}
	return s.store.GetSession(ctx, sessionID)
}

// Close closes a session and returns the close time.
func (s *Service) Close(ctx context.Context, sessionID uuid.UUID) (time.Time, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return time.Time{}, ErrSessionNotFound
	}
	return s.store.CloseSession(ctx, sessionID)
}

// VerifyCode checks a candidate code against the classroom's latest session.
// Errors in order of precedence: ErrSessionNotFound when no session exists,
// ErrSessionClosed when the session is closed (regardless of match), and
// ErrCodeMismatch when the case-normalized candidate differs from the stored
// code. On success the matched session is returned.
func (s *Service) VerifyCode(ctx context.Context, classroomID uuid.UUID, candidate string) (*models.CheckinSession, error) {
	session, err := s.store.LatestSession(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !session.IsOpen {
		return nil, ErrSessionClosed
	}
	if !strings.EqualFold(strings.TrimSpace(candidate), session.Code) {
		return nil, ErrCodeMismatch
	}
	return session, nil
}

// RecordAttendance writes (or overwrites) the student's roster entry for the
// session with the current timestamp. The open flag and code are NOT
// re-checked here: verification happens on the read path only, so a student
// who verified before the session closed can still land an entry afterwards.
// The reconciliation worker marks such entries late after the fact.
func (s *Service) RecordAttendance(ctx context.Context, sessionID, userID uuid.UUID, studentNo, fullName, note string) (*models.RosterEntry, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, ErrSessionNotFound
	}
	entry := &models.RosterEntry{
		SessionID:  sessionID,
		UserID:     userID,
		StudentNo:  studentNo,
		FullName:   fullName,
		Note:       note,
		Status:     models.StatusPresent,
		RecordedAt: s.now(),
	}
	if err := s.store.UpsertRosterEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
