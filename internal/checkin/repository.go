package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/models"
)

// Repository handles check-in session persistence. Implements Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a check-in repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSession inserts a new open session.
func (r *Repository) CreateSession(ctx context.Context, classroomID uuid.UUID, code string) (*models.CheckinSession, error) {
	const q = `INSERT INTO checkin_sessions (id, classroom_id, code, is_open)
		VALUES (gen_random_uuid(), $1, $2, TRUE)
		RETURNING id, created_at`
	s := &models.CheckinSession{
		ClassroomID: classroomID,
		Code:        code,
		IsOpen:      true,
	}
	err := r.pool.QueryRow(ctx, q, classroomID, code).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession returns a session by ID.
func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.CheckinSession, error) {
	const q = `SELECT id, classroom_id, code, is_open, peak_participants, created_at, closed_at
		FROM checkin_sessions WHERE id = $1`
	var s models.CheckinSession
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&s.ID, &s.ClassroomID, &s.Code, &s.IsOpen, &s.PeakParticipants, &s.CreatedAt, &s.ClosedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LatestSession returns the most recently created session for a classroom,
// or nil when the classroom has no sessions yet.
func (r *Repository) LatestSession(ctx context.Context, classroomID uuid.UUID) (*models.CheckinSession, error) {
	const q = `SELECT id, classroom_id, code, is_open, peak_participants, created_at, closed_at
		FROM checkin_sessions WHERE classroom_id = $1 ORDER BY created_at DESC LIMIT 1`
	var s models.CheckinSession
	err := r.pool.QueryRow(ctx, q, classroomID).
		Scan(&s.ID, &s.ClassroomID, &s.Code, &s.IsOpen, &s.PeakParticipants, &s.CreatedAt, &s.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// OpenSession reopens a session with a new code.
func (r *Repository) OpenSession(ctx context.Context, id uuid.UUID, code string) error {
	const q = `UPDATE checkin_sessions SET code = $1, is_open = TRUE, closed_at = NULL WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, code, id)
	return err
}

// CloseSession closes a session and returns the close time.
func (r *Repository) CloseSession(ctx context.Context, id uuid.UUID) (time.Time, error) {
	const q = `UPDATE checkin_sessions SET is_open = FALSE, closed_at = NOW() WHERE id = $1
		RETURNING closed_at`
	var closedAt time.Time
	err := r.pool.QueryRow(ctx, q, id).Scan(&closedAt)
	return closedAt, err
}

// UpsertRosterEntry writes a student's attendance for a session. Keyed by
// (session, user): a re-submission overwrites the earlier row.
func (r *Repository) UpsertRosterEntry(ctx context.Context, e *models.RosterEntry) error {
	const q = `INSERT INTO roster_entries (session_id, user_id, student_no, full_name, note, score, status, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, user_id) DO UPDATE SET
			student_no = EXCLUDED.student_no,
			full_name = EXCLUDED.full_name,
			note = EXCLUDED.note,
			status = EXCLUDED.status,
			recorded_at = EXCLUDED.recorded_at`
	_, err := r.pool.Exec(ctx, q, e.SessionID, e.UserID, e.StudentNo, e.FullName, e.Note, e.Score, e.Status, e.RecordedAt)
	return err
}

// ListByClassroom returns the classroom's sessions newest first, each with
// its attendee count, for the check-in history view.
func (r *Repository) ListByClassroom(ctx context.Context, classroomID uuid.UUID) ([]models.SessionSummary, error) {
	const q = `SELECT s.id, s.classroom_id, s.code, s.is_open, s.peak_participants, s.created_at, s.closed_at,
			COUNT(re.user_id)
		FROM checkin_sessions s
		LEFT JOIN roster_entries re ON re.session_id = s.id
		WHERE s.classroom_id = $1
		GROUP BY s.id
		ORDER BY s.created_at DESC`
	rows, err := r.pool.Query(ctx, q, classroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SessionSummary
	for rows.Next() {
		var s models.SessionSummary
		if err := rows.Scan(&s.ID, &s.ClassroomID, &s.Code, &s.IsOpen, &s.PeakParticipants, &s.CreatedAt, &s.ClosedAt, &s.AttendeeCount); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// UpdatePeakParticipants raises the stored peak if count exceeds it.
func (r *Repository) UpdatePeakParticipants(ctx context.Context, id uuid.UUID, count int) error {
	const q = `UPDATE checkin_sessions SET peak_participants = $1 WHERE id = $2 AND peak_participants < $1`
	_, err := r.pool.Exec(ctx, q, count, id)
	return err
}

// MarkLateEntries flags roster entries recorded after the session closed as
// late. Used by the reconciliation worker; returns the number of rows changed.
func (r *Repository) MarkLateEntries(ctx context.Context, sessionID uuid.UUID, closedAt time.Time) (int64, error) {
	const q = `UPDATE roster_entries SET status = $1 WHERE session_id = $2 AND recorded_at > $3 AND status = $4`
	tag, err := r.pool.Exec(ctx, q, models.StatusLate, sessionID, closedAt, models.StatusPresent)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
