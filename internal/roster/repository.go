package roster

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/models"
)

// Repository handles roster entry reads and teacher edits.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a roster repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListBySession returns all roster entries for a session, oldest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.RosterEntry, error) {
	const q = `SELECT session_id, user_id, student_no, full_name, note, score, status, recorded_at
		FROM roster_entries WHERE session_id = $1 ORDER BY recorded_at`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RosterEntry
	for rows.Next() {
		var e models.RosterEntry
		if err := rows.Scan(&e.SessionID, &e.UserID, &e.StudentNo, &e.FullName, &e.Note, &e.Score, &e.Status, &e.RecordedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// GetEntry returns one roster entry.
func (r *Repository) GetEntry(ctx context.Context, sessionID, userID uuid.UUID) (*models.RosterEntry, error) {
	const q = `SELECT session_id, user_id, student_no, full_name, note, score, status, recorded_at
		FROM roster_entries WHERE session_id = $1 AND user_id = $2`
	var e models.RosterEntry
	err := r.pool.QueryRow(ctx, q, sessionID, userID).
		Scan(&e.SessionID, &e.UserID, &e.StudentNo, &e.FullName, &e.Note, &e.Score, &e.Status, &e.RecordedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEntry edits an entry's note, score and status. Nil pointers leave the
// stored value unchanged.
func (r *Repository) UpdateEntry(ctx context.Context, sessionID, userID uuid.UUID, edit models.RosterEdit) error {
	const q = `UPDATE roster_entries SET
		note = COALESCE($1, note),
		score = COALESCE($2, score),
		status = COALESCE($3, status)
		WHERE session_id = $4 AND user_id = $5`
	tag, err := r.pool.Exec(ctx, q, edit.Note, edit.Score, edit.Status, sessionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteEntry removes a student's entry from a session roster.
func (r *Repository) DeleteEntry(ctx context.Context, sessionID, userID uuid.UUID) error {
	const q = `DELETE FROM roster_entries WHERE session_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, q, sessionID, userID)
	return err
}

// MarkAllPresent sets every entry in the session to present in one atomic
// statement. Returns the number of rows updated.
func (r *Repository) MarkAllPresent(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	const q = `UPDATE roster_entries SET status = $1 WHERE session_id = $2`
	tag, err := r.pool.Exec(ctx, q, models.StatusPresent, sessionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ApplyEdits applies a batch of teacher edits in a single transaction: either
// every row commits or none do.
func (r *Repository) ApplyEdits(ctx context.Context, sessionID uuid.UUID, edits []models.RosterEdit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE roster_entries SET
		note = COALESCE($1, note),
		score = COALESCE($2, score),
		status = COALESCE($3, status)
		WHERE session_id = $4 AND user_id = $5`
	for _, edit := range edits {
		if _, err := tx.Exec(ctx, q, edit.Note, edit.Score, edit.Status, sessionID, edit.UserID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
