package questions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/models"
)

// Repository handles question and answer persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateQuestion inserts a new question.
func (r *Repository) CreateQuestion(ctx context.Context, q *models.Question) error {
	const query = `INSERT INTO questions (id, session_id, number, text, shown)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, q.SessionID, q.Number, q.Text, q.Shown).
		Scan(&q.ID, &q.CreatedAt)
}

// GetQuestion returns a question by ID.
func (r *Repository) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	const query = `SELECT id, session_id, number, text, shown, created_at
		FROM questions WHERE id = $1`
	var q models.Question
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&q.ID, &q.SessionID, &q.Number, &q.Text, &q.Shown, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CurrentQuestion returns the most recent shown question for a session,
// or nil when nothing is being shown.
func (r *Repository) CurrentQuestion(ctx context.Context, sessionID uuid.UUID) (*models.Question, error) {
	const query = `SELECT id, session_id, number, text, shown, created_at
		FROM questions
		WHERE session_id = $1 AND shown = TRUE
		ORDER BY created_at DESC
		LIMIT 1`
	var q models.Question
	err := r.pool.QueryRow(ctx, query, sessionID).
		Scan(&q.ID, &q.SessionID, &q.Number, &q.Text, &q.Shown, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// NextQuestionNumber returns the next sequential question number for a
// session, starting at 1.
func (r *Repository) NextQuestionNumber(ctx context.Context, sessionID uuid.UUID) (int, error) {
	const query = `SELECT COALESCE(MAX(number), 0) + 1 FROM questions WHERE session_id = $1`
	var n int
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&n)
	return n, err
}

// SetShown toggles a question's visibility.
func (r *Repository) SetShown(ctx context.Context, id uuid.UUID, shown bool) error {
	const query = `UPDATE questions SET shown = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, shown)
	return err
}

// ListBySession returns all questions for a session, oldest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	const query = `SELECT id, session_id, number, text, shown, created_at
		FROM questions WHERE session_id = $1 ORDER BY number ASC`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Number, &q.Text, &q.Shown, &q.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, q)
	}
	return list, rows.Err()
}

// UpsertAnswer inserts a student's answer, overwriting any earlier one.
func (r *Repository) UpsertAnswer(ctx context.Context, a *models.Answer) error {
	const query = `INSERT INTO answers (question_id, user_id, text, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (question_id, user_id)
		DO UPDATE SET text = EXCLUDED.text, submitted_at = EXCLUDED.submitted_at`
	_, err := r.pool.Exec(ctx, query, a.QuestionID, a.UserID, a.Text, a.SubmittedAt)
	return err
}

// ListAnswers returns all answers for a question, oldest first.
func (r *Repository) ListAnswers(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error) {
	const query = `SELECT question_id, user_id, text, submitted_at
		FROM answers WHERE question_id = $1 ORDER BY submitted_at ASC`
	rows, err := r.pool.Query(ctx, query, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.QuestionID, &a.UserID, &a.Text, &a.SubmittedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// DeleteAnswers removes all answers for a question.
func (r *Repository) DeleteAnswers(ctx context.Context, questionID uuid.UUID) error {
	const query = `DELETE FROM answers WHERE question_id = $1`
	_, err := r.pool.Exec(ctx, query, questionID)
	return err
}

// DeleteQuestion removes a question row. Deleting a question that is
// already gone is not an error.
func (r *Repository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM questions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
