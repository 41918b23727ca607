package questions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

var (
	// ErrQuestionNotFound is returned when no question matches.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionHidden is returned when a student answers a question
	// the teacher is not currently showing.
	ErrQuestionHidden = errors.New("question is not being shown")
)

// Store is the persistence interface the question service depends on.
type Store interface {
	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	CurrentQuestion(ctx context.Context, sessionID uuid.UUID) (*models.Question, error)
	NextQuestionNumber(ctx context.Context, sessionID uuid.UUID) (int, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
	SetShown(ctx context.Context, id uuid.UUID, shown bool) error
	UpsertAnswer(ctx context.Context, a *models.Answer) error
	ListAnswers(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error)
	DeleteAnswers(ctx context.Context, questionID uuid.UUID) error
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
}

// Service implements the per-session question and answer flow.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a question service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Ask creates a new question for a session. The question is shown
// immediately so students can start answering.
func (s *Service) Ask(ctx context.Context, sessionID uuid.UUID, text string) (*models.Question, error) {
	number, err := s.store.NextQuestionNumber(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	q := &models.Question{
		SessionID: sessionID,
		Number:    number,
		Text:      text,
		Shown:     true,
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// SetShown toggles whether a question is visible to students.
func (s *Service) SetShown(ctx context.Context, questionID uuid.UUID, shown bool) (*models.Question, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, ErrQuestionNotFound
	}
	if err := s.store.SetShown(ctx, questionID, shown); err != nil {
		return nil, err
	}
	q.Shown = shown
	return q, nil
}

// Get returns one question by id.
func (s *Service) Get(ctx context.Context, questionID uuid.UUID) (*models.Question, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, ErrQuestionNotFound
	}
	return q, nil
}

// List returns every question asked in a session.
func (s *Service) List(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	return s.store.ListBySession(ctx, sessionID)
}

// Current returns the question currently shown to students, or nil when
// the teacher is not showing one.
func (s *Service) Current(ctx context.Context, sessionID uuid.UUID) (*models.Question, error) {
	return s.store.CurrentQuestion(ctx, sessionID)
}

// SubmitAnswer records a student's answer to a shown question. Submitting
// again overwrites the previous answer.
func (s *Service) SubmitAnswer(ctx context.Context, questionID, userID uuid.UUID, text string) (*models.Answer, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, ErrQuestionNotFound
	}
	if !q.Shown {
		return nil, ErrQuestionHidden
	}
	a := &models.Answer{
		QuestionID:  questionID,
		UserID:      userID,
		Text:        text,
		SubmittedAt: s.now(),
	}
	if err := s.store.UpsertAnswer(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Answers lists all answers submitted for a question.
func (s *Service) Answers(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error) {
	return s.store.ListAnswers(ctx, questionID)
}

// Reset deletes a question and everything submitted for it. The question
// row goes first and the answers after, so an interrupted reset leaves a
// deleted question with leftover answers; retrying the job finishes the
// cleanup (question deletion is idempotent).
func (s *Service) Reset(ctx context.Context, questionID uuid.UUID) error {
	if err := s.store.DeleteQuestion(ctx, questionID); err != nil {
		return err
	}
	return s.store.DeleteAnswers(ctx, questionID)
}
