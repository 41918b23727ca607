package questions

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

// fakeStore is an in-memory Store for question service tests.
type fakeStore struct {
	questions map[uuid.UUID]*models.Question
	answers   map[uuid.UUID]map[uuid.UUID]*models.Answer

	// failDeleteAnswersAfter, when >= 0, makes DeleteAnswers remove that
	// many answers and then fail, simulating an interrupted reset.
	failDeleteAnswersAfter int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		questions:              make(map[uuid.UUID]*models.Question),
		answers:                make(map[uuid.UUID]map[uuid.UUID]*models.Answer),
		failDeleteAnswersAfter: -1,
	}
}

func (f *fakeStore) CreateQuestion(_ context.Context, q *models.Question) error {
	q.ID = uuid.New()
	cp := *q
	f.questions[q.ID] = &cp
	return nil
}

func (f *fakeStore) GetQuestion(_ context.Context, id uuid.UUID) (*models.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *q
	return &cp, nil
}

func (f *fakeStore) CurrentQuestion(_ context.Context, sessionID uuid.UUID) (*models.Question, error) {
	var current *models.Question
	for _, q := range f.questions {
		if q.SessionID == sessionID && q.Shown {
			if current == nil || q.Number > current.Number {
				current = q
			}
		}
	}
	if current == nil {
		return nil, nil
	}
	cp := *current
	return &cp, nil
}

func (f *fakeStore) NextQuestionNumber(_ context.Context, sessionID uuid.UUID) (int, error) {
	max := 0
	for _, q := range f.questions {
		if q.SessionID == sessionID && q.Number > max {
			max = q.Number
		}
	}
	return max + 1, nil
}

func (f *fakeStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	var out []models.Question
	for _, q := range f.questions {
		if q.SessionID == sessionID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeStore) SetShown(_ context.Context, id uuid.UUID, shown bool) error {
	q, ok := f.questions[id]
	if !ok {
		return errors.New("no rows")
	}
	q.Shown = shown
	return nil
}

func (f *fakeStore) UpsertAnswer(_ context.Context, a *models.Answer) error {
	if f.answers[a.QuestionID] == nil {
		f.answers[a.QuestionID] = make(map[uuid.UUID]*models.Answer)
	}
	cp := *a
	f.answers[a.QuestionID][a.UserID] = &cp
	return nil
}

func (f *fakeStore) ListAnswers(_ context.Context, questionID uuid.UUID) ([]models.Answer, error) {
	var list []models.Answer
	for _, a := range f.answers[questionID] {
		list = append(list, *a)
	}
	return list, nil
}

func (f *fakeStore) DeleteAnswers(_ context.Context, questionID uuid.UUID) error {
	if f.failDeleteAnswersAfter >= 0 {
		n := f.failDeleteAnswersAfter
		f.failDeleteAnswersAfter = -1
		for uid := range f.answers[questionID] {
			if n == 0 {
				return errors.New("connection reset")
			}
			delete(f.answers[questionID], uid)
			n--
		}
		return errors.New("connection reset")
	}
	delete(f.answers, questionID)
	return nil
}

func (f *fakeStore) DeleteQuestion(_ context.Context, id uuid.UUID) error {
	delete(f.questions, id)
	return nil
}

func TestAskNumbersSequentially(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	sessionID := uuid.New()

	first, err := svc.Ask(context.Background(), sessionID, "What is a goroutine?")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Ask(context.Background(), sessionID, "And a channel?")
	if err != nil {
		t.Fatal(err)
	}
	if first.Number != 1 || second.Number != 2 {
		t.Errorf("numbers = %d, %d; want 1, 2", first.Number, second.Number)
	}
	if !first.Shown || !second.Shown {
		t.Error("new questions should be shown")
	}
}

func TestSubmitAnswerRequiresShown(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	sessionID := uuid.New()
	q, _ := svc.Ask(context.Background(), sessionID, "q1")
	if _, err := svc.SetShown(context.Background(), q.ID, false); err != nil {
		t.Fatal(err)
	}

	_, err := svc.SubmitAnswer(context.Background(), q.ID, uuid.New(), "late answer")
	if !errors.Is(err, ErrQuestionHidden) {
		t.Errorf("got %v, want ErrQuestionHidden", err)
	}

	if _, err := svc.SetShown(context.Background(), q.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitAnswer(context.Background(), q.ID, uuid.New(), "in time"); err != nil {
		t.Fatalf("shown question should accept answers: %v", err)
	}
}

func TestSubmitAnswerUnknownQuestion(t *testing.T) {
	svc := NewService(newFakeStore())
	_, err := svc.SubmitAnswer(context.Background(), uuid.New(), uuid.New(), "x")
	if !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("got %v, want ErrQuestionNotFound", err)
	}
}

func TestSubmitAnswerOverwrites(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	q, _ := svc.Ask(context.Background(), uuid.New(), "q1")
	userID := uuid.New()

	if _, err := svc.SubmitAnswer(context.Background(), q.ID, userID, "draft"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SubmitAnswer(context.Background(), q.ID, userID, "final"); err != nil {
		t.Fatal(err)
	}
	answers, _ := svc.Answers(context.Background(), q.ID)
	if len(answers) != 1 {
		t.Fatalf("got %d answers, want 1", len(answers))
	}
	if answers[0].Text != "final" {
		t.Errorf("answer = %q, want %q", answers[0].Text, "final")
	}
}

func TestCurrentReturnsLatestShown(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	sessionID := uuid.New()
	q1, _ := svc.Ask(context.Background(), sessionID, "q1")
	q2, _ := svc.Ask(context.Background(), sessionID, "q2")

	current, err := svc.Current(context.Background(), sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if current == nil || current.ID != q2.ID {
		t.Fatal("expected newest shown question")
	}

	if _, err := svc.SetShown(context.Background(), q2.ID, false); err != nil {
		t.Fatal(err)
	}
	current, _ = svc.Current(context.Background(), sessionID)
	if current == nil || current.ID != q1.ID {
		t.Fatal("hiding the newest should fall back to the older shown one")
	}

	if _, err := svc.SetShown(context.Background(), q1.ID, false); err != nil {
		t.Fatal(err)
	}
	current, _ = svc.Current(context.Background(), sessionID)
	if current != nil {
		t.Error("no shown questions should mean no current question")
	}
}

func TestResetDeletesAnswersAndQuestion(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	q, _ := svc.Ask(context.Background(), uuid.New(), "q1")
	for i := 0; i < 3; i++ {
		if _, err := svc.SubmitAnswer(context.Background(), q.ID, uuid.New(), "a"); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.Reset(context.Background(), q.ID); err != nil {
		t.Fatal(err)
	}
	if len(store.answers[q.ID]) != 0 {
		t.Error("answers should be gone")
	}
	if _, err := store.GetQuestion(context.Background(), q.ID); err == nil {
		t.Error("question row should be gone")
	}
}

// An interrupted reset leaves the question gone with leftover answers;
// retrying the same job finishes the cleanup.
func TestResetPartialFailureThenRetry(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	q, _ := svc.Ask(context.Background(), uuid.New(), "q1")
	for i := 0; i < 4; i++ {
		if _, err := svc.SubmitAnswer(context.Background(), q.ID, uuid.New(), "a"); err != nil {
			t.Fatal(err)
		}
	}

	store.failDeleteAnswersAfter = 2
	if err := svc.Reset(context.Background(), q.ID); err == nil {
		t.Fatal("expected reset to fail midway")
	}

	// Partial state is observable: the question row is gone but some
	// answers survived the interrupted deletion.
	if _, err := store.GetQuestion(context.Background(), q.ID); err == nil {
		t.Fatal("question row should be gone even when answer deletion fails")
	}
	if remaining := len(store.answers[q.ID]); remaining != 2 {
		t.Fatalf("got %d remaining answers, want 2", remaining)
	}

	if err := svc.Reset(context.Background(), q.ID); err != nil {
		t.Fatalf("retry should complete: %v", err)
	}
	if len(store.answers[q.ID]) != 0 {
		t.Error("retry should delete the remaining answers")
	}
}
