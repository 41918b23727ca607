package checkin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	sessions map[uuid.UUID]*models.CheckinSession
	entries  map[uuid.UUID]map[uuid.UUID]*models.RosterEntry
	order    []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]*models.CheckinSession),
		entries:  make(map[uuid.UUID]map[uuid.UUID]*models.RosterEntry),
	}
}

func (f *fakeStore) CreateSession(_ context.Context, classroomID uuid.UUID, code string) (*models.CheckinSession, error) {
	s := &models.CheckinSession{
		ID:          uuid.New(),
		ClassroomID: classroomID,
		Code:        code,
		IsOpen:      true,
		CreatedAt:   time.Now(),
	}
	f.sessions[s.ID] = s
	f.order = append(f.order, s.ID)
	return s, nil
}

func (f *fakeStore) GetSession(_ context.Context, id uuid.UUID) (*models.CheckinSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return s, nil
}

func (f *fakeStore) LatestSession(_ context.Context, classroomID uuid.UUID) (*models.CheckinSession, error) {
	for i := len(f.order) - 1; i >= 0; i-- {
		if s := f.sessions[f.order[i]]; s.ClassroomID == classroomID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) OpenSession(_ context.Context, id uuid.UUID, code string) error {
	s, ok := f.sessions[id]
	if !ok {
		return errors.New("no rows")
	}
	s.Code = code
	s.IsOpen = true
	s.ClosedAt = nil
	return nil
}

func (f *fakeStore) CloseSession(_ context.Context, id uuid.UUID) (time.Time, error) {
	s, ok := f.sessions[id]
	if !ok {
		return time.Time{}, errors.New("no rows")
	}
	now := time.Now()
	s.IsOpen = false
	s.ClosedAt = &now
	return now, nil
}

func (f *fakeStore) UpsertRosterEntry(_ context.Context, e *models.RosterEntry) error {
	if f.entries[e.SessionID] == nil {
		f.entries[e.SessionID] = make(map[uuid.UUID]*models.RosterEntry)
	}
	cp := *e
	f.entries[e.SessionID][e.UserID] = &cp
	return nil
}

func TestCreateSessionGeneratesCode(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 6)
	classroomID := uuid.New()

	session, err := svc.CreateSession(context.Background(), classroomID)
	if err != nil {
		t.Fatal(err)
	}
	if len(session.Code) != 6 {
		t.Errorf("code %q, want 6 characters", session.Code)
	}
	if !session.IsOpen {
		t.Error("new session should be open")
	}
}

func TestVerifyCodeNoSession(t *testing.T) {
	svc := NewService(newFakeStore(), 6)
	_, err := svc.VerifyCode(context.Background(), uuid.New(), "ABCDEF")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestVerifyCodeClosedBeforeMismatch(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 6)
	classroomID := uuid.New()
	session, _ := svc.CreateSession(context.Background(), classroomID)
	if _, err := svc.Close(context.Background(), session.ID); err != nil {
		t.Fatal(err)
	}

	// Even a wrong code reports closed, not mismatch.
	_, err := svc.VerifyCode(context.Background(), classroomID, "WRONG1")
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("got %v, want ErrSessionClosed", err)
	}
}

func TestVerifyCodeMismatch(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 6)
	classroomID := uuid.New()
	if _, err := svc.CreateSession(context.Background(), classroomID); err != nil {
		t.Fatal(err)
	}

	_, err := svc.VerifyCode(context.Background(), classroomID, "NOPE22")
	if !errors.Is(err, ErrCodeMismatch) {
		t.Errorf("got %v, want ErrCodeMismatch", err)
	}
}

func TestVerifyCodeCaseInsensitive(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 6)
	classroomID := uuid.New()
	session, _ := svc.CreateSession(context.Background(), classroomID)

	got, err := svc.VerifyCode(context.Background(), classroomID, "  "+session.Code+" ")
	if err != nil {
		t.Fatalf("trimmed code rejected: %v", err)
	}
	if got.ID != session.ID {
		t.Error("verified wrong session")
	}

	if _, err := svc.VerifyCode(context.Background(), classroomID, strings.ToLower(session.Code)); err != nil {
		t.Fatalf("lowercase code rejected: %v", err)
	}
}

func TestVerifyUsesLatestSession(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 6)
	classroomID := uuid.New()
	first, _ := svc.CreateSession(context.Background(), classroomID)
	second, _ := svc.CreateSession(context.Background(), classroomID)

	if first.Code != second.Code {
		if _, err := svc.VerifyCode(context.Background(), classroomID, first.Code); !errors.Is(err, ErrCodeMismatch) {
			t.Errorf("old code accepted, got %v", err)
		}
	}
	got, err := svc.VerifyCode(context.Background(), classroomID, second.Code)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != second.ID {
		t.Error("expected latest session to win")
	}
}

func TestRecordAttendanceIdempotentOverwrite(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 6)
	classroomID := uuid.New()
	session, _ := svc.CreateSession(context.Background(), classroomID)
	userID := uuid.New()

	first, err := svc.RecordAttendance(context.Background(), session.ID, userID, "6001", "Mina", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.RecordAttendance(context.Background(), session.ID, userID, "6001", "Mina K.", "re-scan")
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != models.StatusPresent || second.Status != models.StatusPresent {
		t.Error("recorded entries should be present")
	}
	if len(store.entries[session.ID]) != 1 {
		t.Fatalf("got %d entries, want 1 (overwrite)", len(store.entries[session.ID]))
	}
	stored := store.entries[session.ID][userID]
	if stored.FullName != "Mina K." || stored.Note != "re-scan" {
		t.Errorf("latest write should win, got %+v", stored)
	}
}

func TestRecordAttendanceUnknownSession(t *testing.T) {
	svc := NewService(newFakeStore(), 6)
	_, err := svc.RecordAttendance(context.Background(), uuid.New(), uuid.New(), "1", "X", "")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

// A student who verified while the session was open can still record after
// close; reconciliation is what marks those entries late.
func TestRecordAfterCloseStillWrites(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 6)
	classroomID := uuid.New()
	session, _ := svc.CreateSession(context.Background(), classroomID)

	verified, err := svc.VerifyCode(context.Background(), classroomID, session.Code)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Close(context.Background(), session.ID); err != nil {
		t.Fatal(err)
	}

	userID := uuid.New()
	entry, err := svc.RecordAttendance(context.Background(), verified.ID, userID, "6002", "Lee", "")
	if err != nil {
		t.Fatalf("record after close should still write: %v", err)
	}
	if entry.Status != models.StatusPresent {
		t.Error("write path records present; the worker downgrades later")
	}
	if store.entries[session.ID][userID] == nil {
		t.Fatal("entry not stored")
	}
}

func TestReopenRegeneratesCode(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 8)
	classroomID := uuid.New()
	session, _ := svc.CreateSession(context.Background(), classroomID)
	oldCode := session.Code
	if _, err := svc.Close(context.Background(), session.ID); err != nil {
		t.Fatal(err)
	}

	reopened, err := svc.Reopen(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.IsOpen {
		t.Error("reopened session should be open")
	}
	if reopened.ClosedAt != nil {
		t.Error("reopen should clear closed_at")
	}
	if reopened.Code == oldCode {
		t.Error("reopen should rotate the code")
	}
}

func TestCloseReturnsTimestamp(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 6)
	session, _ := svc.CreateSession(context.Background(), uuid.New())

	closedAt, err := svc.Close(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if closedAt.IsZero() {
		t.Error("close should return the close time")
	}
	if session.IsOpen {
		t.Error("session should be closed")
	}
}
