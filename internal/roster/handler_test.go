package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/realtime"
)

type fakeStore struct {
	entries map[uuid.UUID]*models.RosterEntry // keyed by user id, single session
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[uuid.UUID]*models.RosterEntry)}
}

func (f *fakeStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.RosterEntry, error) {
	out := make([]models.RosterEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeStore) GetEntry(ctx context.Context, sessionID, userID uuid.UUID) (*models.RosterEntry, error) {
	e, ok := f.entries[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) UpdateEntry(ctx context.Context, sessionID, userID uuid.UUID, edit models.RosterEdit) error {
	e, ok := f.entries[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	f.applyEdit(e, edit)
	return nil
}

func (f *fakeStore) DeleteEntry(ctx context.Context, sessionID, userID uuid.UUID) error {
	delete(f.entries, userID)
	return nil
}

func (f *fakeStore) MarkAllPresent(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range f.entries {
		if e.Status != models.StatusPresent {
			e.Status = models.StatusPresent
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ApplyEdits(ctx context.Context, sessionID uuid.UUID, edits []models.RosterEdit) error {
	for _, edit := range edits {
		e, ok := f.entries[edit.UserID]
		if !ok {
			return pgx.ErrNoRows
		}
		f.applyEdit(e, edit)
	}
	return nil
}

// applyEdit mirrors the repository's COALESCE update: nil fields are
// left untouched.
func (f *fakeStore) applyEdit(e *models.RosterEntry, edit models.RosterEdit) {
	if edit.Note != nil {
		e.Note = *edit.Note
	}
	if edit.Score != nil {
		e.Score = edit.Score
	}
	if edit.Status != nil {
		e.Status = *edit.Status
	}
}

type fakeSessionStore struct {
	sessions map[uuid.UUID]*models.CheckinSession
}

func (f *fakeSessionStore) GetSession(ctx context.Context, id uuid.UUID) (*models.CheckinSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

type fakeClassroomStore struct {
	classrooms map[uuid.UUID]*models.Classroom
}

func (f *fakeClassroomStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Classroom, error) {
	cl, ok := f.classrooms[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cl, nil
}

type fixture struct {
	handler *Handler
	store   *fakeStore
	session *models.CheckinSession
	ownerID uuid.UUID
	student uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ownerID := uuid.New()
	studentID := uuid.New()
	classroom := &models.Classroom{ID: uuid.New(), OwnerID: ownerID}
	session := &models.CheckinSession{ID: uuid.New(), ClassroomID: classroom.ID, Code: "ABC234", IsOpen: true}

	store := newFakeStore()
	score := 5.0
	store.entries[studentID] = &models.RosterEntry{
		SessionID:  session.ID,
		UserID:     studentID,
		StudentNo:  "S-1001",
		FullName:   "Dana Olsen",
		Note:       "front row",
		Score:      &score,
		Status:     models.StatusPresent,
		RecordedAt: time.Now(),
	}

	hub := realtime.NewHub(zap.NewNop(), nil, nil)
	h := NewHandler(store,
		&fakeSessionStore{sessions: map[uuid.UUID]*models.CheckinSession{session.ID: session}},
		&fakeClassroomStore{classrooms: map[uuid.UUID]*models.Classroom{classroom.ID: classroom}},
		hub, zap.NewNop())

	return &fixture{handler: h, store: store, session: session, ownerID: ownerID, student: studentID}
}

func (fx *fixture) patchEntry(t *testing.T, asUser, targetUser uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPatch, "/sessions/"+fx.session.ID.String()+"/roster/"+targetUser.String(), bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{
		{Key: "id", Value: fx.session.ID.String()},
		{Key: "userId", Value: targetUser.String()},
	}
	c.Set(middleware.ContextUserID, asUser)
	fx.handler.UpdateEntry(c)
	return w
}

func TestUpdateEntryScoreOnly(t *testing.T) {
	fx := newFixture(t)

	w := fx.patchEntry(t, fx.ownerID, fx.student, `{"score": 8}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}

	entry := fx.store.entries[fx.student]
	if entry.Score == nil || *entry.Score != 8 {
		t.Errorf("score = %v, want 8", entry.Score)
	}
	if entry.Note != "front row" {
		t.Errorf("note = %q, want unchanged %q", entry.Note, "front row")
	}
	if entry.Status != models.StatusPresent {
		t.Errorf("status = %d, want unchanged %d", entry.Status, models.StatusPresent)
	}

	// The response carries the re-read entry.
	var resp struct {
		Data models.RosterEntry `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Score == nil || *resp.Data.Score != 8 {
		t.Errorf("response score = %v, want 8", resp.Data.Score)
	}
	if resp.Data.StudentNo != "S-1001" {
		t.Errorf("response student_no = %q, want S-1001", resp.Data.StudentNo)
	}
}

func TestUpdateEntryUnknownUser(t *testing.T) {
	fx := newFixture(t)

	w := fx.patchEntry(t, fx.ownerID, uuid.New(), `{"score": 3}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestUpdateEntryNonOwnerForbidden(t *testing.T) {
	fx := newFixture(t)

	w := fx.patchEntry(t, uuid.New(), fx.student, `{"score": 3}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if entry := fx.store.entries[fx.student]; *entry.Score != 5 {
		t.Errorf("score = %v, entry changed by forbidden request", *entry.Score)
	}
}

func TestMarkAllPresentCountsOnlyChanged(t *testing.T) {
	fx := newFixture(t)
	absent := uuid.New()
	fx.store.entries[absent] = &models.RosterEntry{
		SessionID: fx.session.ID,
		UserID:    absent,
		Status:    models.StatusAbsent,
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/sessions/"+fx.session.ID.String()+"/roster/mark-present", nil)
	c.Params = gin.Params{{Key: "id", Value: fx.session.ID.String()}}
	c.Set(middleware.ContextUserID, fx.ownerID)
	fx.handler.MarkAllPresent(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp struct {
		Data struct {
			Updated int64 `json:"updated"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Updated != 1 {
		t.Errorf("updated = %d, want 1", resp.Data.Updated)
	}
	if fx.store.entries[absent].Status != models.StatusPresent {
		t.Errorf("absent entry not marked present")
	}
}

func TestBulkEditAppliesAllEdits(t *testing.T) {
	fx := newFixture(t)
	note := "late arrival"
	status := models.StatusLate
	body, _ := json.Marshal(BulkEditRequest{Edits: []models.RosterEdit{
		{UserID: fx.student, Note: &note, Status: &status},
	}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/sessions/"+fx.session.ID.String()+"/roster", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: fx.session.ID.String()}}
	c.Set(middleware.ContextUserID, fx.ownerID)
	fx.handler.BulkEdit(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}
	entry := fx.store.entries[fx.student]
	if entry.Note != "late arrival" || entry.Status != models.StatusLate {
		t.Errorf("entry = note %q status %d, want note %q status %d", entry.Note, entry.Status, "late arrival", models.StatusLate)
	}
	if entry.Score == nil || *entry.Score != 5 {
		t.Errorf("score = %v, want unchanged 5", entry.Score)
	}
}
