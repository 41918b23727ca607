package questions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/realtime"
	"github.com/classpulse/backend/pkg/queue"
)

type fakeSessions struct {
	sessions map[uuid.UUID]*models.CheckinSession
}

func (f *fakeSessions) GetSession(ctx context.Context, id uuid.UUID) (*models.CheckinSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

type fakeClassrooms struct {
	classrooms map[uuid.UUID]*models.Classroom
}

func (f *fakeClassrooms) GetByID(ctx context.Context, id uuid.UUID) (*models.Classroom, error) {
	cl, ok := f.classrooms[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cl, nil
}

type recordingQueue struct {
	resets []queue.QAResetPayload
}

func (r *recordingQueue) EnqueueQAReset(ctx context.Context, payload queue.QAResetPayload) error {
	r.resets = append(r.resets, payload)
	return nil
}

type handlerFixture struct {
	handler  *Handler
	store    *fakeStore
	jobs     *recordingQueue
	question *models.Question
	ownerID  uuid.UUID
}

func newHandlerFixture(t *testing.T, withJobs bool) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ownerID := uuid.New()
	classroom := &models.Classroom{ID: uuid.New(), OwnerID: ownerID}
	session := &models.CheckinSession{ID: uuid.New(), ClassroomID: classroom.ID, Code: "ABC234", IsOpen: true}

	store := newFakeStore()
	svc := NewService(store)
	q, err := svc.Ask(context.Background(), session.ID, "what is a goroutine?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	var jobs *recordingQueue
	var handlerJobs JobQueue
	if withJobs {
		jobs = &recordingQueue{}
		handlerJobs = jobs
	}
	hub := realtime.NewHub(zap.NewNop(), nil, nil)
	h := NewHandler(svc,
		&fakeSessions{sessions: map[uuid.UUID]*models.CheckinSession{session.ID: session}},
		&fakeClassrooms{classrooms: map[uuid.UUID]*models.Classroom{classroom.ID: classroom}},
		hub, handlerJobs, zap.NewNop())

	return &handlerFixture{handler: h, store: store, jobs: jobs, question: q, ownerID: ownerID}
}

func (fx *handlerFixture) reset(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/questions/"+fx.question.ID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: fx.question.ID.String()}}
	c.Set(middleware.ContextUserID, fx.ownerID)
	fx.handler.Reset(c)
	return w
}

func TestResetSchedulesCleanup(t *testing.T) {
	fx := newHandlerFixture(t, true)

	w := fx.reset(t)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}
	if len(fx.jobs.resets) != 1 {
		t.Fatalf("enqueued resets = %d, want 1", len(fx.jobs.resets))
	}
	if fx.jobs.resets[0].QuestionID != fx.question.ID {
		t.Errorf("enqueued question = %s, want %s", fx.jobs.resets[0].QuestionID, fx.question.ID)
	}
	if fx.store.questions[fx.question.ID].Shown {
		t.Errorf("question still shown after reset was scheduled")
	}
}

func TestResetWithoutQueueUnavailable(t *testing.T) {
	fx := newHandlerFixture(t, false)

	w := fx.reset(t)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusServiceUnavailable, w.Body.String())
	}
	if !fx.store.questions[fx.question.ID].Shown {
		t.Errorf("question was hidden even though no reset could be scheduled")
	}
}

func TestResetNonOwnerForbidden(t *testing.T) {
	fx := newHandlerFixture(t, true)
	fx.ownerID = uuid.New()

	w := fx.reset(t)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if len(fx.jobs.resets) != 0 {
		t.Errorf("enqueued resets = %d, want 0", len(fx.jobs.resets))
	}
}
