package checkin

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/classrooms"
	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/realtime"
	"github.com/classpulse/backend/pkg/queue"
	"github.com/classpulse/backend/pkg/response"
)

// VerifyRequest is the body for POST /classrooms/:id/checkin/verify.
type VerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// RecordRequest is the body for POST /sessions/:id/checkin.
type RecordRequest struct {
	StudentNo string `json:"student_no" binding:"required"`
	FullName  string `json:"full_name" binding:"required"`
	Note      string `json:"note"`
}

// Handler handles check-in session HTTP endpoints.
type Handler struct {
	service       *Service
	repo          *Repository
	classroomRepo *classrooms.Repository
	hub           *realtime.Hub
	jobs          *queue.Queue
	logger        *zap.Logger
}

// NewHandler creates a check-in handler. jobs may be nil when the worker
// queue is disabled (reconciliation is skipped).
func NewHandler(service *Service, repo *Repository, classroomRepo *classrooms.Repository, hub *realtime.Hub, jobs *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, classroomRepo: classroomRepo, hub: hub, jobs: jobs, logger: logger}
}

// Create handles POST /classrooms/:id/sessions (owner). Generates the code
// and opens the session.
func (h *Handler) Create(c *gin.Context) {
	cl := c.MustGet(classrooms.ContextClassroom).(*models.Classroom)
	session, err := h.service.CreateSession(c.Request.Context(), cl.ID)
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err), zap.String("classroom_id", cl.ID.String()))
		response.Internal(c, "failed to create check-in session")
		return
	}
	h.hub.PublishToSessionOnly(session.ID, realtime.EventSessionOpened, gin.H{
		"session_id": session.ID, "classroom_id": cl.ID,
	})
	response.Created(c, session)
}

// History handles GET /classrooms/:id/sessions (owner). Returns sessions
// newest first with attendee counts.
func (h *Handler) History(c *gin.Context) {
	cl := c.MustGet(classrooms.ContextClassroom).(*models.Classroom)
	list, err := h.repo.ListByClassroom(c.Request.Context(), cl.ID)
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /sessions/:id (owner). The full record, code included,
// is teacher-facing; students only ever see the code off-screen.
func (h *Handler) GetByID(c *gin.Context) {
	session, ok := h.requireSessionOwner(c)
	if !ok {
		return
	}
	response.OK(c, session)
}

// Open handles POST /sessions/:id/open (owner). Regenerates the code and
// reopens the session.
func (h *Handler) Open(c *gin.Context) {
	session, ok := h.requireSessionOwner(c)
	if !ok {
		return
	}
	reopened, err := h.service.Reopen(c.Request.Context(), session.ID)
	if err != nil {
		response.Internal(c, "failed to open check-in")
		return
	}
	h.hub.PublishToSessionOnly(session.ID, realtime.EventSessionOpened, gin.H{
		"session_id": session.ID, "classroom_id": session.ClassroomID,
	})
	response.OK(c, reopened)
}

// Close handles POST /sessions/:id/close (owner). Closes the session and
// enqueues the reconciliation pass that marks late submissions.
func (h *Handler) Close(c *gin.Context) {
	session, ok := h.requireSessionOwner(c)
	if !ok {
		return
	}
	closedAt, err := h.service.Close(c.Request.Context(), session.ID)
	if err != nil {
		response.Internal(c, "failed to close check-in")
		return
	}
	if h.jobs != nil {
		err := h.jobs.EnqueueSessionReconcile(c.Request.Context(), queue.SessionReconcilePayload{
			SessionID: session.ID,
			ClosedAt:  closedAt,
		})
		if err != nil {
			h.logger.Warn("enqueue reconcile failed", zap.Error(err), zap.String("session_id", session.ID.String()))
		}
	}
	h.hub.PublishToSessionOnly(session.ID, realtime.EventSessionClosed, gin.H{
		"session_id": session.ID, "closed_at": closedAt,
	})
	response.OK(c, gin.H{"session_id": session.ID, "is_open": false, "closed_at": closedAt})
}

// Verify handles POST /classrooms/:id/checkin/verify (student). Checks the
// submitted code against the classroom's latest session.
func (h *Handler) Verify(c *gin.Context) {
	classroomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid classroom id")
		return
	}
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	session, err := h.service.VerifyCode(c.Request.Context(), classroomID, req.Code)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, ErrSessionNotFound.Error())
		return
	case errors.Is(err, ErrSessionClosed):
		response.Conflict(c, ErrSessionClosed.Error())
		return
	case errors.Is(err, ErrCodeMismatch):
		response.BadRequest(c, ErrCodeMismatch.Error())
		return
	case err != nil:
		response.Internal(c, "failed to verify code")
		return
	}
	response.OK(c, gin.H{"verified": true, "session_id": session.ID})
}

// Record handles POST /sessions/:id/checkin (student). Writes the roster
// entry; uniqueness is per (session, student), so re-submitting overwrites.
func (h *Handler) Record(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	entry, err := h.service.RecordAttendance(c.Request.Context(), sessionID, userID, req.StudentNo, req.FullName, req.Note)
	if errors.Is(err, ErrSessionNotFound) {
		response.NotFound(c, ErrSessionNotFound.Error())
		return
	}
	if err != nil {
		h.logger.Error("record attendance failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to record attendance")
		return
	}
	h.hub.PublishToSessionOnly(sessionID, realtime.EventCheckinRecorded, entry)
	response.Created(c, entry)
}

// Participants returns the live participant count for a session from the hub.
func (h *Handler) Participants(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	response.OK(c, gin.H{"session_id": sessionID, "count": h.hub.ParticipantCount(sessionID)})
}

// requireSessionOwner resolves the :id session and checks that the current
// user owns its classroom. Writes the error response itself on failure.
func (h *Handler) requireSessionOwner(c *gin.Context) (*models.CheckinSession, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return nil, false
	}
	session, err := h.repo.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.NotFound(c, "session not found")
		return nil, false
	}
	cl, err := h.classroomRepo.GetByID(c.Request.Context(), session.ClassroomID)
	if err != nil {
		response.NotFound(c, "classroom not found")
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if cl.OwnerID != userID {
		response.Forbidden(c, "only the classroom owner can do this")
		return nil, false
	}
	return session, true
}
