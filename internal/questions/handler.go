package questions

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/realtime"
	"github.com/classpulse/backend/pkg/queue"
	"github.com/classpulse/backend/pkg/response"
)

// SessionStore resolves sessions for ownership checks.
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.CheckinSession, error)
}

// ClassroomStore resolves classrooms for ownership checks.
type ClassroomStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Classroom, error)
}

// JobQueue schedules the background cleanup a question reset needs.
type JobQueue interface {
	EnqueueQAReset(ctx context.Context, payload queue.QAResetPayload) error
}

// AskRequest is the body for creating a question.
type AskRequest struct {
	Text string `json:"text" binding:"required"`
}

// AnswerRequest is the body for submitting an answer.
type AnswerRequest struct {
	Text string `json:"text" binding:"required"`
}

// Handler handles question and answer endpoints.
type Handler struct {
	service       *Service
	sessionRepo   SessionStore
	classroomRepo ClassroomStore
	hub           *realtime.Hub
	jobs          JobQueue
	logger        *zap.Logger
}

// NewHandler creates a questions handler. jobs may be nil when the worker
// queue is disabled; resets are rejected with 503 in that case.
func NewHandler(service *Service, sessionRepo SessionStore, classroomRepo ClassroomStore, hub *realtime.Hub, jobs JobQueue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:       service,
		sessionRepo:   sessionRepo,
		classroomRepo: classroomRepo,
		hub:           hub,
		jobs:          jobs,
		logger:        logger,
	}
}

// Ask handles POST /sessions/:id/questions (owner). The new question is
// shown to students right away.
func (h *Handler) Ask(c *gin.Context) {
	session, ok := h.requireSessionOwner(c, c.Param("id"))
	if !ok {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	q, err := h.service.Ask(c.Request.Context(), session.ID, req.Text)
	if err != nil {
		h.logger.Error("create question failed", zap.Error(err), zap.String("session_id", session.ID.String()))
		response.Internal(c, "failed to create question")
		return
	}
	h.hub.PublishToSessionOnly(session.ID, realtime.EventQuestionShown, q)
	response.Created(c, q)
}

// List handles GET /sessions/:id/questions (owner).
func (h *Handler) List(c *gin.Context) {
	session, ok := h.requireSessionOwner(c, c.Param("id"))
	if !ok {
		return
	}
	list, err := h.service.List(c.Request.Context(), session.ID)
	if err != nil {
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, gin.H{"session_id": session.ID, "questions": list})
}

// Current handles GET /sessions/:id/questions/current. Students poll or
// subscribe to see the question the teacher is currently showing.
func (h *Handler) Current(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	q, err := h.service.Current(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to load current question")
		return
	}
	if q == nil {
		response.OK(c, gin.H{"question": nil})
		return
	}
	response.OK(c, gin.H{"question": q})
}

// Show handles POST /questions/:id/show (owner).
func (h *Handler) Show(c *gin.Context) {
	h.setShown(c, true)
}

// Hide handles POST /questions/:id/hide (owner).
func (h *Handler) Hide(c *gin.Context) {
	h.setShown(c, false)
}

func (h *Handler) setShown(c *gin.Context, shown bool) {
	q, ok := h.requireQuestionOwner(c)
	if !ok {
		return
	}
	updated, err := h.service.SetShown(c.Request.Context(), q.ID, shown)
	if err != nil {
		response.Internal(c, "failed to update question")
		return
	}
	event := realtime.EventQuestionShown
	if !shown {
		event = realtime.EventQuestionHidden
	}
	h.hub.PublishToSessionOnly(q.SessionID, event, updated)
	response.OK(c, updated)
}

// Answer handles POST /questions/:id/answers. Students may only answer
// while the teacher is showing the question; re-submitting overwrites.
func (h *Handler) Answer(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	a, err := h.service.SubmitAnswer(c.Request.Context(), questionID, userID, req.Text)
	switch {
	case errors.Is(err, ErrQuestionNotFound):
		response.NotFound(c, err.Error())
		return
	case errors.Is(err, ErrQuestionHidden):
		response.Conflict(c, err.Error())
		return
	case err != nil:
		h.logger.Error("submit answer failed", zap.Error(err), zap.String("question_id", questionID.String()))
		response.Internal(c, "failed to submit answer")
		return
	}
	if q, qerr := h.service.Get(c.Request.Context(), questionID); qerr == nil {
		h.hub.PublishToSessionOnly(q.SessionID, realtime.EventAnswerSubmitted, gin.H{
			"question_id": questionID, "user_id": userID,
		})
	}
	response.Created(c, a)
}

// Answers handles GET /questions/:id/answers (owner).
func (h *Handler) Answers(c *gin.Context) {
	q, ok := h.requireQuestionOwner(c)
	if !ok {
		return
	}
	list, err := h.service.Answers(c.Request.Context(), q.ID)
	if err != nil {
		response.Internal(c, "failed to list answers")
		return
	}
	response.OK(c, gin.H{"question_id": q.ID, "answers": list})
}

// Reset handles DELETE /questions/:id (owner). The question is hidden
// immediately and the deletion of its answers runs in the worker.
func (h *Handler) Reset(c *gin.Context) {
	if h.jobs == nil {
		response.ServiceUnavailable(c, "question reset is unavailable")
		return
	}
	q, ok := h.requireQuestionOwner(c)
	if !ok {
		return
	}
	if _, err := h.service.SetShown(c.Request.Context(), q.ID, false); err != nil {
		response.Internal(c, "failed to hide question")
		return
	}
	if err := h.jobs.EnqueueQAReset(c.Request.Context(), queue.QAResetPayload{
		QuestionID: q.ID,
		SessionID:  q.SessionID,
	}); err != nil {
		h.logger.Error("enqueue question reset failed", zap.Error(err), zap.String("question_id", q.ID.String()))
		response.Internal(c, "failed to schedule question reset")
		return
	}
	h.hub.PublishToSessionOnly(q.SessionID, realtime.EventQuestionHidden, gin.H{
		"question_id": q.ID, "reset": true,
	})
	response.OK(c, gin.H{"question_id": q.ID, "status": "reset scheduled"})
}

func (h *Handler) requireQuestionOwner(c *gin.Context) (*models.Question, bool) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return nil, false
	}
	q, err := h.service.Get(c.Request.Context(), questionID)
	if err != nil {
		response.NotFound(c, "question not found")
		return nil, false
	}
	if _, ok := h.requireSessionOwnerByID(c, q.SessionID); !ok {
		return nil, false
	}
	return q, true
}

func (h *Handler) requireSessionOwner(c *gin.Context, raw string) (*models.CheckinSession, bool) {
	sessionID, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return nil, false
	}
	return h.requireSessionOwnerByID(c, sessionID)
}

func (h *Handler) requireSessionOwnerByID(c *gin.Context, sessionID uuid.UUID) (*models.CheckinSession, bool) {
	session, err := h.sessionRepo.GetSession(c.Request.Context(), sessionID)
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
