package roster

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/realtime"
	"github.com/classpulse/backend/pkg/response"
)

// Store is the roster persistence the handler depends on. The pgx
// Repository implements it; tests use an in-memory fake.
type Store interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.RosterEntry, error)
	GetEntry(ctx context.Context, sessionID, userID uuid.UUID) (*models.RosterEntry, error)
	UpdateEntry(ctx context.Context, sessionID, userID uuid.UUID, edit models.RosterEdit) error
	DeleteEntry(ctx context.Context, sessionID, userID uuid.UUID) error
	MarkAllPresent(ctx context.Context, sessionID uuid.UUID) (int64, error)
	ApplyEdits(ctx context.Context, sessionID uuid.UUID, edits []models.RosterEdit) error
}

// SessionStore resolves sessions for ownership checks.
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.CheckinSession, error)
}

// ClassroomStore resolves classrooms for ownership checks.
type ClassroomStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Classroom, error)
}

// BulkEditRequest is the body for PUT /sessions/:id/roster.
type BulkEditRequest struct {
	Edits []models.RosterEdit `json:"edits" binding:"required"`
}

// Handler handles roster viewing and editing endpoints (teacher side).
type Handler struct {
	repo          Store
	sessionRepo   SessionStore
	classroomRepo ClassroomStore
	hub           *realtime.Hub
	logger        *zap.Logger
}

// NewHandler creates a roster handler.
func NewHandler(repo Store, sessionRepo SessionStore, classroomRepo ClassroomStore, hub *realtime.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, sessionRepo: sessionRepo, classroomRepo: classroomRepo, hub: hub, logger: logger}
}

// List handles GET /sessions/:id/roster (owner).
func (h *Handler) List(c *gin.Context) {
	session, ok := h.requireSessionOwner(c)
	if !ok {
		return
	}
	list, err := h.repo.ListBySession(c.Request.Context(), session.ID)
	if err != nil {
		response.Internal(c, "failed to list roster")
		return
	}
	response.OK(c, gin.H{"session_id": session.ID, "entries": list})
}

// UpdateEntry handles PATCH /sessions/:id/roster/:userId (owner). Free-text
// edits to note, score and status.
func (h *Handler) UpdateEntry(c *gin.Context) {
	session, ok := h.requireSessionOwner(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var edit models.RosterEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.UpdateEntry(c.Request.Context(), session.ID, userID, edit); err != nil {
		response.NotFound(c, "roster entry not found")
		return
	}
	entry, err := h.repo.GetEntry(c.Request.Context(), session.ID, userID)
	if err != nil {
		response.Internal(c, "failed to load roster entry")
		return
	}
	h.hub.PublishToSessionOnly(session.ID, realtime.EventRosterUpdated, entry)
	response.OK(c, entry)
}

// DeleteEntry handles DELETE /sessions/:id/roster/:userId (owner).
func (h *Handler) DeleteEntry(c *gin.Context) {
	session, ok := h.requireSessionOwner(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.DeleteEntry(c.Request.Context(), session.ID, userID); err != nil {
		response.Internal(c, "failed to delete roster entry")
		return
	}
	h.hub.PublishToSessionOnly(session.ID, realtime.EventRosterUpdated, gin.H{
		"session_id": session.ID, "user_id": userID, "deleted": true,
	})
	response.NoContent(c)
}

// MarkAllPresent handles POST /sessions/:id/roster/mark-present (owner).
func (h *Handler) MarkAllPresent(c *gin.Context) {
	session, ok := h.requireSessionOwner(c)
	if !ok {
		return
	}
	updated, err := h.repo.MarkAllPresent(c.Request.Context(), session.ID)
	if err != nil {
		h.logger.Error("mark all present failed", zap.Error(err), zap.String("session_id", session.ID.String()))
		response.Internal(c, "failed to mark roster present")
		return
	}
	h.hub.PublishToSessionOnly(session.ID, realtime.EventRosterUpdated, gin.H{
		"session_id": session.ID, "marked_present": updated,
	})
	response.OK(c, gin.H{"session_id": session.ID, "updated": updated})
}

// BulkEdit handles PUT /sessions/:id/roster (owner). Applies a batch of
// edits in one transaction.
func (h *Handler) BulkEdit(c *gin.Context) {
	session, ok := h.requireSessionOwner(c)
	if !ok {
		return
	}
	var req BulkEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(req.Edits) == 0 {
		response.BadRequest(c, "no edits given")
		return
	}
	if err := h.repo.ApplyEdits(c.Request.Context(), session.ID, req.Edits); err != nil {
		h.logger.Error("bulk roster edit failed", zap.Error(err), zap.String("session_id", session.ID.String()))
		response.Internal(c, "failed to apply roster edits")
		return
	}
	h.hub.PublishToSessionOnly(session.ID, realtime.EventRosterUpdated, gin.H{
		"session_id": session.ID, "edited": len(req.Edits),
	})
	response.OK(c, gin.H{"session_id": session.ID, "edited": len(req.Edits)})
}

func (h *Handler) requireSessionOwner(c *gin.Context) (*models.CheckinSession, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return nil, false
	}
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
