package presence

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/checkin"
	"github.com/classpulse/backend/internal/classrooms"
	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/pkg/response"
)

// Handler exposes session presence logs to the classroom owner.
type Handler struct {
	repo          *Repository
	sessionRepo   *checkin.Repository
	classroomRepo *classrooms.Repository
}

// NewHandler creates a presence handler.
func NewHandler(repo *Repository, sessionRepo *checkin.Repository, classroomRepo *classrooms.Repository) *Handler {
	return &Handler{repo: repo, sessionRepo: sessionRepo, classroomRepo: classroomRepo}
}

// Attendees handles GET /sessions/:id/attendees (owner). Returns the raw
// connection log plus aggregates.
func (h *Handler) Attendees(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	session, err := h.sessionRepo.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.NotFound(c, "session not found")
		return
	}
	cl, err := h.classroomRepo.GetByID(c.Request.Context(), session.ClassroomID)
	if err != nil {
		response.NotFound(c, "classroom not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if cl.OwnerID != userID {
		response.Forbidden(c, "only the classroom owner can do this")
		return
	}
	list, err := h.repo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to list attendees")
		return
	}
	agg, err := h.repo.GetAggregates(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to aggregate presence")
		return
	}
	response.OK(c, gin.H{
		"session_id":          sessionID,
		"attendees":           list,
		"total_watch_seconds": agg.TotalWatchSeconds,
		"distinct_users":      agg.DistinctUsers,
		"peak_participants":   session.PeakParticipants,
	})
}
