package classrooms

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/pkg/response"
)

// ContextClassroom is the context key for the resolved classroom when
// ownership is enforced.
const ContextClassroom = "classroom"

// RequireOwner validates that the current user owns the classroom in the
// :id route param. Call after JWT. Sets the classroom in context on success.
func RequireOwner(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		classroomID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid classroom id")
			c.Abort()
			return
		}
		cl, err := repo.GetByID(c.Request.Context(), classroomID)
		if err != nil || cl == nil {
			response.NotFound(c, "classroom not found")
			c.Abort()
			return
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		if cl.OwnerID != userID {
			response.Forbidden(c, "only the classroom owner can do this")
			c.Abort()
			return
		}
		c.Set(ContextClassroom, cl)
		c.Next()
	}
}
