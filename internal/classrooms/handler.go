package classrooms

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/pkg/response"
	"github.com/classpulse/backend/pkg/storage"
)

// CreateRequest is the body for POST /classrooms.
type CreateRequest struct {
	CourseID   string `json:"course_id" binding:"required"`
	CourseName string `json:"course_name" binding:"required"`
	RoomName   string `json:"room_name"`
}

// JoinRequest is the body for POST /classrooms/:id/join.
type JoinRequest struct {
	StudentNo string `json:"student_no" binding:"required"`
	FullName  string `json:"full_name" binding:"required"`
}

// Handler handles classroom HTTP endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a classroom handler. s3 may be nil when blob storage is disabled.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// Create handles POST /classrooms (teacher only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	cl := &models.Classroom{
		CourseID:   req.CourseID,
		CourseName: req.CourseName,
		RoomName:   req.RoomName,
		OwnerID:    userID,
	}
	if err := h.repo.Create(c.Request.Context(), cl); err != nil {
		h.logger.Error("create classroom failed", zap.Error(err))
		response.Internal(c, "failed to create classroom")
		return
	}
	response.Created(c, cl)
}

// List handles GET /classrooms. Query ?mine=1 returns only owned classrooms;
// default is owned plus joined.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var (
		list []models.Classroom
		err  error
	)
	if c.Query("mine") == "1" {
		list, err = h.repo.ListOwned(c.Request.Context(), userID)
	} else {
		list, err = h.repo.ListJoined(c.Request.Context(), userID)
	}
	if err != nil {
		response.Internal(c, "failed to list classrooms")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /classrooms/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid classroom id")
		return
	}
	cl, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "classroom not found")
		return
	}
	response.OK(c, cl)
}

// Update handles PATCH /classrooms/:id (owner).
func (h *Handler) Update(c *gin.Context) {
	cl := c.MustGet(ContextClassroom).(*models.Classroom)
	var req struct {
		CourseID   *string `json:"course_id"`
		CourseName *string `json:"course_name"`
		RoomName   *string `json:"room_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if err := h.repo.Update(c.Request.Context(), cl.ID, req.CourseID, req.CourseName, req.RoomName); err != nil {
		response.Internal(c, "failed to update classroom")
		return
	}
	updated, _ := h.repo.GetByID(c.Request.Context(), cl.ID)
	response.OK(c, updated)
}

// Delete handles DELETE /classrooms/:id (owner).
func (h *Handler) Delete(c *gin.Context) {
	cl := c.MustGet(ContextClassroom).(*models.Classroom)
	if err := h.repo.Delete(c.Request.Context(), cl.ID); err != nil {
		response.Internal(c, "failed to delete classroom")
		return
	}
	if h.s3 != nil && cl.ImageKey != "" {
		if err := h.s3.DeleteClassroomImage(c.Request.Context(), cl.ImageKey); err != nil {
			h.logger.Warn("delete classroom image failed", zap.Error(err), zap.String("key", cl.ImageKey))
		}
	}
	response.NoContent(c)
}

// UploadImage handles POST /classrooms/:id/image (owner, multipart form "image").
func (h *Handler) UploadImage(c *gin.Context) {
	cl := c.MustGet(ContextClassroom).(*models.Classroom)
	if h.s3 == nil {
		response.ServiceUnavailable(c, "image storage not configured")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image file required")
		return
	}
	if fileHeader.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "image too large")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateImageFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer file.Close()

	key := storage.ClassroomImageKey(cl.ID.String(), fileHeader.Filename)
	url, err := h.s3.Upload(c.Request.Context(), h.s3.ImagesBucket(), key,
		storage.ContentTypeForFilename(fileHeader.Filename), file, fileHeader.Size)
	if err != nil {
		h.logger.Error("classroom image upload failed", zap.Error(err), zap.String("classroom_id", cl.ID.String()))
		response.Internal(c, "failed to upload image")
		return
	}
	if err := h.repo.SetImageKey(c.Request.Context(), cl.ID, key); err != nil {
		response.Internal(c, "failed to save image reference")
		return
	}
	response.OK(c, gin.H{"image_key": key, "image_url": url})
}

// GetImageURL handles GET /classrooms/:id/image. Returns a presigned download URL.
func (h *Handler) GetImageURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid classroom id")
		return
	}
	cl, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "classroom not found")
		return
	}
	if cl.ImageKey == "" {
		response.NotFound(c, "classroom has no image")
		return
	}
	if h.s3 == nil {
		response.ServiceUnavailable(c, "image storage not configured")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.ImagesBucket(), cl.ImageKey, h.s3.PresignExpire())
	if err != nil {
		response.Internal(c, "failed to generate image url")
		return
	}
	response.OK(c, gin.H{"image_url": url})
}

// Join handles POST /classrooms/:id/join (student enrolls with student number and name).
func (h *Handler) Join(c *gin.Context) {
	classroomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid classroom id")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), classroomID); err != nil {
		response.NotFound(c, "classroom not found")
		return
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	cs := &models.ClassroomStudent{
		ClassroomID: classroomID,
		UserID:      userID,
		StudentNo:   req.StudentNo,
		FullName:    req.FullName,
	}
	if err := h.repo.Join(c.Request.Context(), cs); err != nil {
		h.logger.Error("join classroom failed", zap.Error(err), zap.String("classroom_id", classroomID.String()))
		response.Internal(c, "failed to join classroom")
		return
	}
	response.Created(c, cs)
}

// ListStudents handles GET /classrooms/:id/students (owner).
func (h *Handler) ListStudents(c *gin.Context) {
	cl := c.MustGet(ContextClassroom).(*models.Classroom)
	list, err := h.repo.ListStudents(c.Request.Context(), cl.ID)
	if err != nil {
		response.Internal(c, "failed to list students")
		return
	}
	response.OK(c, list)
}
