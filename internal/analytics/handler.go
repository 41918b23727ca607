package analytics

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/classrooms"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/pkg/response"
)

// Handler handles GET /classrooms/:id/analytics.
type Handler struct {
	pool          *pgxpool.Pool
	classroomRepo *classrooms.Repository
}

// NewHandler creates an analytics handler.
func NewHandler(pool *pgxpool.Pool, classroomRepo *classrooms.Repository) *Handler {
	return &Handler{pool: pool, classroomRepo: classroomRepo}
}

// SummaryResponse is the JSON shape for classroom analytics.
type SummaryResponse struct {
	SessionsHeld               int      `json:"sessions_held"`
	EnrolledStudents           int      `json:"enrolled_students"`
	TotalCheckins              int      `json:"total_checkins"`
	AvgAttendancePercent       float64  `json:"avg_attendance_percent"`
	AvgScore                   *float64 `json:"avg_score,omitempty"`
	LateCheckins               int      `json:"late_checkins"`
	PeakParticipants           int      `json:"peak_participants"`
	QuestionsAsked             int      `json:"questions_asked"`
	AnswerParticipationPercent float64  `json:"answer_participation_percent"`
}

// GetByClassroom handles GET /classrooms/:id/analytics. Owner access is
// enforced by route middleware.
func (h *Handler) GetByClassroom(c *gin.Context) {
	cl := c.MustGet(classrooms.ContextClassroom).(*models.Classroom)
	ctx := c.Request.Context()

	enrolled, err := h.classroomRepo.CountStudents(ctx, cl.ID)
	if err != nil {
		response.Internal(c, "failed to count students")
		return
	}

	var sessionsHeld, peak int
	const sessQ = `SELECT COUNT(*), COALESCE(MAX(peak_participants), 0)
		FROM checkin_sessions WHERE classroom_id = $1`
	if err := h.pool.QueryRow(ctx, sessQ, cl.ID).Scan(&sessionsHeld, &peak); err != nil {
		response.Internal(c, "failed to count sessions")
		return
	}

	var totalCheckins, lateCheckins int
	var avgScore *float64
	const rosterQ = `SELECT COUNT(*) FILTER (WHERE r.status <> $2),
			COUNT(*) FILTER (WHERE r.status = $3),
			AVG(r.score)::FLOAT8
		FROM roster_entries r
		INNER JOIN checkin_sessions s ON s.id = r.session_id
		WHERE s.classroom_id = $1`
	if err := h.pool.QueryRow(ctx, rosterQ, cl.ID, models.StatusAbsent, models.StatusLate).
		Scan(&totalCheckins, &lateCheckins, &avgScore); err != nil {
		response.Internal(c, "failed to aggregate roster")
		return
	}

	var questionsAsked, answerUsers int
	const qaQ = `SELECT COUNT(DISTINCT q.id), COUNT(DISTINCT a.user_id)
		FROM questions q
		INNER JOIN checkin_sessions s ON s.id = q.session_id
		LEFT JOIN answers a ON a.question_id = q.id
		WHERE s.classroom_id = $1`
	if err := h.pool.QueryRow(ctx, qaQ, cl.ID).Scan(&questionsAsked, &answerUsers); err != nil {
		response.Internal(c, "failed to aggregate questions")
		return
	}

	attendancePercent := 0.0
	if sessionsHeld > 0 && enrolled > 0 {
		attendancePercent = float64(totalCheckins) / float64(sessionsHeld*enrolled) * 100
	}
	answerPercent := 0.0
	if enrolled > 0 {
		answerPercent = float64(answerUsers) / float64(enrolled) * 100
	}

	response.OK(c, SummaryResponse{
		SessionsHeld:               sessionsHeld,
		EnrolledStudents:           enrolled,
		TotalCheckins:              totalCheckins,
		AvgAttendancePercent:       attendancePercent,
		AvgScore:                   avgScore,
		LateCheckins:               lateCheckins,
		PeakParticipants:           peak,
		QuestionsAsked:             questionsAsked,
		AnswerParticipationPercent: answerPercent,
	})
}
