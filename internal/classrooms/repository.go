package classrooms

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/models"
)

// Repository handles classroom persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a classroom repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new classroom.
func (r *Repository) Create(ctx context.Context, cl *models.Classroom) error {
	const q = `INSERT INTO classrooms (id, course_id, course_name, room_name, image_key, owner_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, cl.CourseID, cl.CourseName, cl.RoomName, cl.ImageKey, cl.OwnerID).
		Scan(&cl.ID, &cl.CreatedAt, &cl.UpdatedAt)
}

// GetByID returns a classroom by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Classroom, error) {
	const q = `SELECT id, course_id, course_name, room_name, image_key, owner_id, created_at, updated_at
		FROM classrooms WHERE id = $1`
	var cl models.Classroom
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&cl.ID, &cl.CourseID, &cl.CourseName, &cl.RoomName, &cl.ImageKey, &cl.OwnerID, &cl.CreatedAt, &cl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

// ListOwned returns classrooms owned by a teacher, newest first.
func (r *Repository) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]models.Classroom, error) {
	const q = `SELECT id, course_id, course_name, room_name, image_key, owner_id, created_at, updated_at
		FROM classrooms WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.scanList(ctx, q, ownerID)
}

// ListJoined returns classrooms a student has joined plus any they own.
func (r *Repository) ListJoined(ctx context.Context, userID uuid.UUID) ([]models.Classroom, error) {
	const q = `SELECT c.id, c.course_id, c.course_name, c.room_name, c.image_key, c.owner_id, c.created_at, c.updated_at
		FROM classrooms c
		LEFT JOIN classroom_students cs ON cs.classroom_id = c.id AND cs.user_id = $1
		WHERE c.owner_id = $1 OR cs.user_id IS NOT NULL
		ORDER BY c.created_at DESC`
	return r.scanList(ctx, q, userID)
}

func (r *Repository) scanList(ctx context.Context, q string, args ...interface{}) ([]models.Classroom, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Classroom
	for rows.Next() {
		var cl models.Classroom
		if err := rows.Scan(&cl.ID, &cl.CourseID, &cl.CourseName, &cl.RoomName, &cl.ImageKey, &cl.OwnerID, &cl.CreatedAt, &cl.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, cl)
	}
	return list, rows.Err()
}

// Update updates classroom fields. Nil pointers leave the stored value unchanged.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, courseID, courseName, roomName *string) error {
	const q = `UPDATE classrooms SET
		course_id = COALESCE($1, course_id),
		course_name = COALESCE($2, course_name),
		room_name = COALESCE($3, room_name),
		updated_at = NOW()
		WHERE id = $4`
	_, err := r.pool.Exec(ctx, q, courseID, courseName, roomName, id)
	return err
}

// SetImageKey stores the S3 object key of the classroom cover image.
func (r *Repository) SetImageKey(ctx context.Context, id uuid.UUID, key string) error {
	const q = `UPDATE classrooms SET image_key = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, key, id)
	return err
}

// Delete removes a classroom by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM classrooms WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// Join enrolls a student in a classroom. Re-joining updates the stored
// student number and name instead of duplicating the row.
func (r *Repository) Join(ctx context.Context, cs *models.ClassroomStudent) error {
	const q = `INSERT INTO classroom_students (classroom_id, user_id, student_no, full_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (classroom_id, user_id) DO UPDATE SET student_no = EXCLUDED.student_no, full_name = EXCLUDED.full_name
		RETURNING joined_at`
	return r.pool.QueryRow(ctx, q, cs.ClassroomID, cs.UserID, cs.StudentNo, cs.FullName).
		Scan(&cs.JoinedAt)
}

// GetStudent returns one enrollment row, or pgx.ErrNoRows.
func (r *Repository) GetStudent(ctx context.Context, classroomID, userID uuid.UUID) (*models.ClassroomStudent, error) {
	const q = `SELECT classroom_id, user_id, student_no, full_name, joined_at
		FROM classroom_students WHERE classroom_id = $1 AND user_id = $2`
	var cs models.ClassroomStudent
	err := r.pool.QueryRow(ctx, q, classroomID, userID).
		Scan(&cs.ClassroomID, &cs.UserID, &cs.StudentNo, &cs.FullName, &cs.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// ListStudents returns all enrolled students for a classroom.
func (r *Repository) ListStudents(ctx context.Context, classroomID uuid.UUID) ([]models.ClassroomStudent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT classroom_id, user_id, student_no, full_name, joined_at
		 FROM classroom_students WHERE classroom_id = $1 ORDER BY student_no`, classroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ClassroomStudent
	for rows.Next() {
		var cs models.ClassroomStudent
		if err := rows.Scan(&cs.ClassroomID, &cs.UserID, &cs.StudentNo, &cs.FullName, &cs.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, cs)
	}
	return list, rows.Err()
}

// CountStudents returns the number of enrolled students.
func (r *Repository) CountStudents(ctx context.Context, classroomID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM classroom_students WHERE classroom_id = $1`, classroomID).Scan(&n)
	return n, err
}
