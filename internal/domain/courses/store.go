package courses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"examhub/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository struct{ q db.Querier }

func NewRepository(q db.Querier) *Repository { return &Repository{q: q} }

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Course, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the course row until the surrounding transaction ends,
// serialising concurrent enrollment writes for the same course.
func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Course, error) {
	return r.get(ctx, id, true)
}

func (r *Repository) get(ctx context.Context, id uuid.UUID, lock bool) (*Course, error) {
	query := `
		SELECT id, program_id, code, name, price, is_deleted, deleted_at, created_at, updated_at
		FROM courses WHERE id = $1
	`
	if lock {
		query += ` FOR UPDATE`
	}

	var (
		c         Course
		programID uuid.NullUUID
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &programID, &c.Code, &c.Name, &c.Price, &c.IsDeleted, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	if programID.Valid {
		c.ProgramID = programID.UUID
	}

	subs, err := r.subscriptions(ctx, id)
	if err != nil {
		return nil, err
	}
	c.SubscribedStudents = subs
	return &c, nil
}

func (r *Repository) subscriptions(ctx context.Context, courseID uuid.UUID) ([]SubscribedStudent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT student_id, course_payment_status, enrolled_at, exams_paid
		FROM course_subscriptions
		WHERE course_id = $1
		ORDER BY position ASC
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course subscriptions: %w", err)
	}
	defer rows.Close()

	out := []SubscribedStudent{}
	for rows.Next() {
		var (
			s     SubscribedStudent
			exams []byte
		)
		if err := rows.Scan(&s.StudentID, &s.CoursePaymentStatus, &s.EnrolledAt, &exams); err != nil {
			return nil, fmt.Errorf("scan course subscription: %w", err)
		}
		s.ExamsPaid = []ExamPayment{}
		if len(exams) > 0 {
			if err := json.Unmarshal(exams, &s.ExamsPaid); err != nil {
				return nil, fmt.Errorf("decode exams_paid: %w", err)
			}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetExam(ctx context.Context, id uuid.UUID) (*Exam, error) {
	var e Exam
	err := r.q.QueryRow(ctx, `
		SELECT id, course_id, title, price, is_deleted, created_at
		FROM exams WHERE id = $1
	`, id).Scan(&e.ID, &e.CourseID, &e.Title, &e.Price, &e.IsDeleted, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return &e, nil
}

// SaveSubscription upserts one enrollment entry. The (course_id, student_id)
// primary key keeps a single entry per student even under concurrent writers.
func (r *Repository) SaveSubscription(ctx context.Context, courseID uuid.UUID, position int, s SubscribedStudent) error {
	exams := s.ExamsPaid
	if exams == nil {
		exams = []ExamPayment{}
	}
	jb, err := json.Marshal(exams)
	if err != nil {
		return fmt.Errorf("encode exams_paid: %w", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO course_subscriptions
			(course_id, student_id, position, course_payment_status, enrolled_at, exams_paid)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (course_id, student_id) DO UPDATE
		   SET course_payment_status = EXCLUDED.course_payment_status,
		       enrolled_at           = EXCLUDED.enrolled_at,
		       exams_paid            = EXCLUDED.exams_paid,
		       updated_at            = now()
	`, courseID, s.StudentID, position, string(s.CoursePaymentStatus), s.EnrolledAt, jb)
	if err != nil {
		return fmt.Errorf("save course subscription: %w", err)
	}

	_, err = r.q.Exec(ctx, `UPDATE courses SET updated_at = now() WHERE id = $1`, courseID)
	if err != nil {
		return fmt.Errorf("touch course: %w", err)
	}
	return nil
}
