package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"examhub/internal/db"
	"examhub/internal/domain/courses"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository struct {
	q db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

func (r *Repository) GetByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	query := `
		SELECT
			id,
			name,
			email,
			role,
			is_deleted,
			created_at,
			updated_at
		FROM users
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}

	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.IsDeleted,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT course_id, payment_status, subscribed_at, exams_paid
		FROM user_subscriptions
		WHERE user_id = $1
		ORDER BY position ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user subscriptions: %w", err)
	}
	defer rows.Close()

	user.SubscribedCourses = []SubscribedCourse{}
	for rows.Next() {
		var (
			sc    SubscribedCourse
			exams []byte
		)
		if err := rows.Scan(&sc.CourseID, &sc.PaymentStatus, &sc.SubscribedAt, &exams); err != nil {
			return nil, fmt.Errorf("scan user subscription: %w", err)
		}
		sc.ExamsPaid = []courses.ExamPayment{}
		if len(exams) > 0 {
			if err := json.Unmarshal(exams, &sc.ExamsPaid); err != nil {
				return nil, fmt.Errorf("decode exams_paid: %w", err)
			}
		}
		user.SubscribedCourses = append(user.SubscribedCourses, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return user, nil
}

// SaveSubscription upserts the user-side mirror of an enrollment entry.
func (r *Repository) SaveSubscription(ctx context.Context, userID uuid.UUID, position int, s SubscribedCourse) error {
	exams := s.ExamsPaid
	if exams == nil {
		exams = []courses.ExamPayment{}
	}
	jb, err := json.Marshal(exams)
	if err != nil {
		return fmt.Errorf("encode exams_paid: %w", err)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO user_subscriptions (user_id, course_id, position, payment_status, subscribed_at, exams_paid)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, course_id) DO UPDATE
		   SET payment_status = EXCLUDED.payment_status,
		       exams_paid     = EXCLUDED.exams_paid
	`, userID, s.CourseID, position, string(s.PaymentStatus), s.SubscribedAt, jb)
	if err != nil {
		return fmt.Errorf("save user subscription: %w", err)
	}

	_, err = r.q.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, userID)
	return err
}
