package courses

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("course not found")
)

type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "unpaid"
	StatusPending PaymentStatus = "pending"
	StatusPaid    PaymentStatus = "paid"
	StatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPending, StatusPaid, StatusFailed:
		return true
	}
	return false
}

type ExamPayment struct {
	ExamID        uuid.UUID     `json:"exam_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

// SubscribedStudent is one enrollment entry on the course side.
type SubscribedStudent struct {
	StudentID           uuid.UUID     `json:"student_id"`
	CoursePaymentStatus PaymentStatus `json:"course_payment_status"`
	EnrolledAt          time.Time     `json:"enrolled_at"`
	ExamsPaid           []ExamPayment `json:"exams_paid"`
}

type Course struct {
	ID                 uuid.UUID           `json:"id"`
	ProgramID          uuid.UUID           `json:"program_id"`
	Code               string              `json:"code"`
	Name               string              `json:"name"`
	Price              float64             `json:"price"`
	IsDeleted          bool                `json:"is_deleted"`
	DeletedAt          *time.Time          `json:"deleted_at,omitempty"`
	SubscribedStudents []SubscribedStudent `json:"subscribed_students"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type Exam struct {
	ID        uuid.UUID `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	IsDeleted bool      `json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists courses and the course side of enrollments.
//
// GetByID returns soft-deleted courses too; callers decide what a deleted
// course means for them. ErrNotFound is returned only for missing rows.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Course, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Course, error)
	GetExam(ctx context.Context, id uuid.UUID) (*Exam, error)
	SaveSubscription(ctx context.Context, courseID uuid.UUID, position int, s SubscribedStudent) error
}
