package users

import (
	"context"
	"errors"
	"time"

	"examhub/internal/domain/courses"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("user not found")
	QueryTimeoutDuration = time.Second * 5
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
)

// SubscribedCourse mirrors a course-side enrollment entry for fast
// student-side lookups.
type SubscribedCourse struct {
	CourseID      uuid.UUID             `json:"course_id"`
	PaymentStatus courses.PaymentStatus `json:"payment_status"`
	SubscribedAt  time.Time             `json:"subscribed_at"`
	ExamsPaid     []courses.ExamPayment `json:"exams_paid"`
}

type User struct {
	ID                uuid.UUID          `json:"id"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	Role              Role               `json:"role"`
	IsDeleted         bool               `json:"is_deleted"`
	SubscribedCourses []SubscribedCourse `json:"subscribed_courses"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// IsPayer reports whether the user's role is allowed to buy courses.
func (u *User) IsPayer() bool {
	return u.Role == RoleStudent
}

// FindCourse returns the index of courseID in SubscribedCourses, or -1.
func (u *User) FindCourse(courseID uuid.UUID) int {
	for i := range u.SubscribedCourses {
		if u.SubscribedCourses[i].CourseID == courseID {
			return i
		}
	}
	return -1
}

func (u *User) HasCourse(courseID uuid.UUID) bool {
	return u.FindCourse(courseID) >= 0
}

type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	SaveSubscription(ctx context.Context, userID uuid.UUID, position int, s SubscribedCourse) error
}
