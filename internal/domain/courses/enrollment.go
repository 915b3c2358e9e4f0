package courses

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionPatch is merged into an enrollment entry. Zero fields keep the
// value already stored on the entry.
type SubscriptionPatch struct {
	Status     PaymentStatus
	EnrolledAt time.Time
	Exam       *ExamPayment
}

// FindStudent returns the index of the student's entry, or -1.
func (c *Course) FindStudent(studentID uuid.UUID) int {
	for i := range c.SubscribedStudents {
		if c.SubscribedStudents[i].StudentID == studentID {
			return i
		}
	}
	return -1
}

// HasPaidStudent reports whether the student holds a paid entry.
func (c *Course) HasPaidStudent(studentID uuid.UUID) bool {
	i := c.FindStudent(studentID)
	return i >= 0 && c.SubscribedStudents[i].CoursePaymentStatus == StatusPaid
}

// ApplySubscription merges p into the student's entry, appending a new entry
// when the student has none. The returned index is the entry's position.
// Applying the same patch twice leaves the course unchanged after the first
// call, which is what makes repeated webhook deliveries harmless.
func (c *Course) ApplySubscription(studentID uuid.UUID, p SubscriptionPatch) (idx int, created bool) {
	idx = c.FindStudent(studentID)
	if idx < 0 {
		entry := SubscribedStudent{
			StudentID:           studentID,
			CoursePaymentStatus: StatusUnpaid,
			EnrolledAt:          p.EnrolledAt,
			ExamsPaid:           []ExamPayment{},
		}
		if p.Status != "" {
			entry.CoursePaymentStatus = p.Status
		}
		if p.Exam != nil {
			entry.ExamsPaid = MergeExamPayment(entry.ExamsPaid, *p.Exam)
		}
		c.SubscribedStudents = append(c.SubscribedStudents, entry)
		return len(c.SubscribedStudents) - 1, true
	}

	entry := &c.SubscribedStudents[idx]
	if p.Status != "" {
		entry.CoursePaymentStatus = p.Status
	}
	if entry.EnrolledAt.IsZero() && !p.EnrolledAt.IsZero() {
		entry.EnrolledAt = p.EnrolledAt
	}
	if entry.ExamsPaid == nil {
		entry.ExamsPaid = []ExamPayment{}
	}
	if p.Exam != nil {
		entry.ExamsPaid = MergeExamPayment(entry.ExamsPaid, *p.Exam)
	}
	return idx, false
}

// ExamPaid reports whether the student's entry has a paid record for examID.
func (s SubscribedStudent) ExamPaid(examID uuid.UUID) bool {
	return ExamPaidIn(s.ExamsPaid, examID)
}

// MergeExamPayment replaces the record for e.ExamID or appends it.
// A paid record is never downgraded and keeps its original PaidAt.
func MergeExamPayment(list []ExamPayment, e ExamPayment) []ExamPayment {
	for i := range list {
		if list[i].ExamID != e.ExamID {
			continue
		}
		if list[i].PaymentStatus == StatusPaid {
			return list
		}
		list[i].PaymentStatus = e.PaymentStatus
		if e.PaidAt != nil {
			list[i].PaidAt = e.PaidAt
		}
		return list
	}
	return append(list, e)
}

func ExamPaidIn(list []ExamPayment, examID uuid.UUID) bool {
	for _, e := range list {
		if e.ExamID == examID && e.PaymentStatus == StatusPaid {
			return true
		}
	}
	return false
}
