package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"examhub/internal/domain/courses"
	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/storage"
	"examhub/internal/domain/users"
	"examhub/internal/payments"

	"github.com/google/uuid"
)

// Checkout is what the client needs to send the student to the gateway.
type Checkout struct {
	TxRef       string `json:"tx_ref"`
	CheckoutURL string `json:"checkout_url"`
}

// InitiateCourse starts a full-course purchase for userID.
func (s *Service) InitiateCourse(ctx context.Context, userID uuid.UUID, courseID string) (*Checkout, error) {
	cid, err := uuid.Parse(courseID)
	if err != nil {
		return nil, invalid("courseId", "invalid course id")
	}

	u, c, err := s.loadBuyer(ctx, userID, cid)
	if err != nil {
		return nil, err
	}

	req, err := s.builder.BuildCourseRequest(u, c)
	if err != nil {
		return nil, err
	}
	return s.checkout(ctx, paymentintents.KindCourse, u, c, nil, req)
}

// InitiateExam starts a single-exam purchase inside a course.
func (s *Service) InitiateExam(ctx context.Context, userID uuid.UUID, courseID, examID string) (*Checkout, error) {
	cid, err := uuid.Parse(courseID)
	if err != nil {
		return nil, invalid("courseId", "invalid course id")
	}
	eid, err := uuid.Parse(examID)
	if err != nil {
		return nil, invalid("examId", "invalid exam id")
	}

	u, c, err := s.loadBuyer(ctx, userID, cid)
	if err != nil {
		return nil, err
	}

	e, err := s.store.Repositories().Courses.GetExam(ctx, eid)
	switch {
	case errors.Is(err, courses.ErrNotFound):
		return nil, fmt.Errorf("exam: %w", ErrNotFound)
	case err != nil:
		return nil, persistence("load exam", err)
	}

	req, err := s.builder.BuildExamRequest(u, c, e)
	if err != nil {
		return nil, err
	}
	return s.checkout(ctx, paymentintents.KindExam, u, c, e, req)
}

func (s *Service) loadBuyer(ctx context.Context, userID, courseID uuid.UUID) (*users.User, *courses.Course, error) {
	if userID == uuid.Nil {
		return nil, nil, ErrUnauthenticated
	}
	repos := s.store.Repositories()

	u, err := repos.Users.GetByID(ctx, userID)
	switch {
	case errors.Is(err, users.ErrNotFound):
		return nil, nil, ErrUnauthenticated
	case err != nil:
		return nil, nil, persistence("load user", err)
	}

	c, err := repos.Courses.GetByID(ctx, courseID)
	switch {
	case errors.Is(err, courses.ErrNotFound):
		return nil, nil, fmt.Errorf("course: %w", ErrNotFound)
	case err != nil:
		return nil, nil, persistence("load course", err)
	}
	return u, c, nil
}

func (s *Service) checkout(ctx context.Context, kind paymentintents.Kind, u *users.User, c *courses.Course, e *courses.Exam, req payments.InitializeRequest) (*Checkout, error) {
	s.logger.Infow("initializing payment", "tx_ref", req.TxRef, "kind", kind, "course_id", c.ID, "user_id", u.ID, "amount", req.Amount)

	res, err := s.gateway.Initialize(ctx, req)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		s.logger.Warnw("gateway rejected initialize", "tx_ref", req.TxRef, "http_status", res.HTTPStatus, "message", string(res.Message))
		return nil, &GatewayRejectedError{HTTPStatus: res.HTTPStatus, Message: res.Message, Response: res.Raw}
	}

	var intent *paymentintents.Intent
	err = s.inTx(ctx, "record payment intent", func(tx storage.Repos) error {
		locked, err := tx.Courses.GetForUpdate(ctx, c.ID)
		if errors.Is(err, courses.ErrNotFound) {
			return fmt.Errorf("course: %w", ErrNotFound)
		}
		if err != nil {
			return err
		}
		// a webhook may have landed between the read and the lock
		if kind == paymentintents.KindCourse && locked.HasPaidStudent(u.ID) {
			return ErrDuplicatePurchase
		}

		in := &paymentintents.Intent{
			TxRef:       req.TxRef,
			Kind:        kind,
			CourseID:    c.ID,
			UserID:      u.ID,
			Amount:      float64(req.Amount),
			Currency:    req.Currency,
			Status:      paymentintents.StatusPending,
			CheckoutURL: res.CheckoutURL(),
			GatewayResp: res.Raw,
		}
		if e != nil {
			in.ExamID = &e.ID
		}
		if intent, err = tx.Intents.Create(ctx, in); err != nil {
			return err
		}

		patch, ok := pendingPatch(locked, u.ID, e, s.now())
		if !ok {
			return nil
		}
		idx, _ := locked.ApplySubscription(u.ID, patch)
		return tx.Courses.SaveSubscription(ctx, c.ID, idx, locked.SubscribedStudents[idx])
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, intent.ID, "request", req)
	s.audit(ctx, intent.ID, "response", res.Raw)
	s.logger.Infow("payment initialized", "tx_ref", intent.TxRef, "intent_id", intent.ID)

	return &Checkout{TxRef: intent.TxRef, CheckoutURL: intent.CheckoutURL}, nil
}

// pendingPatch marks the purchase as in flight on the course side. Entries
// that are already pending or paid are left alone; the user side is only
// written once the payment is confirmed.
func pendingPatch(c *courses.Course, studentID uuid.UUID, e *courses.Exam, now time.Time) (courses.SubscriptionPatch, bool) {
	i := c.FindStudent(studentID)

	if e != nil {
		if i >= 0 && c.SubscribedStudents[i].ExamPaid(e.ID) {
			return courses.SubscriptionPatch{}, false
		}
		return courses.SubscriptionPatch{
			EnrolledAt: now,
			Exam:       &courses.ExamPayment{ExamID: e.ID, PaymentStatus: courses.StatusPending},
		}, true
	}

	if i >= 0 {
		switch c.SubscribedStudents[i].CoursePaymentStatus {
		case courses.StatusPending, courses.StatusPaid:
			return courses.SubscriptionPatch{}, false
		}
	}
	return courses.SubscriptionPatch{Status: courses.StatusPending, EnrolledAt: now}, true
}
