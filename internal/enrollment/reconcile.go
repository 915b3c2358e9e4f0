package enrollment

import (
	"context"
	"errors"
	"fmt"

	"examhub/internal/domain/courses"
	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/storage"
	"examhub/internal/domain/users"
	"examhub/internal/payments"

	"github.com/google/uuid"
)

// ReconcileResult describes what a delivery did.
type ReconcileResult struct {
	TxRef string
	// AlreadyPaid is set when the purchase was paid before this delivery.
	AlreadyPaid bool
	// Transitioned is set when this delivery moved the purchase to paid.
	Transitioned bool
	Intent       *paymentintents.Intent
	Verification payments.Verification
}

// Reconcile applies a gateway confirmation to the enrollment records. The
// course side, the user side and the intent ledger are written in one
// transaction, and repeated deliveries of the same confirmation are no-ops.
func (s *Service) Reconcile(ctx context.Context, cb Callback) (*ReconcileResult, error) {
	if cb.TxRef == "" {
		return nil, invalid("", MsgMissingReference)
	}
	if cb.CourseID == uuid.Nil || cb.UserID == uuid.Nil {
		return nil, invalid("", MsgMissingMetadata)
	}

	v, err := s.verifier.Verify(ctx, payments.Delivery{
		Method:  cb.Method,
		TxRef:   cb.TxRef,
		Status:  cb.Status,
		Payload: cb.Payload,
	})
	if err != nil {
		v = payments.Verification{Reason: err.Error()}
	}
	if !v.Verified {
		s.rejectUnverified(ctx, cb, v)
		reason := v.Reason
		if reason == "" {
			reason = MsgNotVerified
		}
		return nil, &VerificationFailedError{TxRef: cb.TxRef, Reason: reason, Response: v.Response}
	}

	out := &ReconcileResult{TxRef: cb.TxRef, Verification: v}
	var (
		intentID   int64
		paidUser   *users.User
		paidCourse *courses.Course
		paidExam   *courses.Exam
	)

	err = s.inTx(ctx, "apply payment", func(tx storage.Repos) error {
		intent, err := tx.Intents.GetByTxRef(ctx, cb.TxRef)
		switch {
		case errors.Is(err, paymentintents.ErrNotFound):
			intent = nil
		case err != nil:
			return err
		}
		if intent != nil {
			intentID = intent.ID
			if err := matchIntent(intent, &cb); err != nil {
				return err
			}
			if intent.Status == paymentintents.StatusPaid {
				out.AlreadyPaid = true
				out.Intent = intent
				return nil
			}
		}

		c, err := tx.Courses.GetForUpdate(ctx, cb.CourseID)
		if errors.Is(err, courses.ErrNotFound) || (err == nil && c.IsDeleted) {
			return fmt.Errorf("course: %w", ErrNotFound)
		}
		if err != nil {
			return err
		}

		u, err := tx.Users.GetByID(ctx, cb.UserID)
		if errors.Is(err, users.ErrNotFound) || (err == nil && u.IsDeleted) {
			return fmt.Errorf("user: %w", ErrNotFound)
		}
		if err != nil {
			return err
		}

		var e *courses.Exam
		if cb.ExamID != nil {
			e, err = tx.Courses.GetExam(ctx, *cb.ExamID)
			if errors.Is(err, courses.ErrNotFound) || (err == nil && (e.IsDeleted || e.CourseID != c.ID)) {
				return fmt.Errorf("exam: %w", ErrNotFound)
			}
			if err != nil {
				return err
			}
		}

		now := s.now()
		wasPaid := false
		if i := c.FindStudent(u.ID); i >= 0 {
			if e != nil {
				wasPaid = c.SubscribedStudents[i].ExamPaid(e.ID)
			} else {
				wasPaid = c.SubscribedStudents[i].CoursePaymentStatus == courses.StatusPaid
			}
		}

		// course side: find-and-merge or append
		patch := courses.SubscriptionPatch{EnrolledAt: now}
		if e != nil {
			patch.Exam = &courses.ExamPayment{ExamID: e.ID, PaymentStatus: courses.StatusPaid, PaidAt: &now}
		} else {
			patch.Status = courses.StatusPaid
		}
		idx, _ := c.ApplySubscription(u.ID, patch)
		entry := c.SubscribedStudents[idx]
		if err := tx.Courses.SaveSubscription(ctx, c.ID, idx, entry); err != nil {
			return err
		}

		// user side: containment check on the course id; exam purchases also
		// mirror the exam record
		if j := u.FindCourse(c.ID); j < 0 {
			sub := users.SubscribedCourse{
				CourseID:      c.ID,
				PaymentStatus: entry.CoursePaymentStatus,
				SubscribedAt:  now,
				ExamsPaid:     []courses.ExamPayment{},
			}
			if patch.Exam != nil {
				sub.ExamsPaid = append(sub.ExamsPaid, *patch.Exam)
			}
			if err := tx.Users.SaveSubscription(ctx, u.ID, len(u.SubscribedCourses), sub); err != nil {
				return err
			}
		} else if patch.Exam != nil && !courses.ExamPaidIn(u.SubscribedCourses[j].ExamsPaid, e.ID) {
			sub := u.SubscribedCourses[j]
			sub.ExamsPaid = courses.MergeExamPayment(sub.ExamsPaid, *patch.Exam)
			if err := tx.Users.SaveSubscription(ctx, u.ID, j, sub); err != nil {
				return err
			}
		}

		if intent == nil {
			out.AlreadyPaid = wasPaid
			out.Transitioned = !wasPaid
			return nil
		}

		receiptNo, err := s.receipts.Number(intent.ID)
		if err != nil {
			return err
		}
		changed, err := tx.Intents.MarkPaid(ctx, intent.ID, receiptNo, v.Response)
		if err != nil {
			return err
		}
		out.Transitioned = changed
		if out.Intent, err = tx.Intents.GetByTxRef(ctx, cb.TxRef); err != nil {
			return err
		}
		paidUser, paidCourse, paidExam = u, c, e
		return nil
	})
	if err != nil {
		s.logger.Warnw("reconcile failed", "tx_ref", cb.TxRef, "course_id", cb.CourseID, "user_id", cb.UserID, "err", err)
		s.audit(ctx, intentID, "error", map[string]any{"error": err.Error()})
		return nil, err
	}

	s.audit(ctx, intentID, "webhook", cb.Payload)
	s.logger.Infow("payment reconciled",
		"tx_ref", cb.TxRef,
		"course_id", cb.CourseID,
		"user_id", cb.UserID,
		"already_paid", out.AlreadyPaid,
		"transitioned", out.Transitioned,
		"trusted", v.Trusted,
	)

	if out.Transitioned && out.Intent != nil {
		s.sendReceipt(out.Intent, paidUser, paidCourse, paidExam)
	}
	return out, nil
}

// matchIntent checks the echoed metadata against the ledger row and fills in
// the exam id when the gateway dropped it.
func matchIntent(in *paymentintents.Intent, cb *Callback) error {
	if in.CourseID != cb.CourseID || in.UserID != cb.UserID {
		return invalid("metadata", "transaction reference does not match metadata")
	}
	switch {
	case in.ExamID == nil && cb.ExamID != nil:
		return invalid("metadata.examId", "transaction reference does not match metadata")
	case in.ExamID != nil && cb.ExamID == nil:
		id := *in.ExamID
		cb.ExamID = &id
	case in.ExamID != nil && *in.ExamID != *cb.ExamID:
		return invalid("metadata.examId", "transaction reference does not match metadata")
	}
	return nil
}

// rejectUnverified records the failed delivery. A pending intent the gateway
// reports as failed is closed; enrollment records are never touched here.
func (s *Service) rejectUnverified(ctx context.Context, cb Callback, v payments.Verification) {
	s.logger.Warnw("payment not verified", "tx_ref", cb.TxRef, "method", cb.Method, "status", v.Status, "reason", v.Reason)

	repos := s.store.Repositories()
	intent, err := repos.Intents.GetByTxRef(ctx, cb.TxRef)
	if err != nil {
		return
	}
	s.audit(ctx, intent.ID, "webhook", cb.Payload)
	if v.Status != "failed" {
		return
	}
	if _, err := repos.Intents.MarkFailed(ctx, intent.ID, v.Response); err != nil {
		s.logger.Warnw("mark intent failed", "tx_ref", cb.TxRef, "err", err)
	}
}
