package enrollment

import (
	"time"

	"examhub/internal/domain/courses"
	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/users"
	"examhub/internal/mailer"
)

// ReceiptData is rendered into the payment receipt template.
type ReceiptData struct {
	Name       string
	CourseName string
	CourseCode string
	ExamTitle  string
	Amount     float64
	Currency   string
	ReceiptNo  string
	TxRef      string
	PaidAt     time.Time
}

func (s *Service) sendReceipt(in *paymentintents.Intent, u *users.User, c *courses.Course, e *courses.Exam) {
	if s.mailer == nil || u == nil || c == nil || u.Email == "" {
		return
	}

	data := ReceiptData{
		Name:       u.Name,
		CourseName: c.Name,
		CourseCode: c.Code,
		Amount:     in.Amount,
		Currency:   in.Currency,
		TxRef:      in.TxRef,
		PaidAt:     s.now(),
	}
	if e != nil {
		data.ExamTitle = e.Title
	}
	if in.ReceiptNo != nil {
		data.ReceiptNo = *in.ReceiptNo
	}
	if in.PaidAt != nil {
		data.PaidAt = *in.PaidAt
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		status, err := s.mailer.Send(mailer.PaymentReceiptTemplate, u.Name, u.Email, data)
		if err != nil {
			s.logger.Errorw("receipt email failed", "tx_ref", in.TxRef, "email", u.Email, "err", err)
			return
		}
		s.logger.Infow("receipt email sent", "tx_ref", in.TxRef, "status", status)
	}()
}
