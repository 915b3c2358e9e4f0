package paymentintents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("payment intent not found")
	ErrDuplicate = errors.New("payment intent already exists")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

type Kind string

const (
	KindCourse Kind = "course"
	KindExam   Kind = "exam"
)

// Intent is the ledger row created when a checkout is initialised and
// resolved when the gateway confirms (or the sweeper expires) it.
type Intent struct {
	ID          int64      `json:"id"`
	TxRef       string     `json:"tx_ref"`
	Kind        Kind       `json:"kind"`
	CourseID    uuid.UUID  `json:"course_id"`
	ExamID      *uuid.UUID `json:"exam_id,omitempty"`
	UserID      uuid.UUID  `json:"user_id"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Status      Status     `json:"status"`
	CheckoutURL string     `json:"checkout_url"`
	ReceiptNo   *string    `json:"receipt_no,omitempty"`
	GatewayResp any        `json:"gateway_response,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Store interface {
	Create(ctx context.Context, in *Intent) (*Intent, error)
	GetByTxRef(ctx context.Context, txRef string) (*Intent, error)

	// MarkPaid transitions a non-paid intent to paid. It reports false when
	// the intent was already paid, which callers treat as a duplicate delivery.
	MarkPaid(ctx context.Context, id int64, receiptNo string, raw any) (bool, error)
	// MarkFailed transitions a pending intent to failed.
	MarkFailed(ctx context.Context, id int64, raw any) (bool, error)

	List(ctx context.Context, status string, since *time.Time, limit, offset int) ([]*Intent, int, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*Intent, error)
}

type PaymentLog struct {
	ID        int64     `json:"id"`
	IntentID  int64     `json:"intent_id"`
	LogType   string    `json:"log_type"` // request, response, webhook, error
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LogsStore interface {
	InsertPaymentLog(ctx context.Context, intentID int64, logType string, payload any) error
}
