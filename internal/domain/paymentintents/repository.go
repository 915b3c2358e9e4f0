package paymentintents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"examhub/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository struct{ q db.Querier }

func NewRepository(q db.Querier) *Repository { return &Repository{q: q} }

const intentColumns = `
	id, tx_ref, kind, course_id, exam_id, user_id, amount, currency, status,
	checkout_url, receipt_no, gateway_response, paid_at, created_at, updated_at
`

func scanIntent(row pgx.Row, extra ...any) (*Intent, error) {
	var (
		p      Intent
		examID uuid.NullUUID
		raw    []byte
	)
	dest := []any{
		&p.ID, &p.TxRef, &p.Kind, &p.CourseID, &examID, &p.UserID, &p.Amount, &p.Currency, &p.Status,
		&p.CheckoutURL, &p.ReceiptNo, &raw, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if examID.Valid {
		id := examID.UUID
		p.ExamID = &id
	}
	if len(raw) > 0 {
		p.GatewayResp = json.RawMessage(raw)
	}
	return &p, nil
}

// marshalRaw returns nil for anything empty so COALESCE keeps the stored
// gateway response. A nil json.RawMessage inside an interface is not == nil.
func marshalRaw(raw any) []byte {
	var b []byte
	switch v := raw.(type) {
	case nil:
		return nil
	case json.RawMessage:
		b = v
	case []byte:
		b = v
	default:
		var err error
		if b, err = json.Marshal(v); err != nil {
			return nil
		}
	}
	if len(b) == 0 || string(b) == "null" || !json.Valid(b) {
		return nil
	}
	return b
}

// HasPayload reports whether raw carries a gateway payload worth storing.
func HasPayload(raw any) bool { return marshalRaw(raw) != nil }

func (r *Repository) Create(ctx context.Context, in *Intent) (*Intent, error) {
	var examID uuid.NullUUID
	if in.ExamID != nil {
		examID = uuid.NullUUID{UUID: *in.ExamID, Valid: true}
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO payment_intents
			(tx_ref, kind, course_id, exam_id, user_id, amount, currency, status, checkout_url, gateway_response)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE(NULLIF($7, ''), 'ETB'), $8, $9, $10)
		RETURNING id, currency, status, created_at, updated_at
	`, in.TxRef, string(in.Kind), in.CourseID, examID, in.UserID, in.Amount, in.Currency,
		string(status), in.CheckoutURL, marshalRaw(in.GatewayResp)).
		Scan(&in.ID, &in.Currency, &in.Status, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return in, nil
}

func (r *Repository) GetByTxRef(ctx context.Context, txRef string) (*Intent, error) {
	p, err := scanIntent(r.q.QueryRow(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE tx_ref = $1
	`, txRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment intent by tx_ref: %w", err)
	}
	return p, nil
}

func (r *Repository) MarkPaid(ctx context.Context, id int64, receiptNo string, raw any) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE payment_intents
		   SET status = 'paid',
		       receipt_no = $2,
		       gateway_response = COALESCE($3, gateway_response),
		       paid_at = now(),
		       updated_at = now()
		 WHERE id = $1 AND status <> 'paid'
	`, id, receiptNo, marshalRaw(raw))
	if err != nil {
		return false, fmt.Errorf("mark payment intent paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) MarkFailed(ctx context.Context, id int64, raw any) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE payment_intents
		   SET status = 'failed',
		       gateway_response = COALESCE($2, gateway_response),
		       updated_at = now()
		 WHERE id = $1 AND status = 'pending'
	`, id, marshalRaw(raw))
	if err != nil {
		return false, fmt.Errorf("mark payment intent failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns intents with optional filters:
// - status: "" means no status filter
// - since: nil means no time filter, else created_at >= *since
// The total count is returned for pagination.
func (r *Repository) List(ctx context.Context, status string, since *time.Time, limit, offset int) ([]*Intent, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
SELECT `+intentColumns+`, COUNT(*) OVER() AS total_count
FROM payment_intents
WHERE
  ($1 = '' OR status = $1)
  AND ($2::timestamptz IS NULL OR created_at >= $2::timestamptz)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`, status, since, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payment intents: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Intent
		total int
	)
	for rows.Next() {
		var t int
		p, err := scanIntent(rows, &t)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payment intent: %w", err)
		}
		if total == 0 {
			total = t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return out, total, nil
}

func (r *Repository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*Intent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale payment intents: %w", err)
	}
	defer rows.Close()

	var out []*Intent
	for rows.Next() {
		p, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment intent: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
