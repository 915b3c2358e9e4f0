package paymentintents

import (
	"context"
	"fmt"

	"examhub/internal/db"
)

type LogsRepository struct{ q db.Querier }

func NewLogsRepository(q db.Querier) *LogsRepository {
	return &LogsRepository{q: q}
}

func (r *LogsRepository) InsertPaymentLog(ctx context.Context, intentID int64, logType string, payload any) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO payment_logs (intent_id, log_type, payload)
		VALUES ($1, $2, $3)
	`, intentID, logType, marshalRaw(payload))
	if err != nil {
		return fmt.Errorf("insert payment_log: %w", err)
	}
	return nil
}
