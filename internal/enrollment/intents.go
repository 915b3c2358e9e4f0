package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"examhub/internal/domain/courses"
	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/storage"

	"github.com/google/uuid"
)

const sweepBatch = 100

// GetIntent returns the intent for txRef. Non-admins only see their own.
func (s *Service) GetIntent(ctx context.Context, txRef string, requester uuid.UUID, isAdmin bool) (*paymentintents.Intent, error) {
	if txRef == "" {
		return nil, invalid("txRef", MsgMissingReference)
	}
	in, err := s.store.Repositories().Intents.GetByTxRef(ctx, txRef)
	switch {
	case errors.Is(err, paymentintents.ErrNotFound):
		return nil, fmt.Errorf("payment intent: %w", ErrNotFound)
	case err != nil:
		return nil, persistence("load payment intent", err)
	}
	if !isAdmin && in.UserID != requester {
		return nil, fmt.Errorf("payment intent: %w", ErrNotFound)
	}
	return in, nil
}

func (s *Service) ListIntents(ctx context.Context, status string, since *time.Time, limit, offset int) ([]*paymentintents.Intent, int, error) {
	switch paymentintents.Status(status) {
	case "", paymentintents.StatusPending, paymentintents.StatusPaid, paymentintents.StatusFailed:
	default:
		return nil, 0, invalid("status", "must be one of pending, paid, failed")
	}
	list, total, err := s.store.Repositories().Intents.List(ctx, status, since, limit, offset)
	if err != nil {
		return nil, 0, persistence("list payment intents", err)
	}
	return list, total, nil
}

// ExpireStaleIntents fails pending intents older than the configured TTL
// together with the pending course entries they created. It returns how
// many intents were expired.
func (s *Service) ExpireStaleIntents(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.ttl)
	stale, err := s.store.Repositories().Intents.ListStalePending(ctx, cutoff, sweepBatch)
	if err != nil {
		return 0, persistence("list stale intents", err)
	}

	expired := 0
	for _, in := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		changed, err := s.expire(ctx, in)
		if err != nil {
			s.logger.Errorw("expire payment intent", "tx_ref", in.TxRef, "err", err)
			continue
		}
		if changed {
			expired++
			s.audit(ctx, in.ID, "error", map[string]any{"reason": "expired", "cutoff": cutoff})
		}
	}
	return expired, nil
}

func (s *Service) expire(ctx context.Context, in *paymentintents.Intent) (bool, error) {
	changed := false
	err := s.inTx(ctx, "expire payment intent", func(tx storage.Repos) error {
		ok, err := tx.Intents.MarkFailed(ctx, in.ID, map[string]any{"reason": "expired"})
		if err != nil || !ok {
			return err
		}
		changed = true

		c, err := tx.Courses.GetForUpdate(ctx, in.CourseID)
		if errors.Is(err, courses.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		i := c.FindStudent(in.UserID)
		if i < 0 {
			return nil
		}

		entry := c.SubscribedStudents[i]
		if in.ExamID != nil {
			found := false
			for k := range entry.ExamsPaid {
				if entry.ExamsPaid[k].ExamID == *in.ExamID && entry.ExamsPaid[k].PaymentStatus == courses.StatusPending {
					entry.ExamsPaid[k].PaymentStatus = courses.StatusFailed
					found = true
				}
			}
			if !found {
				return nil
			}
		} else {
			if entry.CoursePaymentStatus != courses.StatusPending {
				return nil
			}
			entry.CoursePaymentStatus = courses.StatusFailed
		}
		return tx.Courses.SaveSubscription(ctx, c.ID, i, entry)
	})
	return changed, err
}
