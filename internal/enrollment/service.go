package enrollment

import (
	"context"
	"errors"
	"sync"
	"time"

	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/storage"
	"examhub/internal/mailer"
	"examhub/internal/payments"

	"go.uber.org/zap"
)

const DefaultIntentTTL = 24 * time.Hour

// Store is the persistence the service needs: plain repositories for reads
// and a unit of work for everything that changes enrollment state.
type Store interface {
	Repositories() storage.Repos
	WithEnrollmentTx(ctx context.Context, fn func(tx storage.Repos) error) error
}

type Config struct {
	Builder   BuilderConfig
	IntentTTL time.Duration
}

type Deps struct {
	Store    Store
	Gateway  payments.Gateway
	Verifier payments.Verifier
	Receipts *paymentintents.ReceiptNumberer
	Mailer   mailer.Client // optional
	Logger   *zap.SugaredLogger
	Now      func() time.Time
}

// Service runs payment initiation and webhook reconciliation.
type Service struct {
	store    Store
	gateway  payments.Gateway
	verifier payments.Verifier
	receipts *paymentintents.ReceiptNumberer
	mailer   mailer.Client
	logger   *zap.SugaredLogger
	builder  *Builder
	now      func() time.Time
	ttl      time.Duration

	wg sync.WaitGroup
}

func NewService(cfg Config, d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if cfg.IntentTTL <= 0 {
		cfg.IntentTTL = DefaultIntentTTL
	}
	return &Service{
		store:    d.Store,
		gateway:  d.Gateway,
		verifier: d.Verifier,
		receipts: d.Receipts,
		mailer:   d.Mailer,
		logger:   d.Logger,
		builder:  NewBuilder(cfg.Builder, d.Now),
		now:      d.Now,
		ttl:      cfg.IntentTTL,
	}
}

// Wait blocks until background receipt deliveries have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) inTx(ctx context.Context, op string, fn func(tx storage.Repos) error) error {
	err := s.store.WithEnrollmentTx(ctx, fn)
	if err == nil || isDomainError(err) {
		return err
	}
	return persistence(op, err)
}

func isDomainError(err error) bool {
	var (
		ve *ValidationError
		pe *PersistenceError
	)
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicatePurchase) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrUnauthenticated) ||
		errors.As(err, &ve) ||
		errors.As(err, &pe)
}

// audit writes a payment log row. Failures are logged and otherwise ignored.
func (s *Service) audit(ctx context.Context, intentID int64, logType string, payload any) {
	if intentID == 0 {
		return
	}
	if err := s.store.Repositories().PayLogs.InsertPaymentLog(ctx, intentID, logType, payload); err != nil {
		s.logger.Warnw("payment log insert failed", "intent_id", intentID, "log_type", logType, "err", err)
	}
}
