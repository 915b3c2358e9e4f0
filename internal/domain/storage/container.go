package storage

import (
	"context"
	"fmt"

	"examhub/internal/db"
	"examhub/internal/domain/courses"
	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repos is the set of repositories the payment flow works with. The same
// struct is handed out bound to the pool or to a transaction.
type Repos struct {
	Courses courses.Store
	Users   users.Store
	Intents paymentintents.Store
	PayLogs paymentintents.LogsStore
}

type Container struct {
	pool *pgxpool.Pool
	Repos
}

func NewContainer(pool *pgxpool.Pool) *Container {
	return &Container{
		pool:  pool,
		Repos: reposFor(pool),
	}
}

func reposFor(q db.Querier) Repos {
	return Repos{
		Courses: courses.NewRepository(q),
		Users:   users.NewRepository(q),
		Intents: paymentintents.NewRepository(q),
		PayLogs: paymentintents.NewLogsRepository(q),
	}
}

func (c *Container) Repositories() Repos { return c.Repos }

// WithEnrollmentTx runs an enrollment unit-of-work atomically: course side,
// user side and the intent ledger commit together or not at all.
func (c *Container) WithEnrollmentTx(ctx context.Context, fn func(tx Repos) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	if err := fn(reposFor(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
