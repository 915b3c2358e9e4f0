package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"examhub/internal/db"
	"examhub/internal/domain/courses"
	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/users"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestContainer connects to the database named by DB_ADDR and applies the
// schema. Tests using it are skipped when DB_ADDR is not set.
func newTestContainer(t *testing.T) (*Container, *pgxpool.Pool) {
	t.Helper()

	addr := os.Getenv("DB_ADDR")
	if addr == "" {
		t.Skip("DB_ADDR required for postgres integration tests")
	}

	pool, err := db.New(addr, 5, "1m")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, db.Migrate(ctx, pool))

	return NewContainer(pool), pool
}

func seedRows(t *testing.T, pool *pgxpool.Pool) (courseID, userID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	courseID, userID = uuid.New(), uuid.New()

	_, err := pool.Exec(ctx, `INSERT INTO users (id, name, email, role) VALUES ($1, 'Abebe Kebede', $2, 'student')`,
		userID, userID.String()+"@examhub.test")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO courses (id, code, name, price) VALUES ($1, 'PHY-101', 'Physics', 300)`, courseID)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM payment_logs WHERE intent_id IN (SELECT id FROM payment_intents WHERE course_id = $1)`, courseID)
		_, _ = pool.Exec(ctx, `DELETE FROM payment_intents WHERE course_id = $1`, courseID)
		_, _ = pool.Exec(ctx, `DELETE FROM course_subscriptions WHERE course_id = $1`, courseID)
		_, _ = pool.Exec(ctx, `DELETE FROM user_subscriptions WHERE user_id = $1`, userID)
		_, _ = pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, courseID)
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	})
	return courseID, userID
}

func TestPostgresSaveSubscription(t *testing.T) {
	c, pool := newTestContainer(t)
	courseID, userID := seedRows(t, pool)
	ctx := context.Background()
	examID := uuid.New()
	enrolled := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, c.Courses.SaveSubscription(ctx, courseID, 0, courses.SubscribedStudent{
		StudentID:           userID,
		CoursePaymentStatus: courses.StatusPending,
		EnrolledAt:          enrolled,
	}))

	got, err := c.Courses.GetByID(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, got.SubscribedStudents, 1)
	assert.Equal(t, courses.StatusPending, got.SubscribedStudents[0].CoursePaymentStatus)
	assert.Empty(t, got.SubscribedStudents[0].ExamsPaid)

	// second save for the same student updates in place
	require.NoError(t, c.Courses.SaveSubscription(ctx, courseID, 0, courses.SubscribedStudent{
		StudentID:           userID,
		CoursePaymentStatus: courses.StatusPaid,
		EnrolledAt:          enrolled,
		ExamsPaid:           []courses.ExamPayment{{ExamID: examID, PaymentStatus: courses.StatusPaid}},
	}))

	got, err = c.Courses.GetForUpdate(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, got.SubscribedStudents, 1)
	assert.Equal(t, courses.StatusPaid, got.SubscribedStudents[0].CoursePaymentStatus)
	assert.True(t, got.SubscribedStudents[0].ExamPaid(examID))
	assert.WithinDuration(t, enrolled, got.SubscribedStudents[0].EnrolledAt, time.Second)

	require.NoError(t, c.Users.SaveSubscription(ctx, userID, 0, users.SubscribedCourse{
		CourseID:      courseID,
		PaymentStatus: courses.StatusUnpaid,
		SubscribedAt:  enrolled,
	}))
	require.NoError(t, c.Users.SaveSubscription(ctx, userID, 0, users.SubscribedCourse{
		CourseID:      courseID,
		PaymentStatus: courses.StatusPaid,
		SubscribedAt:  enrolled,
	}))

	u, err := c.Users.GetByID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, u.SubscribedCourses, 1)
	assert.Equal(t, courses.StatusPaid, u.SubscribedCourses[0].PaymentStatus)
	assert.Equal(t, users.RoleStudent, u.Role)
}

func TestPostgresEnrollmentTxRollsBack(t *testing.T) {
	c, pool := newTestContainer(t)
	courseID, userID := seedRows(t, pool)
	ctx := context.Background()
	boom := errors.New("boom")

	err := c.WithEnrollmentTx(ctx, func(tx Repos) error {
		if _, err := tx.Courses.GetForUpdate(ctx, courseID); err != nil {
			return err
		}
		if err := tx.Courses.SaveSubscription(ctx, courseID, 0, courses.SubscribedStudent{
			StudentID:           userID,
			CoursePaymentStatus: courses.StatusPaid,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := c.Courses.GetByID(ctx, courseID)
	require.NoError(t, err)
	assert.Empty(t, got.SubscribedStudents)
}

func TestPostgresIntentLifecycle(t *testing.T) {
	c, pool := newTestContainer(t)
	courseID, userID := seedRows(t, pool)
	ctx := context.Background()
	txRef := "course-" + courseID.String() + "-1"

	in, err := c.Intents.Create(ctx, &paymentintents.Intent{
		TxRef:       txRef,
		Kind:        paymentintents.KindCourse,
		CourseID:    courseID,
		UserID:      userID,
		Amount:      300,
		CheckoutURL: "https://checkout.chapa.co/abc",
		GatewayResp: json.RawMessage(`{"status":"success","message":"Hosted Link"}`),
	})
	require.NoError(t, err)
	assert.NotZero(t, in.ID)
	assert.Equal(t, "ETB", in.Currency)
	assert.Equal(t, paymentintents.StatusPending, in.Status)

	_, err = c.Intents.Create(ctx, &paymentintents.Intent{
		TxRef: txRef, Kind: paymentintents.KindCourse, CourseID: courseID, UserID: userID, Amount: 300,
	})
	assert.ErrorIs(t, err, paymentintents.ErrDuplicate)

	require.NoError(t, c.PayLogs.InsertPaymentLog(ctx, in.ID, "request", map[string]any{"tx_ref": txRef}))
	require.NoError(t, c.PayLogs.InsertPaymentLog(ctx, in.ID, "webhook", nil))

	t.Run("list filters by status and since", func(t *testing.T) {
		since := time.Now().Add(-time.Hour)
		list, total, err := c.Intents.List(ctx, "pending", &since, 100, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, 1)
		assert.True(t, containsTxRef(list, txRef))

		list, _, err = c.Intents.List(ctx, "paid", &since, 100, 0)
		require.NoError(t, err)
		assert.False(t, containsTxRef(list, txRef))

		future := time.Now().Add(time.Hour)
		list, _, err = c.Intents.List(ctx, "", &future, 100, 0)
		require.NoError(t, err)
		assert.False(t, containsTxRef(list, txRef))
	})

	t.Run("stale pending", func(t *testing.T) {
		_, err := pool.Exec(ctx, `UPDATE payment_intents SET created_at = now() - interval '2 hours' WHERE id = $1`, in.ID)
		require.NoError(t, err)

		stale, err := c.Intents.ListStalePending(ctx, time.Now().Add(-time.Hour), 1000)
		require.NoError(t, err)
		assert.True(t, containsTxRef(stale, txRef))

		stale, err = c.Intents.ListStalePending(ctx, time.Now().Add(-3*time.Hour), 1000)
		require.NoError(t, err)
		assert.False(t, containsTxRef(stale, txRef))
	})

	t.Run("mark paid is conditional", func(t *testing.T) {
		var noResponse json.RawMessage
		ok, err := c.Intents.MarkPaid(ctx, in.ID, "RCPT-TEST", noResponse)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = c.Intents.MarkPaid(ctx, in.ID, "RCPT-OTHER", json.RawMessage(`{"status":"success"}`))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = c.Intents.MarkFailed(ctx, in.ID, nil)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := c.Intents.GetByTxRef(ctx, txRef)
		require.NoError(t, err)
		assert.Equal(t, paymentintents.StatusPaid, got.Status)
		require.NotNil(t, got.ReceiptNo)
		assert.Equal(t, "RCPT-TEST", *got.ReceiptNo)
		assert.NotNil(t, got.PaidAt)

		// the initialize response survives a mark without a new payload
		raw, ok := got.GatewayResp.(json.RawMessage)
		require.True(t, ok)
		assert.JSONEq(t, `{"status":"success","message":"Hosted Link"}`, string(raw))
	})

	_, err = c.Intents.GetByTxRef(ctx, "course-missing-1")
	assert.ErrorIs(t, err, paymentintents.ErrNotFound)
}

func containsTxRef(list []*paymentintents.Intent, txRef string) bool {
	for _, in := range list {
		if in.TxRef == txRef {
			return true
		}
	}
	return false
}
