package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"examhub/internal/auth"
	"examhub/internal/domain/courses"
	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/storage"
	"examhub/internal/domain/users"
	"examhub/internal/enrollment"
	"examhub/internal/payments"
	"examhub/internal/ratelimiter"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Initialize(ctx context.Context, req payments.InitializeRequest) (*payments.InitializeResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*payments.InitializeResponse)
	return res, args.Error(1)
}

func (m *mockGateway) Verify(ctx context.Context, txRef string) (*payments.VerifyResponse, error) {
	args := m.Called(ctx, txRef)
	res, _ := args.Get(0).(*payments.VerifyResponse)
	return res, args.Error(1)
}

type testApp struct {
	app     *application
	handler http.Handler
	store   *storage.Memory
	gw      *mockGateway
	auth    *auth.JWTAuthenticator

	course  *courses.Course
	exam    *courses.Exam
	student *users.User
	admin   *users.User
}

type appOption func(*config)

func production(c *config) { c.env = "production" }

func verifyGETCallbacks(c *config) { c.payment.trustGETCallbacks = false }

func withRateLimit(n int) appOption {
	return func(c *config) {
		c.rateLimiter = ratelimiter.Config{RequestsPerTimeFrame: n, TimeFrame: time.Minute, Enabled: true}
	}
}

func withBasicAuth(user, pass string) appOption {
	return func(c *config) {
		c.auth.basic = basicConfig{user: user, pass: pass}
	}
}

func newTestApplication(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	cfg := config{
		addr:        ":0",
		env:         "development",
		apiURL:      "https://api.examhub.test",
		frontendURL: "https://examhub.test",
		auth: authConfig{
			token: tokenConfig{secret: "test-secret", iss: "examhub"},
		},
		payment:     paymentConfig{trustGETCallbacks: true},
		rateLimiter: ratelimiter.Config{RequestsPerTimeFrame: 1000, TimeFrame: time.Minute},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := zap.NewNop().Sugar()
	store := storage.NewMemory()
	gw := new(mockGateway)

	receipts, err := paymentintents.NewReceiptNumberer("test-salt")
	require.NoError(t, err)

	svc := enrollment.NewService(enrollment.Config{
		Builder: enrollment.BuilderConfig{APIURL: cfg.apiURL, FrontendURL: cfg.frontendURL},
	}, enrollment.Deps{
		Store:    store,
		Gateway:  gw,
		Verifier: payments.NewVerifier(cfg.isProduction(), cfg.payment.trustGETCallbacks, gw, logger),
		Receipts: receipts,
		Logger:   logger,
	})

	authenticator := auth.NewJWTAuthenticator(cfg.auth.token.secret, cfg.auth.token.iss, cfg.auth.token.iss)

	app := &application{
		config:        cfg,
		store:         store,
		payments:      svc,
		logger:        logger,
		authenticator: authenticator,
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(cfg.rateLimiter.RequestsPerTimeFrame, cfg.rateLimiter.TimeFrame),
	}

	ta := &testApp{
		app:     app,
		handler: app.mount(),
		store:   store,
		gw:      gw,
		auth:    authenticator,
		course:  &courses.Course{ID: uuid.New(), Code: "CS-201", Name: "Data Structures", Price: 500},
		student: &users.User{ID: uuid.New(), Name: "Jane Doe", Email: "jane@x.com", Role: users.RoleStudent},
		admin:   &users.User{ID: uuid.New(), Name: "Abebe Admin", Email: "admin@x.com", Role: users.RoleAdmin},
	}
	ta.exam = &courses.Exam{ID: uuid.New(), CourseID: ta.course.ID, Title: "Final", Price: 150}

	store.PutCourse(ta.course)
	store.PutExam(ta.exam)
	store.PutUser(ta.student)
	store.PutUser(ta.admin)
	return ta
}

func (ta *testApp) token(t *testing.T, u *users.User) string {
	t.Helper()
	tok, err := ta.auth.GenerateToken(u.ID, string(u.Role))
	require.NoError(t, err)
	return tok
}

func (ta *testApp) do(t *testing.T, method, target string, body any, as *users.User) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+ta.token(t, as))
	}

	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, req)
	return rr
}

func initSuccess(checkoutURL string) *payments.InitializeResponse {
	raw := []byte(`{"status":"success","message":"Hosted Link","data":{"checkout_url":"` + checkoutURL + `"}}`)
	res := &payments.InitializeResponse{HTTPStatus: http.StatusOK}
	_ = json.Unmarshal(raw, res)
	res.Raw = raw
	return res
}

func verifySuccess(txRef string) *payments.VerifyResponse {
	return &payments.VerifyResponse{
		HTTPStatus: http.StatusOK,
		Status:     "success",
		Data:       &payments.VerifyData{Status: "success", TxRef: txRef},
		Raw:        json.RawMessage(`{"status":"success"}`),
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}
