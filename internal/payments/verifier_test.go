package payments

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*InitializeResponse)
	return res, args.Error(1)
}

func (m *mockGateway) Verify(ctx context.Context, txRef string) (*VerifyResponse, error) {
	args := m.Called(ctx, txRef)
	res, _ := args.Get(0).(*VerifyResponse)
	return res, args.Error(1)
}

func verified(txRef, outer, inner string) *VerifyResponse {
	return &VerifyResponse{
		Status: outer,
		Data:   &VerifyData{Status: inner, TxRef: txRef},
		Raw:    []byte(`{}`),
	}
}

func TestGatewayVerifier(t *testing.T) {
	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	t.Run("both statuses success", func(t *testing.T) {
		gw := new(mockGateway)
		gw.On("Verify", mock.Anything, "ref-1").Return(verified("ref-1", "success", "success"), nil)

		v, err := NewGatewayVerifier(gw, logger).Verify(ctx, Delivery{Method: "POST", TxRef: "ref-1"})
		require.NoError(t, err)
		assert.True(t, v.Verified)
		assert.False(t, v.Trusted)
		gw.AssertExpectations(t)
	})

	t.Run("inner status pending", func(t *testing.T) {
		gw := new(mockGateway)
		gw.On("Verify", mock.Anything, "ref-1").Return(verified("ref-1", "success", "pending"), nil)

		v, err := NewGatewayVerifier(gw, logger).Verify(ctx, Delivery{TxRef: "ref-1"})
		require.NoError(t, err)
		assert.False(t, v.Verified)
		assert.Equal(t, "pending", v.Status)
	})

	t.Run("reference mismatch", func(t *testing.T) {
		gw := new(mockGateway)
		gw.On("Verify", mock.Anything, "ref-1").Return(verified("ref-2", "success", "success"), nil)

		v, err := NewGatewayVerifier(gw, logger).Verify(ctx, Delivery{TxRef: "ref-1"})
		require.NoError(t, err)
		assert.False(t, v.Verified)
	})

	t.Run("html answer from chapa is unverified", func(t *testing.T) {
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<html>404</html>`))
		})

		v, err := NewGatewayVerifier(c, logger).Verify(ctx, Delivery{TxRef: "ref-1"})
		require.NoError(t, err)
		assert.False(t, v.Verified)
		assert.Equal(t, "gateway did not confirm success", v.Reason)
		assert.NotNil(t, v.Response)
	})

	t.Run("transport failure is unverified", func(t *testing.T) {
		gw := new(mockGateway)
		gw.On("Verify", mock.Anything, "ref-1").Return(nil, &GatewayTransportError{Op: "verify", StatusCode: 503})

		v, err := NewGatewayVerifier(gw, logger).Verify(ctx, Delivery{TxRef: "ref-1"})
		require.NoError(t, err)
		assert.False(t, v.Verified)
		assert.NotEmpty(t, v.Reason)
	})
}

func TestNewVerifier(t *testing.T) {
	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	t.Run("non-production trusts everything", func(t *testing.T) {
		gw := new(mockGateway)
		v := NewVerifier(false, false, gw, logger)

		out, err := v.Verify(ctx, Delivery{Method: "POST", TxRef: "r", Payload: map[string]any{"tx_ref": "r"}})
		require.NoError(t, err)
		assert.True(t, out.Verified)
		assert.True(t, out.Trusted)
		gw.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("production with trusted GET", func(t *testing.T) {
		gw := new(mockGateway)
		gw.On("Verify", mock.Anything, "r").Return(verified("r", "failed", "failed"), nil)
		v := NewVerifier(true, true, gw, logger)

		out, err := v.Verify(ctx, Delivery{Method: "GET", TxRef: "r"})
		require.NoError(t, err)
		assert.True(t, out.Verified)

		out, err = v.Verify(ctx, Delivery{Method: "POST", TxRef: "r"})
		require.NoError(t, err)
		assert.False(t, out.Verified)
		gw.AssertNumberOfCalls(t, "Verify", 1)
	})

	t.Run("production with GET trust off asks the gateway", func(t *testing.T) {
		gw := new(mockGateway)
		gw.On("Verify", mock.Anything, "r").Return(verified("r", "success", "success"), nil)
		v := NewVerifier(true, false, gw, logger)

		out, err := v.Verify(ctx, Delivery{Method: "GET", TxRef: "r"})
		require.NoError(t, err)
		assert.True(t, out.Verified)
		gw.AssertNumberOfCalls(t, "Verify", 1)
	})
}
