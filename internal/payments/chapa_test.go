package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChapa(t *testing.T, h http.HandlerFunc) *ChapaClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewChapaClient("CHASECK_TEST-xyz", srv.URL).WithHTTPClient(srv.Client())
}

func TestChapaInitialize(t *testing.T) {
	t.Run("success returns checkout url", func(t *testing.T) {
		var got InitializeRequest
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer CHASECK_TEST-xyz", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"checkout_url":"https://checkout.chapa.co/abc"}}`))
		})

		res, err := c.Initialize(context.Background(), InitializeRequest{
			Amount:   500,
			Currency: "ETB",
			TxRef:    "course-1-1700000000000",
			Meta:     map[string]string{"courseId": "1", "userId": "u"},
		})
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.Equal(t, "https://checkout.chapa.co/abc", res.CheckoutURL())
		assert.Equal(t, int64(500), got.Amount)
		assert.Equal(t, "1", got.Meta["courseId"])
	})

	t.Run("4xx is a normal result", func(t *testing.T) {
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":"failed","message":{"email":["The email must be valid."]},"data":null}`))
		})

		res, err := c.Initialize(context.Background(), InitializeRequest{TxRef: "x"})
		require.NoError(t, err)
		assert.False(t, res.OK())
		assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
		assert.Empty(t, res.CheckoutURL())
	})

	t.Run("5xx is a transport error", func(t *testing.T) {
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`upstream down`))
		})

		_, err := c.Initialize(context.Background(), InitializeRequest{TxRef: "x"})
		var te *GatewayTransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, http.StatusBadGateway, te.StatusCode)
		assert.Equal(t, "initialize", te.Op)
	})

	t.Run("html 404 is a rejection", func(t *testing.T) {
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<html>nope</html>`))
		})

		res, err := c.Initialize(context.Background(), InitializeRequest{TxRef: "x"})
		require.NoError(t, err)
		assert.False(t, res.OK())
		assert.Empty(t, res.Status)
		assert.Equal(t, http.StatusNotFound, res.HTTPStatus)
		assert.JSONEq(t, `"<html>nope</html>"`, string(res.Raw))
	})

	t.Run("json of the wrong shape keeps the body", func(t *testing.T) {
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`["unexpected"]`))
		})

		res, err := c.Initialize(context.Background(), InitializeRequest{TxRef: "x"})
		require.NoError(t, err)
		assert.False(t, res.OK())
		assert.JSONEq(t, `["unexpected"]`, string(res.Raw))
	})
}

func TestChapaVerify(t *testing.T) {
	t.Run("escapes reference and decodes data", func(t *testing.T) {
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/v1/transaction/verify/course-1-42", r.URL.Path)
			_, _ = w.Write([]byte(`{"status":"success","message":"Payment details","data":{"status":"success","tx_ref":"course-1-42","amount":500,"currency":"ETB"}}`))
		})

		res, err := c.Verify(context.Background(), "course-1-42")
		require.NoError(t, err)
		assert.True(t, res.Succeeded())
		assert.Equal(t, "course-1-42", res.Data.TxRef)
		assert.NotEmpty(t, res.Raw)
	})

	t.Run("not found is decoded, not an error", func(t *testing.T) {
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":"failed","message":"Invalid transaction or Transaction not found","data":null}`))
		})

		res, err := c.Verify(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, res.Succeeded())
		assert.Equal(t, http.StatusNotFound, res.HTTPStatus)
	})

	t.Run("html body is unverified, not an error", func(t *testing.T) {
		c := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<html><body>Not Found</body></html>`))
		})

		res, err := c.Verify(context.Background(), "abc")
		require.NoError(t, err)
		assert.False(t, res.Succeeded())
		assert.Empty(t, res.Status)
		assert.Equal(t, http.StatusNotFound, res.HTTPStatus)
		assert.True(t, json.Valid(res.Raw))
	})

	t.Run("empty reference", func(t *testing.T) {
		c := NewChapaClient("k", "")
		_, err := c.Verify(context.Background(), "  ")
		assert.Error(t, err)
		assert.Equal(t, DefaultChapaBaseURL, c.BaseURL)
	})

	t.Run("unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewChapaClient("k", url).Verify(context.Background(), "abc")
		var te *GatewayTransportError
		require.True(t, errors.As(err, &te))
		assert.Zero(t, te.StatusCode)
		assert.Error(t, te.Unwrap())
	})
}
