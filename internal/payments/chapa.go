package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultChapaBaseURL = "https://api.chapa.co"

	initializeTimeout = 15 * time.Second
	verifyTimeout     = 10 * time.Second
)

type ChapaClient struct {
	SecretKey  string
	BaseURL    string
	httpClient *http.Client
}

func NewChapaClient(secret, baseURL string) *ChapaClient {
	if baseURL == "" {
		baseURL = DefaultChapaBaseURL
	}
	return &ChapaClient{
		SecretKey:  secret,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *ChapaClient) WithHTTPClient(hc *http.Client) *ChapaClient {
	c.httpClient = hc
	return c
}

func (c *ChapaClient) initializeURL() string {
	return c.BaseURL + "/v1/transaction/initialize"
}

func (c *ChapaClient) verifyURL(txRef string) string {
	return c.BaseURL + "/v1/transaction/verify/" + url.PathEscape(txRef)
}

func (c *ChapaClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &GatewayTransportError{Op: "initialize", Err: err}
	}

	status, raw, err := c.do(ctx, http.MethodPost, c.initializeURL(), body)
	if err != nil {
		return nil, &GatewayTransportError{Op: "initialize", Err: err}
	}
	if status >= http.StatusInternalServerError {
		return nil, &GatewayTransportError{Op: "initialize", StatusCode: status, Body: string(raw)}
	}

	res := &InitializeResponse{HTTPStatus: status, Raw: raw}
	if err := json.Unmarshal(raw, res); err != nil {
		// Proxies answer with HTML now and then. Below 500 that is still an
		// answer, just not a successful one.
		return &InitializeResponse{HTTPStatus: status, Raw: undecodedBody(raw)}, nil
	}
	return res, nil
}

func (c *ChapaClient) Verify(ctx context.Context, txRef string) (*VerifyResponse, error) {
	txRef = strings.TrimSpace(txRef)
	if txRef == "" {
		return nil, fmt.Errorf("chapa verify requires tx_ref")
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	status, raw, err := c.do(ctx, http.MethodGet, c.verifyURL(txRef), nil)
	if err != nil {
		return nil, &GatewayTransportError{Op: "verify", Err: err}
	}
	if status >= http.StatusInternalServerError {
		return nil, &GatewayTransportError{Op: "verify", StatusCode: status, Body: string(raw)}
	}

	// Chapa answers 400/404 for unknown or failed references with a JSON
	// body; decode it and let the caller read the status.
	res := &VerifyResponse{HTTPStatus: status, Raw: raw}
	if err := json.Unmarshal(raw, res); err != nil {
		return &VerifyResponse{HTTPStatus: status, Raw: undecodedBody(raw)}, nil
	}
	return res, nil
}

// undecodedBody keeps a body that did not fit the response shape. Bodies
// that are not JSON at all are stored as a JSON string so they can still be
// echoed and persisted.
func undecodedBody(raw []byte) json.RawMessage {
	if json.Valid(raw) {
		return raw
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return nil
	}
	return quoted
}

func (c *ChapaClient) do(ctx context.Context, method, target string, body []byte) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.SecretKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}
