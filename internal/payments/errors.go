package payments

import "fmt"

// GatewayTransportError covers network failures, timeouts, undecodable
// bodies and 5xx answers from the provider.
type GatewayTransportError struct {
	Op         string // initialize | verify
	StatusCode int    // 0 when no response was received
	Body       string
	Err        error
}

func (e *GatewayTransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("chapa %s: http=%d body=%s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("chapa %s: %v", e.Op, e.Err)
}

func (e *GatewayTransportError) Unwrap() error { return e.Err }
