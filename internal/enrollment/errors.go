package enrollment

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("only students can purchase courses")
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicatePurchase = errors.New("already subscribed to this course")
)

const (
	MsgMissingReference = "Missing transaction reference"
	MsgMissingMetadata  = "Missing metadata (courseId/userId)"
	MsgNotVerified      = "Payment not verified"
)

// ValidationError is bad or missing client input. Message is safe to return
// to the caller verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// VerificationFailedError means the gateway answered (or could not be
// reached) but did not confirm the payment. Response carries the gateway
// payload for diagnostics.
type VerificationFailedError struct {
	TxRef    string
	Reason   string
	Response any
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("payment %s not verified: %s", e.TxRef, e.Reason)
}

// GatewayRejectedError is a non-success answer to an initialize call.
type GatewayRejectedError struct {
	HTTPStatus int
	Message    json.RawMessage
	Response   json.RawMessage
}

func (e *GatewayRejectedError) Error() string {
	return fmt.Sprintf("gateway rejected payment (http %d): %s", e.HTTPStatus, string(e.Message))
}

// PersistenceError wraps a storage failure that happened after input was
// accepted.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
