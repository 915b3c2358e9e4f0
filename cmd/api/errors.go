package main

import (
	"errors"
	"net/http"
	"strings"

	"examhub/internal/enrollment"
	"examhub/internal/payments"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem", nil)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error(), nil)
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, "not found", nil)
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized", nil)
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusForbidden, err.Error(), nil)
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter string) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", retryAfter)

	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter, nil)
}

// paymentError is the HTTP shape of an enrollment or gateway error.
type paymentError struct {
	status  int
	message string
	details any
	err     error
}

func classifyPaymentError(err error) paymentError {
	var (
		ve *enrollment.ValidationError
		vf *enrollment.VerificationFailedError
		gr *enrollment.GatewayRejectedError
		gt *payments.GatewayTransportError
		pe *enrollment.PersistenceError
	)

	switch {
	case errors.As(err, &ve):
		return paymentError{status: http.StatusBadRequest, message: ve.Message, err: err}
	case errors.Is(err, enrollment.ErrDuplicatePurchase):
		return paymentError{status: http.StatusBadRequest, message: "You are already subscribed to this course", err: err}
	case errors.Is(err, enrollment.ErrUnauthenticated):
		return paymentError{status: http.StatusUnauthorized, message: "unauthorized", err: err}
	case errors.Is(err, enrollment.ErrForbidden):
		return paymentError{status: http.StatusForbidden, message: "Only students can purchase courses", err: err}
	case errors.Is(err, enrollment.ErrNotFound):
		return paymentError{status: http.StatusNotFound, message: notFoundMessage(err), err: err}
	case errors.As(err, &vf):
		return paymentError{status: http.StatusBadRequest, message: enrollment.MsgNotVerified, details: vf.Response, err: err}
	case errors.As(err, &gr):
		return paymentError{
			status:  http.StatusBadRequest,
			message: "Payment initialization failed",
			details: map[string]any{"message": gr.Message, "chapa": gr.Response},
			err:     err,
		}
	case errors.As(err, &gt):
		details := map[string]any{"op": gt.Op}
		if gt.StatusCode > 0 {
			details["http_status"] = gt.StatusCode
		}
		return paymentError{status: http.StatusBadGateway, message: "Payment gateway unavailable", details: details, err: err}
	case errors.As(err, &pe):
		return paymentError{status: http.StatusInternalServerError, message: "Failed to update enrollment", err: err}
	default:
		return paymentError{status: http.StatusInternalServerError, message: "the server encountered a problem", err: err}
	}
}

// notFoundMessage keeps the "what" of a wrapped ErrNotFound
// ("course: resource not found" -> "Course not found").
func notFoundMessage(err error) string {
	msg := err.Error()
	for _, what := range []struct{ prefix, message string }{
		{"course", "Course not found"},
		{"exam", "Exam not found"},
		{"user", "User not found"},
		{"payment intent", "Payment intent not found"},
	} {
		if strings.HasPrefix(msg, what.prefix) {
			return what.message
		}
	}
	return "not found"
}

func (app *application) logPaymentError(r *http.Request, pe paymentError) {
	kv := []any{"method", r.Method, "path", r.URL.Path, "status", pe.status, "error", pe.err.Error()}
	if pe.status >= http.StatusInternalServerError {
		app.logger.Errorw("payment request failed", kv...)
		return
	}
	app.logger.Warnw("payment request rejected", kv...)
}

func (app *application) paymentErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	pe := classifyPaymentError(err)
	app.logPaymentError(r, pe)
	writeJSONError(w, pe.status, pe.message, pe.details)
}
