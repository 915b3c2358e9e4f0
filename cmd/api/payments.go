package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"examhub/internal/domain/users"
	"examhub/internal/enrollment"

	"github.com/go-chi/chi/v5"
)

type coursePaymentPayload struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
}

type examPaymentPayload struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
	ExamID   string `json:"examId" validate:"required,uuid"`
}

type checkoutResponse struct {
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url"`
	TxRef       string `json:"tx_ref"`
}

type webhookResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	ChapaResponse any    `json:"chapaResponse,omitempty"`
}

// initiateCoursePaymentHandler godoc
//
//	@Summary		Start a course purchase
//	@Description	Creates a payment intent for a full course and returns the gateway checkout URL.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		coursePaymentPayload	true	"Course to buy"
//	@Success		200		{object}	checkoutResponse
//	@Failure		400		{object}	errorEnvelope	"Validation, duplicate purchase or gateway rejection"
//	@Failure		401		{object}	errorEnvelope	"Unauthorized"
//	@Failure		403		{object}	errorEnvelope	"Only students can purchase"
//	@Failure		404		{object}	errorEnvelope	"Course not found"
//	@Failure		502		{object}	errorEnvelope	"Gateway unavailable"
//	@Security		ApiKeyAuth
//	@Router			/payments/course [post]
func (app *application) initiateCoursePaymentHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload coursePaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	checkout, err := app.payments.InitiateCourse(ctx, user.ID, payload.CourseID)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	app.writeCheckout(w, r, checkout)
}

// initiateExamPaymentHandler godoc
//
//	@Summary		Start an exam purchase
//	@Description	Creates a payment intent for a single exam of a course.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		examPaymentPayload	true	"Exam to buy"
//	@Success		200		{object}	checkoutResponse
//	@Failure		400		{object}	errorEnvelope
//	@Failure		404		{object}	errorEnvelope	"Course or exam not found"
//	@Security		ApiKeyAuth
//	@Router			/payments/exam [post]
func (app *application) initiateExamPaymentHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload examPaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	checkout, err := app.payments.InitiateExam(ctx, user.ID, payload.CourseID, payload.ExamID)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	app.writeCheckout(w, r, checkout)
}

func (app *application) writeCheckout(w http.ResponseWriter, r *http.Request, c *enrollment.Checkout) {
	if err := writeJSON(w, http.StatusOK, &checkoutResponse{
		Status:      "success",
		CheckoutURL: c.CheckoutURL,
		TxRef:       c.TxRef,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// paymentWebhookHandler godoc
//
//	@Summary		Gateway callback
//	@Description	Applies a gateway confirmation to the enrollment records. Idempotent.
//	@Tags			Payments
//	@Accept			json,x-www-form-urlencoded
//	@Produce		json
//	@Success		200	{object}	webhookResponse
//	@Failure		400	{object}	webhookResponse
//	@Failure		404	{object}	webhookResponse
//	@Failure		500	{object}	webhookResponse
//	@Router			/payments/webhook [post]
//	@Router			/payments/webhook [get]
func (app *application) paymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	fields, err := readCallbackFields(w, r)
	if err != nil {
		app.logger.Warnw("unreadable payment callback", "method", r.Method, "err", err)
		writeJSON(w, http.StatusBadRequest, &webhookResponse{Status: "fail", Message: err.Error()})
		return
	}

	cb, err := enrollment.ParseCallback(r.Method, fields)
	if err != nil {
		app.webhookErrorResponse(w, r, err)
		return
	}

	res, err := app.payments.Reconcile(r.Context(), cb)
	if err != nil {
		app.webhookErrorResponse(w, r, err)
		return
	}

	msg := "Payment verified and subscription updated"
	if res.AlreadyPaid {
		msg = "Payment already processed"
	}
	if err := writeJSON(w, http.StatusOK, &webhookResponse{
		Status:        "success",
		Message:       msg,
		ChapaResponse: res.Verification.Response,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) webhookErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	pe := classifyPaymentError(err)
	app.logPaymentError(r, pe)

	status := "fail"
	if pe.status >= http.StatusInternalServerError {
		status = "error"
	}
	writeJSON(w, pe.status, &webhookResponse{
		Status:        status,
		Message:       pe.message,
		ChapaResponse: pe.details,
	})
}

// getPaymentIntentHandler godoc
//
//	@Summary		Get a payment intent
//	@Description	Returns the payment intent for a transaction reference. Students only see their own.
//	@Tags			Payments
//	@Produce		json
//	@Param			txRef	path		string			true	"Transaction reference"
//	@Success		200		{object}	map[string]any	"Envelope: { data: intent }"
//	@Failure		404		{object}	errorEnvelope
//	@Security		ApiKeyAuth
//	@Router			/payments/intents/{txRef} [get]
func (app *application) getPaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	txRef := strings.TrimSpace(chi.URLParam(r, "txRef"))
	if txRef == "" {
		app.badRequestResponse(w, r, errors.New(enrollment.MsgMissingReference))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	intent, err := app.payments.GetIntent(ctx, txRef, user.ID, user.Role == users.RoleAdmin)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, intent); err != nil {
		app.internalServerError(w, r, err)
	}
}
