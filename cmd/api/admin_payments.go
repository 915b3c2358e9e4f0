package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"examhub/internal/params"
)

// adminListPaymentsHandler godoc
//
//	@Summary		List payment intents (admin)
//	@Description	Returns a paginated list of payment intents. Optional filters: status, since.
//	@Tags			Admin-Payments
//	@Produce		json
//	@Param			status	query		string			false	"pending|paid|failed"
//	@Param			since	query		string			false	"RFC3339 timestamp; returns intents created_at >= since"
//	@Param			page	query		int				false	"Page number (default: 1)"
//	@Param			limit	query		int				false	"Items per page (default 20, max 100)"
//	@Success		200		{object}	map[string]any	"Envelope: { data: { payments, pagination, status, since } }"
//	@Failure		400		{object}	errorEnvelope	"Bad Request"
//	@Failure		401		{object}	errorEnvelope	"Unauthorized"
//	@Failure		403		{object}	errorEnvelope	"Forbidden"
//	@Failure		500		{object}	errorEnvelope	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/admin/payments [get]
func (app *application) adminListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	if getUserFromContext(r) == nil {
		app.unauthorizedErrorResponse(w, r, errors.New("not authorized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// --- filters ---
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status")) // "" => no filter

	since, err := params.ParseSince(q)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// --- pagination ---
	pg := params.ParsePagination(q)

	intents, total, err := app.payments.ListIntents(ctx, status, since, pg.Limit, pg.Offset)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	pg.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"payments":   intents,
		"pagination": pg,
		"status":     status,
		"since":      since, // null if not provided
	}); err != nil {
		app.internalServerError(w, r, err)
		return
	}
}
