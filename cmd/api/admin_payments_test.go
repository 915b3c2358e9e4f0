package main

import (
	"fmt"
	"net/http"
	"testing"

	"examhub/internal/domain/paymentintents"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminListPaymentsHandler(t *testing.T) {
	ta := newTestApplication(t)
	for i, st := range []paymentintents.Status{
		paymentintents.StatusPending,
		paymentintents.StatusPaid,
		paymentintents.StatusPending,
	} {
		ta.store.PutIntent(&paymentintents.Intent{
			TxRef:    fmt.Sprintf("course-%s-%d", ta.course.ID, i),
			Kind:     paymentintents.KindCourse,
			CourseID: ta.course.ID,
			UserID:   ta.student.ID,
			Amount:   500,
			Currency: "ETB",
			Status:   st,
		})
	}

	t.Run("students are forbidden", func(t *testing.T) {
		rr := ta.do(t, http.MethodGet, "/api/v1/admin/payments", nil, ta.student)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("lists everything", func(t *testing.T) {
		rr := ta.do(t, http.MethodGet, "/api/v1/admin/payments", nil, ta.admin)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		data := decode(t, rr)["data"].(map[string]any)
		assert.Len(t, data["payments"], 3)
		assert.Nil(t, data["since"])

		pg := data["pagination"].(map[string]any)
		assert.EqualValues(t, 3, pg["total"])
		assert.EqualValues(t, 1, pg["total_pages"])
	})

	t.Run("filters by status and paginates", func(t *testing.T) {
		rr := ta.do(t, http.MethodGet, "/api/v1/admin/payments?status=pending&limit=1&page=2", nil, ta.admin)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		data := decode(t, rr)["data"].(map[string]any)
		assert.Len(t, data["payments"], 1)
		assert.Equal(t, "pending", data["status"])

		pg := data["pagination"].(map[string]any)
		assert.EqualValues(t, 2, pg["total"])
		assert.Equal(t, true, pg["has_prev"])
		assert.Equal(t, false, pg["has_next"])
	})

	t.Run("bad filters", func(t *testing.T) {
		rr := ta.do(t, http.MethodGet, "/api/v1/admin/payments?since=yesterday", nil, ta.admin)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = ta.do(t, http.MethodGet, "/api/v1/admin/payments?status=refunded", nil, ta.admin)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
