package enrollment

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	courseID, userID, examID := uuid.New(), uuid.New(), uuid.New()

	cases := []struct {
		name   string
		fields map[string]any
		exam   bool
	}{
		{
			name: "nested metadata",
			fields: map[string]any{
				"tx_ref":   "course-1",
				"status":   "success",
				"metadata": map[string]any{"courseId": courseID.String(), "userId": userID.String()},
			},
		},
		{
			name: "trx_ref and meta",
			fields: map[string]any{
				"trx_ref": "course-1",
				"meta":    map[string]any{"courseId": courseID.String(), "userId": userID.String(), "examId": examID.String()},
			},
			exam: true,
		},
		{
			name: "flattened query keys",
			fields: map[string]any{
				"trx_ref":            []string{"course-1"},
				"metadata[courseId]": []string{courseID.String()},
				"metadata[userId]":   []string{userID.String()},
			},
		},
		{
			name: "json encoded meta from a form post",
			fields: map[string]any{
				"tx_ref": "course-1",
				"meta":   `{"courseId":"` + courseID.String() + `","userId":"` + userID.String() + `"}`,
			},
		},
		{
			name: "json encoded meta as a url.Values entry",
			fields: map[string]any{
				"tx_ref": []string{"course-1"},
				"meta":   []string{`{"courseId":"` + courseID.String() + `","userId":"` + userID.String() + `"}`},
			},
		},
		{
			name: "top level ids",
			fields: map[string]any{
				"tx_ref":   "course-1",
				"courseId": courseID.String(),
				"userId":   userID.String(),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cb, err := ParseCallback("post", tc.fields)
			require.NoError(t, err)
			assert.Equal(t, "POST", cb.Method)
			assert.Equal(t, "course-1", cb.TxRef)
			assert.Equal(t, courseID, cb.CourseID)
			assert.Equal(t, userID, cb.UserID)
			if tc.exam {
				require.NotNil(t, cb.ExamID)
				assert.Equal(t, examID, *cb.ExamID)
			} else {
				assert.Nil(t, cb.ExamID)
			}
		})
	}
}

func TestParseCallbackErrors(t *testing.T) {
	t.Run("missing reference", func(t *testing.T) {
		_, err := ParseCallback("GET", map[string]any{"status": "success"})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, MsgMissingReference, ve.Message)
	})

	t.Run("missing metadata", func(t *testing.T) {
		_, err := ParseCallback("POST", map[string]any{"tx_ref": "abc", "status": "success"})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, MsgMissingMetadata, ve.Error())
	})

	t.Run("half the metadata", func(t *testing.T) {
		_, err := ParseCallback("POST", map[string]any{
			"tx_ref":   "abc",
			"metadata": map[string]any{"courseId": uuid.NewString()},
		})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, MsgMissingMetadata, ve.Message)
	})

	t.Run("malformed ids", func(t *testing.T) {
		_, err := ParseCallback("POST", map[string]any{
			"tx_ref":   "abc",
			"metadata": map[string]any{"courseId": "42", "userId": uuid.NewString()},
		})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "metadata.courseId", ve.Field)
	})
}
