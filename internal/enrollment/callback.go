package enrollment

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Callback is a parsed gateway delivery.
type Callback struct {
	Method   string
	TxRef    string
	Status   string
	CourseID uuid.UUID
	UserID   uuid.UUID
	ExamID   *uuid.UUID
	Payload  map[string]any
}

// ParseCallback extracts the reference and the round-tripped metadata from a
// delivery. fields is the merged view of query, form and JSON body. The
// gateway uses tx_ref or trx_ref depending on the call path and may send the
// metadata nested under metadata/meta or flattened.
func ParseCallback(method string, fields map[string]any) (Callback, error) {
	cb := Callback{
		Method:  strings.ToUpper(method),
		TxRef:   firstString(fields, "tx_ref", "trx_ref"),
		Status:  firstString(fields, "status"),
		Payload: fields,
	}
	if cb.TxRef == "" {
		return cb, invalid("", MsgMissingReference)
	}

	meta := metadataOf(fields)
	courseID := firstString(meta, "courseId")
	userID := firstString(meta, "userId")
	if courseID == "" || userID == "" {
		return cb, invalid("", MsgMissingMetadata)
	}

	var err error
	if cb.CourseID, err = uuid.Parse(courseID); err != nil {
		return cb, invalid("metadata.courseId", "invalid course id")
	}
	if cb.UserID, err = uuid.Parse(userID); err != nil {
		return cb, invalid("metadata.userId", "invalid user id")
	}
	if examID := firstString(meta, "examId"); examID != "" {
		id, err := uuid.Parse(examID)
		if err != nil {
			return cb, invalid("metadata.examId", "invalid exam id")
		}
		cb.ExamID = &id
	}
	return cb, nil
}

func metadataOf(fields map[string]any) map[string]any {
	out := map[string]any{}
	for _, k := range []string{"courseId", "userId", "examId"} {
		if v := firstString(fields, k, "metadata["+k+"]", "meta["+k+"]"); v != "" {
			out[k] = v
		}
	}
	for _, key := range []string{"meta", "metadata"} {
		raw := fields[key]
		if vals, ok := raw.([]string); ok && len(vals) > 0 {
			raw = vals[0]
		}
		switch m := raw.(type) {
		case map[string]any:
			for k, v := range m {
				out[k] = v
			}
		case string:
			// form posts carry the object JSON-encoded
			var decoded map[string]any
			if json.Unmarshal([]byte(m), &decoded) == nil {
				for k, v := range decoded {
					out[k] = v
				}
			}
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case []string:
			if len(v) > 0 && strings.TrimSpace(v[0]) != "" {
				return strings.TrimSpace(v[0])
			}
		}
	}
	return ""
}
