package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())
}

const maxBodyBytes = 1_048_578 // 1mb

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// it parses body into Go struct.
func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBodyBytes))

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(data)
}

type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// writeJSONError writes {status, message, details?}. Client errors use
// "fail", server errors "error".
func writeJSONError(w http.ResponseWriter, status int, message string, details any) error {
	s := "fail"
	if status >= http.StatusInternalServerError {
		s = "error"
	}
	return writeJSON(w, status, &errorEnvelope{
		Status:  s,
		Message: message,
		Details: details,
	})
}

func (app *application) jsonResponse(w http.ResponseWriter, status int, data any) error {
	type envelope struct {
		Data any `json:"data"`
	}
	return writeJSON(w, status, &envelope{Data: data})
}

// readCallbackFields collects a gateway callback into one map. Query
// parameters come first, then form fields, then a JSON body; later
// sources override earlier ones.
func readCallbackFields(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	fields := make(map[string]any)
	mergeValues(fields, r.URL.Query())

	if r.Method == http.MethodGet || r.Body == nil || r.Body == http.NoBody {
		return fields, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBodyBytes))

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		mergeValues(fields, r.PostForm)
		return fields, nil
	}

	var body map[string]any
	err := json.NewDecoder(r.Body).Decode(&body)
	switch {
	case errors.Is(err, io.EOF):
		return fields, nil
	case err != nil:
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	for k, v := range body {
		fields[k] = v
	}
	return fields, nil
}

func mergeValues(dst map[string]any, vals url.Values) {
	for k, v := range vals {
		if len(v) > 0 {
			dst[k] = v
		}
	}
}
