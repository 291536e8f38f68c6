package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/newthinker/signaldeck/internal/core"
)

// errorResponse mirrors the backend's error body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON writes a success body. The backend flattens payload keys next to
// "success".
func writeJSON(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes an error body with a detail message.
func writeError(w http.ResponseWriter, status int, err error) {
	detail := "an internal error occurred"

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail = coreErr.Message
		if coreErr.Cause != nil {
			detail += ": " + coreErr.Cause.Error()
		}
	} else if err != nil {
		detail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Detail: detail})
}
