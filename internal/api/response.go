package api

import (
	"encoding/json"
	"net/http"

	"github.com/taskpilot/taskpilot-go/internal/apperrors"
)

// ErrorBody is the serialized error payload.
// Example: {"success": false, "error": {"message": "Endpoint not found", "path": "/nope"}}
type ErrorBody struct {
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// errorResponse is the envelope for all failure responses.
type errorResponse struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	Retryable bool      `json:"retryable,omitempty"`
}

// WriteJSON sends a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteError serializes an AppError into the failure envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.EnsureAppError(err)
	writeErrorBody(w, appErr.StatusCode, ErrorBody{Message: appErr.Message}, appErr.Retryable)
}

// WriteNotFound writes the 404 envelope for unmatched routes, echoing the
// request path so clients can see what they asked for.
func WriteNotFound(w http.ResponseWriter, r *http.Request) {
	writeErrorBody(w, http.StatusNotFound, ErrorBody{
		Message: "Endpoint not found",
		Path:    r.URL.Path,
	}, false)
}

func writeErrorBody(w http.ResponseWriter, status int, body ErrorBody, retryable bool) {
	_ = WriteJSON(w, status, errorResponse{
		Success:   false,
		Error:     body,
		Retryable: retryable,
	})
}
