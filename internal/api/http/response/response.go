// Package response writes the JSON envelope every endpoint answers with:
// {success, message, data?, errors?}.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ntcogk/auth-server/internal/apierror"
	"github.com/ntcogk/auth-server/internal/logger"
)

// Envelope is the response body.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a successful envelope.
func OK(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Error writes err as a failed envelope. Errors that are not
// *apierror.Error become 500 with fallback as message. Server errors are
// logged.
func Error(w http.ResponseWriter, log *logger.Logger, err error, fallback string) {
	apiErr := apierror.As(err, fallback)

	body := Envelope{
		Success: false,
		Message: apiErr.Message,
		Errors:  apiErr.Errors,
	}
	if apiErr.Status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("HTTP handler: request failed",
				"status", apiErr.Status,
				"message", apiErr.Message,
				"error", errorString(apiErr.Err))
		}
		if apiErr.Err != nil {
			body.Error = rootMessage(apiErr.Err)
		}
	}

	JSON(w, apiErr.Status, body)
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// rootMessage returns the innermost error text so storage details added
// by wrapping stay in the log.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
