package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"videotube-accounts/internal/apperr"
)

const internalMessage = "internal server error"

type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Data       any      `json:"data"`
}

// Success writes data wrapped in the standard envelope.
func Success(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error renders err as the uniform error envelope. Anything that is not an
// *apperr.Error, or is of kind Internal, is reported to Sentry and rendered
// with a generic message.
func Error(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	message := internalMessage
	details := []string{}

	if kind == apperr.KindInternal {
		sentry.CaptureException(err)
	} else {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			message = appErr.Message
			if len(appErr.Details) > 0 {
				details = appErr.Details
			}
		}
	}

	status := kind.Status()
	writeJSON(w, status, ErrorEnvelope{
		StatusCode: status,
		Success:    false,
		Message:    message,
		Errors:     details,
		Data:       nil,
	})
}

// Fail renders an ad-hoc error envelope without going through apperr.
func Fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorEnvelope{
		StatusCode: status,
		Success:    false,
		Message:    message,
		Errors:     []string{},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
