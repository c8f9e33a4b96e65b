// Package response provides the JSON envelope of the query API. Every
// response carries a data field on success and an error field on failure.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/smtindex/pkg/errors"
)

// Response is the envelope. Exactly one of Data and Error is set.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error is a machine-readable code plus a human message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success wraps data in an envelope.
func Success(data any) Response { return Response{Data: data} }

// Fail builds an error envelope.
func Fail(code, message, details string) Response {
	return Response{Error: &Error{Code: code, Message: message, Details: details}}
}

// JSON writes resp with the given status. Encoding errors are dropped
// since the status line is already sent.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

// OK writes data with status 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

func fail(w http.ResponseWriter, status int, code, message, details string) {
	JSON(w, status, Fail(code, message, details))
}

// BadRequest writes a 400 for a rejected query parameter.
func BadRequest(w http.ResponseWriter, message, details string) {
	fail(w, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

// NotFound writes a 404 for an unknown template id.
func NotFound(w http.ResponseWriter, message, details string) {
	fail(w, http.StatusNotFound, "NOT_FOUND", message, details)
}

// MethodNotAllowed writes a 405. The API only answers GET and HEAD.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	fail(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", method+" not allowed", "")
}

// InternalError writes a 500 without exposing the cause.
func InternalError(w http.ResponseWriter, _ error) {
	fail(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", "")
}

// ServiceUnavailable writes a 503, used until an index has loaded.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	fail(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, "")
}

// ErrorFromType maps typed errors to HTTP responses.
func ErrorFromType(w http.ResponseWriter, err error) {
	var notFound *errors.NotFoundError
	var invalid *errors.ValidationError
	switch {
	case errors.As(err, &notFound):
		NotFound(w, notFound.Error(), "")
	case errors.As(err, &invalid):
		BadRequest(w, invalid.Error(), "")
	case errors.Is(err, errors.ErrNotReady):
		ServiceUnavailable(w, "no index loaded")
	default:
		InternalError(w, err)
	}
}
