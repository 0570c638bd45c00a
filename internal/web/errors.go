package web

// errors.go turns service errors into JSON responses.
//
// Every handler error goes through respondError, which:
//  1. maps the error to a user message and code with core.MapError
//  2. picks the HTTP status from the error kind
//  3. logs the technical error with the request id
//  4. writes {"error": {"message", "action", "code"}}

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/dryerlog/internal/core"
	"github.com/JonMunkholm/dryerlog/internal/logging"
)

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error core.UserMessage `json:"error"`
	// Lines lists malformed CSV lines when a file was rejected for them.
	Lines []core.RowError `json:"lines,omitempty"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyParses):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrParse),
		errors.Is(err, core.ErrNoValidData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoRecords):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	resp := ErrorResponse{Error: msg}
	var report *core.ParseReport
	if errors.As(err, &report) {
		resp.Lines = report.Errors
	}
	writeJSONStatus(w, status, resp)
}

// writeError writes a fixed user message for failures that do not come
// from the service, such as rate limiting.
func writeError(w http.ResponseWriter, status int, msg core.UserMessage) {
	writeJSONStatus(w, status, ErrorResponse{Error: msg})
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent.
		slog.Error("json encode failed", "error", err)
	}
}
