package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: specific errors come before the ones they wrap.
var errorMappings = []errorMapping{
	{domain.ErrNotParticipant, http.StatusForbidden, "NOT_PARTICIPANT", "you are not a participant of this inquiry"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "forbidden"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "not found"},
	{domain.ErrNotApproved, http.StatusConflict, "NOT_APPROVED", "inquiry is not approved for chat"},
	{domain.ErrEmptyMessage, http.StatusUnprocessableEntity, "EMPTY_MESSAGE", "message body is empty"},
	{domain.ErrPerUserQuotaExceeded, http.StatusUnprocessableEntity, "PER_USER_QUOTA_EXCEEDED", "you have reached your message limit for this inquiry"},
	{domain.ErrTotalQuotaExceeded, http.StatusUnprocessableEntity, "TOTAL_QUOTA_EXCEEDED", "this inquiry has reached its message limit"},
	{domain.ErrLockTimeout, http.StatusServiceUnavailable, "LOCK_TIMEOUT", "inquiry is busy, retry shortly"},
	{domain.ErrConcurrentModification, http.StatusConflict, "CONCURRENT_MODIFICATION", "inquiry was modified concurrently, retry"},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION", "approval status cannot change"},
	{domain.ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "already exists"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT", "conflict"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorPayload{Code: code, Message: message}})
}

// writeDomainError maps a service error to a response. Unknown errors are
// logged and hidden behind a generic 500.
func writeDomainError(ctx context.Context, log *slog.Logger, w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		fields := make([]fieldError, 0, len(verr.Errors))
		for _, fe := range verr.Errors {
			fields = append(fields, fieldError{Field: fe.Field, Message: fe.Message})
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorPayload{
			Code:    "VALIDATION",
			Message: "invalid input",
			Fields:  fields,
		}})
		return
	}

	if errors.Is(err, context.Canceled) {
		// Client went away; nothing useful to send.
		w.WriteHeader(499)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "TIMEOUT", "request timed out")
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.target == domain.ErrLockTimeout {
				w.Header().Set("Retry-After", "1")
			}
			writeJSON(w, m.status, errorResponse{Error: errorPayload{Code: m.code, Message: m.message}})
			return
		}
	}

	log.ErrorContext(ctx, "unhandled error", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}
