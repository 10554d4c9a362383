package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/scheduler"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error codes carried in errorResponse.ErrorCode.
const (
	codeValidationFailed   = "VALIDATION_FAILED"
	codeForbidden          = "FORBIDDEN"
	codeNotFound           = "NOT_FOUND"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeAlreadyExists      = "ALREADY_EXISTS"
	codeInternal           = "INTERNAL"
)

var (
	errBadRequestBody = errors.New("Invalid request body.")
	errMissingRange   = errors.New("Missing time range")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError reports a request the handler rejected before reaching a service.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, errors.New("unknown error"))
		return
	}

	var violation *scheduler.RuleViolation
	if errors.As(err, &violation) {
		r.writeJSON(ctx, w, ruleStatus(violation.Reason), errorResponse{
			ErrorCode: string(violation.Reason),
			Message:   ruleMessage(violation),
		})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: codeValidationFailed,
			Message:   "Request validation failed.",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: codeForbidden,
			Message:   "Unauthorized or booking not found",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{ErrorCode: codeNotFound, Message: "Resource not found."})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{ErrorCode: codeAlreadyExists, Message: "Email already exists"})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{ErrorCode: codeInvalidCredentials, Message: "Invalid credentials"})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{ErrorCode: codeInternal, Message: "Internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func ruleStatus(reason scheduler.Reason) int {
	switch reason {
	case scheduler.ReasonRoomNotFound:
		return http.StatusNotFound
	case scheduler.ReasonCapacityExceeded:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func ruleMessage(v *scheduler.RuleViolation) string {
	switch v.Reason {
	case scheduler.ReasonPastTime:
		return "Cannot book for past time slots."
	case scheduler.ReasonWrongDay:
		return "Bookings are allowed for today only."
	case scheduler.ReasonOutsideBusinessHours:
		return "Bookings must be within business hours."
	case scheduler.ReasonInvalidDuration:
		return "Booking duration is outside the allowed range."
	case scheduler.ReasonRoomNotFound:
		return "Room not found"
	case scheduler.ReasonCapacityExceeded:
		return fmt.Sprintf("Room over capacity. Already booked for %d people.", v.AlreadyBooked)
	default:
		return v.Error()
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}
