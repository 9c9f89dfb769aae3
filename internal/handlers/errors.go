package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labeldesk/backend/internal/auth"
	"github.com/labeldesk/backend/internal/devices"
	"github.com/labeldesk/backend/internal/handlers/respond"
	"github.com/labeldesk/backend/internal/labels"
	"github.com/labeldesk/backend/internal/ledger"
	"github.com/labeldesk/backend/internal/tokens"
)

const (
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeLabelNotVoidable    = "LABEL_NOT_VOIDABLE"
	CodeLedgerDrift         = "LEDGER_DRIFT"
	CodeOTPAttemptsExceeded = "OTP_ATTEMPTS_EXCEEDED"

	msgInvalidSession = "Invalid or expired session"
	msgInternal       = "An Internal Error Occurred"
)

// writeServiceError maps domain errors to HTTP responses. Anything unknown is
// logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		respond.ErrorCode(w, "Insufficient balance", CodeInsufficientBalance, http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidDirection):
		respond.Error(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, auth.ErrAccountNotFound):
		respond.Error(w, "Account not found", http.StatusNotFound, nil)
	case errors.Is(err, ledger.ErrLedgerDrift):
		respond.ErrorCode(w, err.Error(), CodeLedgerDrift, http.StatusConflict)

	case errors.Is(err, tokens.ErrInvalidToken),
		errors.Is(err, tokens.ErrTokenExpired),
		errors.Is(err, tokens.ErrReuseDetected),
		errors.Is(err, tokens.ErrNotFound):
		respond.Error(w, msgInvalidSession, http.StatusUnauthorized, nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		respond.Error(w, "Invalid email or password", http.StatusUnauthorized, nil)
	case errors.Is(err, auth.ErrEmailTaken):
		respond.Error(w, "Email already registered", http.StatusConflict, nil)

	case errors.Is(err, labels.ErrNotFound):
		respond.Error(w, "Label not found", http.StatusNotFound, nil)
	case errors.Is(err, labels.ErrStatusConflict):
		respond.ErrorCode(w, "Label cannot be voided", CodeLabelNotVoidable, http.StatusConflict)
	case errors.Is(err, labels.ErrUnsupportedCarrier):
		respond.Error(w, "Unsupported carrier", http.StatusBadRequest, nil)

	case errors.Is(err, devices.ErrNotFound):
		respond.Error(w, "Device not found", http.StatusNotFound, nil)
	case errors.Is(err, devices.ErrAlreadyTrusted):
		respond.Error(w, "Device already trusted", http.StatusConflict, nil)
	case errors.Is(err, devices.ErrOTPExpired), errors.Is(err, devices.ErrOTPInvalid):
		respond.Error(w, "Invalid or expired code", http.StatusBadRequest, nil)
	case errors.Is(err, devices.ErrOTPAttemptsExceeded):
		respond.ErrorCode(w, "Too many attempts, request a new code", CodeOTPAttemptsExceeded, http.StatusTooManyRequests)

	default:
		logger.Error("request failed", "error", err)
		respond.Error(w, msgInternal, http.StatusInternalServerError, nil)
	}
}
