package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labeldesk/backend/internal/handlers/respond"
	"github.com/labeldesk/backend/internal/ledger"
	"github.com/labeldesk/backend/internal/middleware"
	"github.com/labeldesk/backend/internal/models"
	"github.com/shopspring/decimal"
)

// AdminHandler serves manual balance review for administrators. Every
// adjustment is recorded against the acting admin.
type AdminHandler struct {
	ledger    LedgerService
	validator *respond.Validator
	logger    *slog.Logger
}

func NewAdminHandler(ledger LedgerService, validator *respond.Validator, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{ledger: ledger, validator: validator, logger: logger}
}

type adjustRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Direction string          `json:"direction" validate:"required,oneof=credit debit"`
	Reason    string          `json:"reason" validate:"required,max=200"`
	Reference *string         `json:"reference" validate:"omitempty,max=100"`
}

func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}
	adminID := middleware.AccountIDFromContext(r.Context())

	balance, err := h.ledger.ApplyChange(r.Context(), ledger.Change{
		AccountID:     accountID,
		Amount:        req.Amount,
		Direction:     models.Direction(req.Direction),
		Reason:        "admin:" + req.Reason,
		Reference:     req.Reference,
		ActingAdminID: &adminID,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("admin balance adjustment",
		"admin_id", adminID, "account_id", accountID, "direction", req.Direction, "amount", req.Amount.StringFixed(2))
	respond.JSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance})
}

func (h *AdminHandler) Entries(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	entries, err := h.ledger.Entries(r.Context(), accountID, limit, offset)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Reconcile replays an account's entries against its stored balance. Drift is
// reported as 409 together with what was replayed.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountParam(w, r)
	if !ok {
		return
	}

	rec, err := h.ledger.Reconcile(r.Context(), accountID)
	if errors.Is(err, ledger.ErrLedgerDrift) {
		h.logger.Error("ledger drift detected", "account_id", accountID, "error", err)
		respond.JSON(w, http.StatusConflict, map[string]any{
			"error":          err.Error(),
			"code":           CodeLedgerDrift,
			"reconciliation": rec,
		})
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}
