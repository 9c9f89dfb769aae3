package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labeldesk/backend/internal/handlers/respond"
	"github.com/labeldesk/backend/internal/ledger"
	"github.com/labeldesk/backend/internal/middleware"
	"github.com/labeldesk/backend/internal/models"
	"github.com/shopspring/decimal"
)

// LedgerService is the ledger surface used by the balance and admin handlers.
type LedgerService interface {
	ApplyChange(ctx context.Context, c ledger.Change) (decimal.Decimal, error)
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, reason string) (decimal.Decimal, error)
	GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	Entries(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error)
	Reconcile(ctx context.Context, accountID string) (ledger.Reconciliation, error)
}

// TopUpPlans are the credit packs an account can buy.
var TopUpPlans = map[string]decimal.Decimal{
	"starter":  decimal.RequireFromString("5.00"),
	"standard": decimal.RequireFromString("14.50"),
	"business": decimal.RequireFromString("45.00"),
}

type BalanceHandler struct {
	ledger    LedgerService
	validator *respond.Validator
	logger    *slog.Logger
}

func NewBalanceHandler(ledger LedgerService, validator *respond.Validator, logger *slog.Logger) *BalanceHandler {
	return &BalanceHandler{ledger: ledger, validator: validator, logger: logger}
}

type balanceResponse struct {
	AccountID string          `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
}

type topUpRequest struct {
	Plan string `json:"plan" validate:"required,oneof=starter standard business"`
}

func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountIDFromContext(r.Context())

	balance, err := h.ledger.GetBalance(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance})
}

// ListEntries returns the caller's ledger history, newest first.
func (h *BalanceHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountIDFromContext(r.Context())
	limit, offset := pagination(r)

	entries, err := h.ledger.Entries(r.Context(), accountID, limit, offset)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// TopUp credits the price of a plan. Payment capture happens upstream.
func (h *BalanceHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}
	accountID := middleware.AccountIDFromContext(r.Context())

	balance, err := h.ledger.Credit(r.Context(), accountID, TopUpPlans[req.Plan], "topup:"+req.Plan)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance})
}
