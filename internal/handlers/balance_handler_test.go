package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/labeldesk/backend/internal/handlers/respond"
	"github.com/labeldesk/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type balanceBody struct {
	AccountID string          `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
}

type entriesBody struct {
	Entries []models.LedgerEntry `json:"entries"`
}

func TestBalanceHandler_TopUpPurchaseAndOverdraw(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/v1/balance", "", userID, models.RoleUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[balanceBody](t, w).Balance.IsZero())

	w = h.do(t, http.MethodPost, "/api/v1/balance/topup", `{"plan":"standard"}`, userID, models.RoleUser)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "14.50", decodeBody[balanceBody](t, w).Balance.StringFixed(2))

	w = h.do(t, http.MethodPost, "/api/v1/labels", `{"carrier":"ups"}`, userID, models.RoleUser)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "13.50", decodeBody[labelResponse](t, w).Balance.StringFixed(2))

	w = h.do(t, http.MethodPost, "/api/v1/admin/accounts/"+userID+"/adjust",
		`{"amount":"20.00","direction":"debit","reason":"chargeback"}`, adminID, models.RoleAdmin)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errBody := decodeBody[respond.ErrorResponse](t, w)
	assert.Equal(t, CodeInsufficientBalance, errBody.Code)

	w = h.do(t, http.MethodGet, "/api/v1/balance/entries", "", userID, models.RoleUser)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decodeBody[entriesBody](t, w).Entries
	require.Len(t, entries, 2)
	assert.Equal(t, "-1.00", entries[0].Amount.StringFixed(2))
	assert.Equal(t, "13.50", entries[0].BalanceAfter.StringFixed(2))
	assert.Equal(t, "topup:standard", entries[1].Reason)

	balance, err := h.ledger.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "13.50", balance.StringFixed(2))
}

func TestBalanceHandler_TopUpRejectsUnknownPlan(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/v1/balance/topup", `{"plan":"platinum"}`, userID, models.RoleUser)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody[respond.ErrorResponse](t, w).Details, "plan")

	w = h.do(t, http.MethodPost, "/api/v1/balance/topup", `{"plan":"standard","amount":1000}`, userID, models.RoleUser)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBalanceHandler_UnknownAccountReadsZero(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/v1/balance", "", "5b0f3a52-6a3e-4a59-9d0e-0c6f4f3b1aff", models.RoleUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[balanceBody](t, w).Balance.IsZero())
}

func TestBalanceHandler_TopUpUnknownAccount(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/v1/balance/topup", `{"plan":"starter"}`, "5b0f3a52-6a3e-4a59-9d0e-0c6f4f3b1aff", models.RoleUser)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
