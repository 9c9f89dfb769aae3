package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labeldesk/backend/internal/handlers/respond"
	"github.com/labeldesk/backend/internal/middleware"
	"github.com/labeldesk/backend/internal/models"
	"github.com/shopspring/decimal"
)

type LabelService interface {
	Price() decimal.Decimal
	Purchase(ctx context.Context, accountID, carrier string) (*models.Label, decimal.Decimal, error)
	Void(ctx context.Context, accountID, labelID string) (*models.Label, decimal.Decimal, error)
	Get(ctx context.Context, accountID, labelID string) (*models.Label, error)
	List(ctx context.Context, accountID string, limit, offset int) ([]models.Label, error)
	QR(ctx context.Context, accountID, labelID string) ([]byte, error)
}

type LabelHandler struct {
	service   LabelService
	validator *respond.Validator
	logger    *slog.Logger
}

func NewLabelHandler(service LabelService, validator *respond.Validator, logger *slog.Logger) *LabelHandler {
	return &LabelHandler{service: service, validator: validator, logger: logger}
}

type purchaseLabelRequest struct {
	Carrier string `json:"carrier" validate:"required,max=20"`
}

type labelResponse struct {
	Label   *models.Label   `json:"label"`
	Balance decimal.Decimal `json:"balance"`
}

func (h *LabelHandler) Price(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]decimal.Decimal{"price": h.service.Price()})
}

// Purchase buys a label, charging the label price to the caller.
func (h *LabelHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseLabelRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}
	accountID := middleware.AccountIDFromContext(r.Context())

	label, balance, err := h.service.Purchase(r.Context(), accountID, req.Carrier)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, labelResponse{Label: label, Balance: balance})
}

func (h *LabelHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountIDFromContext(r.Context())
	limit, offset := pagination(r)

	labels, err := h.service.List(r.Context(), accountID, limit, offset)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"labels": labels})
}

func (h *LabelHandler) Get(w http.ResponseWriter, r *http.Request) {
	labelID, ok := ownedID(w, r, "labelId", "Label not found")
	if !ok {
		return
	}
	accountID := middleware.AccountIDFromContext(r.Context())

	label, err := h.service.Get(r.Context(), accountID, labelID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, label)
}

// Void cancels a purchased label and refunds it.
func (h *LabelHandler) Void(w http.ResponseWriter, r *http.Request) {
	labelID, ok := ownedID(w, r, "labelId", "Label not found")
	if !ok {
		return
	}
	accountID := middleware.AccountIDFromContext(r.Context())

	label, balance, err := h.service.Void(r.Context(), accountID, labelID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, labelResponse{Label: label, Balance: balance})
}

// QR serves the label's tracking QR code as a PNG.
func (h *LabelHandler) QR(w http.ResponseWriter, r *http.Request) {
	labelID, ok := ownedID(w, r, "labelId", "Label not found")
	if !ok {
		return
	}
	accountID := middleware.AccountIDFromContext(r.Context())

	png, err := h.service.QR(r.Context(), accountID, labelID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
