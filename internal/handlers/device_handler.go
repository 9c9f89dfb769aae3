package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labeldesk/backend/internal/handlers/respond"
	"github.com/labeldesk/backend/internal/middleware"
	"github.com/labeldesk/backend/internal/models"
)

type DeviceService interface {
	Register(ctx context.Context, accountID, fingerprint, label string) (*models.Device, error)
	List(ctx context.Context, accountID string) ([]models.Device, error)
	RequestOTP(ctx context.Context, accountID, deviceID string) error
	VerifyOTP(ctx context.Context, accountID, deviceID, code string) (*models.Device, error)
	SignOut(ctx context.Context, accountID, deviceID string) (int64, error)
}

type DeviceHandler struct {
	service   DeviceService
	validator *respond.Validator
	logger    *slog.Logger
}

func NewDeviceHandler(service DeviceService, validator *respond.Validator, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{service: service, validator: validator, logger: logger}
}

type registerDeviceRequest struct {
	Fingerprint string `json:"fingerprint" validate:"required,max=255"`
	Label       string `json:"label" validate:"omitempty,max=100"`
}

type verifyOTPRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountIDFromContext(r.Context())

	devices, err := h.service.List(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// Register records a device for the caller. Registering a known fingerprint
// returns the existing device.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}
	accountID := middleware.AccountIDFromContext(r.Context())

	device, err := h.service.Register(r.Context(), accountID, req.Fingerprint, req.Label)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, device)
}

// RequestOTP sends a one-time code that trusts the device once verified.
func (h *DeviceHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := ownedID(w, r, "deviceId", "Device not found")
	if !ok {
		return
	}
	accountID := middleware.AccountIDFromContext(r.Context())

	if err := h.service.RequestOTP(r.Context(), accountID, deviceID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *DeviceHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := ownedID(w, r, "deviceId", "Device not found")
	if !ok {
		return
	}
	var req verifyOTPRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}
	accountID := middleware.AccountIDFromContext(r.Context())

	device, err := h.service.VerifyOTP(r.Context(), accountID, deviceID, req.Code)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, device)
}

// SignOut ends every session bound to the device.
func (h *DeviceHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := ownedID(w, r, "deviceId", "Device not found")
	if !ok {
		return
	}
	accountID := middleware.AccountIDFromContext(r.Context())

	n, err := h.service.SignOut(r.Context(), accountID, deviceID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int64{"revoked": n})
}
