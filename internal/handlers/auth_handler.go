package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labeldesk/backend/internal/auth"
	"github.com/labeldesk/backend/internal/handlers/respond"
	"github.com/labeldesk/backend/internal/middleware"
	"github.com/labeldesk/backend/internal/models"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.Account, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, accountID string) (int64, error)
	Account(ctx context.Context, accountID string) (*models.Account, error)
}

type AuthHandler struct {
	service   AuthService
	validator *respond.Validator
	logger    *slog.Logger
}

func NewAuthHandler(service AuthService, validator *respond.Validator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, validator: validator, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type loginRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	Fingerprint string `json:"deviceFingerprint" validate:"omitempty,max=255"`
	DeviceLabel string `json:"deviceLabel" validate:"omitempty,max=100"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Register creates an account with a zero balance.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}

	account, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, account)
}

// Login exchanges credentials for an access and refresh token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), auth.LoginInput{
		Email:       req.Email,
		Password:    req.Password,
		Fingerprint: req.Fingerprint,
		DeviceLabel: req.DeviceLabel,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, session)
}

// Refresh rotates the presented refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}

	session, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, session)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.validator.Decode(w, r, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the caller.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountIDFromContext(r.Context())

	n, err := h.service.LogoutAll(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int64{"revoked": n})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountIDFromContext(r.Context())

	account, err := h.service.Account(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, account)
}
