package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labeldesk/backend/internal/auth"
	"github.com/labeldesk/backend/internal/handlers/respond"
	"github.com/labeldesk/backend/internal/models"
	"github.com/labeldesk/backend/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Register(t *testing.T) {
	h := newHarness(t)
	account := &models.Account{ID: userID, Email: "user@example.com", Role: models.RoleUser}
	h.auth.On("Register", mock.Anything, "user@example.com", "correct-horse").Return(account, nil).Once()
	h.auth.On("Register", mock.Anything, "taken@example.com", "correct-horse").Return(nil, auth.ErrEmailTaken).Once()

	w := h.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"user@example.com","password":"correct-horse"}`, "", "")
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.Equal(t, userID, body["id"])
	assert.NotContains(t, body, "passwordHash")

	w = h.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"taken@example.com","password":"correct-horse"}`, "", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"user@example.com","password":"short"}`, "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody[respond.ErrorResponse](t, w).Details, "password")

	h.auth.AssertExpectations(t)
}

func TestAuthHandler_Login(t *testing.T) {
	h := newHarness(t)
	session := &auth.Session{
		AccessToken:      "access",
		AccessExpiresAt:  time.Now().Add(time.Minute),
		RefreshToken:     "01J0000000000000000000000.secret",
		RefreshExpiresAt: time.Now().Add(time.Hour),
		Account:          &models.Account{ID: userID},
	}
	h.auth.On("Login", mock.Anything, auth.LoginInput{
		Email:       "user@example.com",
		Password:    "correct-horse",
		Fingerprint: "fp-1",
	}).Return(session, nil).Once()
	h.auth.On("Login", mock.Anything, mock.MatchedBy(func(in auth.LoginInput) bool {
		return in.Password == "wrong-horse"
	})).Return(nil, auth.ErrInvalidCredentials).Once()

	w := h.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"user@example.com","password":"correct-horse","deviceFingerprint":"fp-1"}`, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, session.RefreshToken, decodeBody[auth.Session](t, w).RefreshToken)

	w = h.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"user@example.com","password":"wrong-horse"}`, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	h.auth.AssertExpectations(t)
}

func TestAuthHandler_RefreshFailuresAreUniform(t *testing.T) {
	failures := map[string]error{
		"invalid": tokens.ErrInvalidToken,
		"expired": tokens.ErrTokenExpired,
		"reuse":   &tokens.ReuseDetectedError{AccountID: userID, Reason: tokens.ReasonRotatedReplayed, Revoked: 2},
	}

	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.auth.On("Refresh", mock.Anything, "presented").Return(nil, failure).Once()

			w := h.do(t, http.MethodPost, "/api/v1/auth/refresh", `{"refreshToken":"presented"}`, "", "")
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, msgInvalidSession, decodeBody[respond.ErrorResponse](t, w).Error)
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	h := newHarness(t)
	h.auth.On("Refresh", mock.Anything, "presented").Return(&auth.Session{RefreshToken: "next"}, nil).Once()

	w := h.do(t, http.MethodPost, "/api/v1/auth/refresh", `{"refreshToken":"presented"}`, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "next", decodeBody[auth.Session](t, w).RefreshToken)

	w = h.do(t, http.MethodPost, "/api/v1/auth/refresh", `{}`, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	h := newHarness(t)
	h.auth.On("Logout", mock.Anything, "presented").Return(nil).Once()
	h.auth.On("LogoutAll", mock.Anything, userID).Return(int64(3), nil).Once()

	w := h.do(t, http.MethodPost, "/api/v1/auth/logout", `{"refreshToken":"presented"}`, "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, http.MethodPost, "/api/v1/auth/logout-all", "", userID, models.RoleUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), decodeBody[map[string]int64](t, w)["revoked"])

	h.auth.AssertExpectations(t)
}

func TestAuthHandler_MeAndInternalErrors(t *testing.T) {
	h := newHarness(t)
	h.auth.On("Account", mock.Anything, userID).Return(&models.Account{ID: userID, Email: "user@example.com"}, nil).Once()
	h.auth.On("Account", mock.Anything, adminID).Return(nil, errors.New("connection reset")).Once()

	w := h.do(t, http.MethodGet, "/api/v1/auth/account", "", userID, models.RoleUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user@example.com", decodeBody[models.Account](t, w).Email)

	w = h.do(t, http.MethodGet, "/api/v1/auth/account", "", adminID, models.RoleAdmin)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgInternal, decodeBody[respond.ErrorResponse](t, w).Error)
}
