package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labeldesk/backend/internal/auth"
	"github.com/labeldesk/backend/internal/handlers/respond"
)

type contextKey string

const (
	accountIDKey contextKey = "accountID"
	roleKey      contextKey = "role"
	deviceIDKey  contextKey = "deviceID"
)

// Authenticator validates bearer access tokens.
type Authenticator struct {
	tokens *auth.AccessTokens
}

func NewAuthenticator(tokens *auth.AccessTokens) *Authenticator {
	return &Authenticator{tokens: tokens}
}

func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respond.Error(w, "Authorization header required", http.StatusUnauthorized, nil)
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			respond.Error(w, "Invalid authorization header format", http.StatusUnauthorized, nil)
			return
		}

		claims, err := a.tokens.Parse(token)
		if err != nil {
			respond.Error(w, "Invalid token", http.StatusUnauthorized, nil)
			return
		}

		ctx := WithIdentity(r.Context(), claims.Subject, claims.Role, claims.DeviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose role differs from role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				respond.Error(w, "Forbidden", http.StatusForbidden, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity stores the authenticated caller on ctx.
func WithIdentity(ctx context.Context, accountID, role, deviceID string) context.Context {
	ctx = context.WithValue(ctx, accountIDKey, accountID)
	ctx = context.WithValue(ctx, roleKey, role)
	return context.WithValue(ctx, deviceIDKey, deviceID)
}

func AccountIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(accountIDKey).(string)
	return v
}

func RoleFromContext(ctx context.Context) string {
	v, _ := ctx.Value(roleKey).(string)
	return v
}

func DeviceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(deviceIDKey).(string)
	return v
}
