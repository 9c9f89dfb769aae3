package tokens

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidToken  = errors.New("invalid refresh token")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrReuseDetected = errors.New("refresh token reuse detected")
	ErrNotFound      = errors.New("refresh token not found")
)

// Reuse reasons written to the security audit trail.
const (
	ReasonRevokedPresented = "revoked_token_presented"
	ReasonSecretMismatch   = "secret_mismatch"
	ReasonRotatedReplayed  = "rotated_token_replayed"
)

// ReuseDetectedError is returned after the token family of the presented
// token has been revoked. It matches ErrReuseDetected with errors.Is.
type ReuseDetectedError struct {
	TokenID   string
	AccountID string
	DeviceID  *string
	Reason    string
	Revoked   int64
}

func (e *ReuseDetectedError) Error() string {
	return fmt.Sprintf("%s: %s (token %s)", ErrReuseDetected, e.Reason, e.TokenID)
}

func (e *ReuseDetectedError) Unwrap() error {
	return ErrReuseDetected
}
