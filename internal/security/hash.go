package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/labeldesk/backend/internal/config"
	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed hash")

// Hasher produces and checks argon2id hashes encoded as "salt$hash"
// (both base64). It is used for passwords, refresh secrets and OTP codes.
type Hasher struct {
	params config.Argon2Config
}

func NewHasher(params config.Argon2Config) *Hasher {
	if params.SaltLength <= 0 {
		params.SaltLength = 16
	}
	if params.KeyLength == 0 {
		params.KeyLength = 32
	}
	if params.Time == 0 {
		params.Time = 1
	}
	if params.Memory == 0 {
		params.Memory = 64 * 1024
	}
	if params.Threads == 0 {
		params.Threads = 4
	}
	return &Hasher{params: params}
}

func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := h.derive(secret, salt)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

// Verify reports whether secret matches encoded. A malformed encoding never matches.
func (h *Hasher) Verify(secret, encoded string) bool {
	salt, hash, err := decode(encoded)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.Memory, h.params.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}

func (h *Hasher) derive(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLength)
}

func decode(encoded string) (salt, hash []byte, err error) {
	saltPart, hashPart, ok := strings.Cut(encoded, "$")
	if !ok {
		return nil, nil, ErrMalformedHash
	}
	salt, err = base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return nil, nil, ErrMalformedHash
	}
	hash, err = base64.StdEncoding.DecodeString(hashPart)
	if err != nil || len(hash) == 0 {
		return nil, nil, ErrMalformedHash
	}
	return salt, hash, nil
}
