package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// OpaqueSecret returns nBytes of randomness, URL-safe base64 without padding.
func OpaqueSecret(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NumericCode returns a uniformly random decimal code of the given length.
func NumericCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
