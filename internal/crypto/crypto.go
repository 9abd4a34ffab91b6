package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrEmptySignature = errors.New("empty signature")

func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// DecodeSignature decodes a hex signature as stored in a block.
func DecodeSignature(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrEmptySignature
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	return b, nil
}
