package crypto

import (
	"encoding/hex"
	"errors"
)

const AddressLenBytes = 24 // 20 hash + 4 checksum

// AddressFromPublicKey derives a validator address from raw public key bytes:
// pubHash20 = sha256(pub)[:20]
// checksum4 = doubleSha256(pubHash20)[:4]
// address = hex(pubHash20||checksum4)
func AddressFromPublicKey(pub []byte) (string, error) {
	if len(pub) == 0 {
		return "", errors.New("empty public key")
	}

	h := Sha256(pub)
	pubHash20 := h[:20]

	check := DoubleSha256(pubHash20)
	addrBytes := make([]byte, 0, AddressLenBytes)
	addrBytes = append(addrBytes, pubHash20...)
	addrBytes = append(addrBytes, check[:4]...)

	return hex.EncodeToString(addrBytes), nil
}

func ValidateAddress(addr string) error {
	b, err := hex.DecodeString(addr)
	if err != nil {
		return errors.New("invalid address hex")
	}
	if len(b) != AddressLenBytes {
		return errors.New("invalid address length")
	}

	pubHash20 := b[:20]
	got := b[20:24]
	want := DoubleSha256(pubHash20)

	if !ConstantTimeEqual(got, want[:4]) {
		return errors.New("invalid address checksum")
	}
	return nil
}
