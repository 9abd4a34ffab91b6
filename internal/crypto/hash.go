package crypto

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func Sha256(data []byte) [32]byte {
	return chainhash.HashH(data)
}

func DoubleSha256(data []byte) [32]byte {
	return chainhash.DoubleHashH(data)
}

func Hex32(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// HashFields concatenates fields in the order given, with no separator, and
// returns the lowercase hex SHA-256 of the result. Callers must pass fields in
// the same order when sealing and when re-validating.
func HashFields(fields ...string) string {
	return hex.EncodeToString(chainhash.HashB([]byte(strings.Join(fields, ""))))
}
