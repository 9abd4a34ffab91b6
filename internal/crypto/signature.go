package crypto

import (
	"errors"
	"fmt"
	"strings"
)

// Scheme names a signing algorithm a validator key pair can use.
type Scheme string

const (
	SchemeEd25519   Scheme = "ed25519"
	SchemeSecp256k1 Scheme = "secp256k1"
	SchemeRSA       Scheme = "rsa"
)

var ErrUnknownScheme = errors.New("unknown signature scheme")

// PrivateKey is a process-local signing key. Implementations never expose
// the secret material; only the encoded public key leaves the value.
type PrivateKey interface {
	Scheme() Scheme
	PublicKey() []byte
	Sign(msg []byte) ([]byte, error)
}

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeEd25519:
		return SchemeEd25519, nil
	case SchemeSecp256k1:
		return SchemeSecp256k1, nil
	case SchemeRSA:
		return SchemeRSA, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, s)
	}
}

func GenerateKey(s Scheme) (PrivateKey, error) {
	switch s {
	case SchemeEd25519:
		return generateEd25519()
	case SchemeSecp256k1:
		return generateSecp256k1()
	case SchemeRSA:
		return generateRSA()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, s)
	}
}

// Verify reports whether sig is a valid signature of msg under pub.
// Malformed keys or signatures yield false.
func Verify(s Scheme, pub, msg, sig []byte) bool {
	switch s {
	case SchemeEd25519:
		return VerifyEd25519(pub, msg, sig)
	case SchemeSecp256k1:
		return VerifySecp256k1(pub, msg, sig)
	case SchemeRSA:
		return VerifyRSA(pub, msg, sig)
	default:
		return false
	}
}
