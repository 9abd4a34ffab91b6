package crypto

import (
	gocrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const RSAKeyBits = 2048

// RSA keys sign with PKCS#1 v1.5 over SHA-256. Public keys are PKIX DER.
type rsaKey struct {
	priv *rsa.PrivateKey
	pub  []byte
}

func generateRSA() (PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return nil, err
	}
	pub, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &rsaKey{priv: priv, pub: pub}, nil
}

func (k *rsaKey) Scheme() Scheme { return SchemeRSA }

func (k *rsaKey) PublicKey() []byte {
	out := make([]byte, len(k.pub))
	copy(out, k.pub)
	return out
}

func (k *rsaKey) Sign(msg []byte) ([]byte, error) {
	return rsa.SignPKCS1v15(rand.Reader, k.priv, gocrypto.SHA256, chainhash.HashB(msg))
}

func VerifyRSA(pub, msg, sig []byte) bool {
	parsed, err := x509.ParsePKIXPublicKey(pub)
	if err != nil {
		return false
	}
	pk, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return false
	}
	return rsa.VerifyPKCS1v15(pk, gocrypto.SHA256, chainhash.HashB(msg), sig) == nil
}
