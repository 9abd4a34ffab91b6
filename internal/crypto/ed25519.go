package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
)

type ed25519Key struct {
	priv ed25519.PrivateKey
}

func generateEd25519() (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ed25519Key{priv: priv}, nil
}

func (k *ed25519Key) Scheme() Scheme { return SchemeEd25519 }

func (k *ed25519Key) PublicKey() []byte {
	pub := k.priv.Public().(ed25519.PublicKey)
	out := make([]byte, len(pub))
	copy(out, pub)
	return out
}

func (k *ed25519Key) Sign(msg []byte) ([]byte, error) {
	return SignEd25519(k.priv, msg)
}

func SignEd25519(priv ed25519.PrivateKey, msg []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid ed25519 private key size")
	}
	return ed25519.Sign(priv, msg), nil
}

func VerifyEd25519(pub, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}
