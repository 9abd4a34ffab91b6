package crypto

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// secp256k1 keys sign sha256(msg) with RFC6979 deterministic ECDSA.
// Public keys are 33-byte compressed points, signatures are DER.
type secp256k1Key struct {
	priv *btcec.PrivateKey
}

func generateSecp256k1() (PrivateKey, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &secp256k1Key{priv: priv}, nil
}

func (k *secp256k1Key) Scheme() Scheme { return SchemeSecp256k1 }

func (k *secp256k1Key) PublicKey() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

func (k *secp256k1Key) Sign(msg []byte) ([]byte, error) {
	sig := ecdsa.Sign(k.priv, chainhash.HashB(msg))
	return sig.Serialize(), nil
}

func VerifySecp256k1(pub, msg, sig []byte) bool {
	pk, err := btcec.ParsePubKey(pub)
	if err != nil {
		return false
	}
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(chainhash.HashB(msg), pk)
}
