package blockchain

import (
	"strconv"

	vcrypto "github.com/VeltarosLabs/sealchain/internal/crypto"
)

// ValidatorRef is the public half of a validator as recorded in a block.
// Address is derived from PublicKey. Stake is not signed; engines check it
// against their validator set.
type ValidatorRef struct {
	Address   string         `json:"address"`
	Stake     uint64         `json:"stake"`
	Scheme    vcrypto.Scheme `json:"scheme"`
	PublicKey []byte         `json:"publicKey"`
}

// Verify reports whether signatureHex is this validator's signature over
// message. It returns false for malformed hex or signatures.
func (r ValidatorRef) Verify(message, signatureHex string) bool {
	sig, err := vcrypto.DecodeSignature(signatureHex)
	if err != nil {
		return false
	}
	return vcrypto.Verify(r.Scheme, r.PublicKey, []byte(message), sig)
}

func (r ValidatorRef) Clone() ValidatorRef {
	if r.PublicKey != nil {
		r.PublicKey = append([]byte(nil), r.PublicKey...)
	}
	return r
}

// AddressMatches reports whether Address is the one derived from PublicKey.
func (r ValidatorRef) AddressMatches() bool {
	addr, err := vcrypto.AddressFromPublicKey(r.PublicKey)
	if err != nil {
		return false
	}
	return addr == r.Address
}

// StakeBlock is a proof-of-stake block.
//
// Hash does not hold a content hash: it holds the validator's signature over
// ContentHash(Timestamp, Data). Signature is a second signature, over Hash.
// Validation therefore checks a signature of a signature. The layout is kept
// as-is for compatibility with existing chains.
type StakeBlock struct {
	Timestamp    int64        `json:"timestamp"` // epoch ms
	Data         string       `json:"data"`
	PreviousHash string       `json:"previousHash"`
	Validator    ValidatorRef `json:"validator"`
	Signature    string       `json:"signature"`
	Hash         string       `json:"hash"`
}

// ContentHash hashes decimal(timestamp) || data.
func ContentHash(timestamp int64, data string) string {
	return vcrypto.HashFields(strconv.FormatInt(timestamp, 10), data)
}

func (b StakeBlock) ID() string     { return b.Hash }
func (b StakeBlock) Parent() string { return b.PreviousHash }

func (b StakeBlock) Clone() StakeBlock {
	b.Validator = b.Validator.Clone()
	return b
}

// Digest is the content hash the Hash field signs.
func (b StakeBlock) Digest() string { return ContentHash(b.Timestamp, b.Data) }
