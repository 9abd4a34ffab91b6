package consensus

import (
	"encoding/hex"
	"fmt"

	"github.com/VeltarosLabs/sealchain/internal/blockchain"
	vcrypto "github.com/VeltarosLabs/sealchain/internal/crypto"
)

// Validator is a staking participant with its own signing key pair. The
// private key never leaves the value.
type Validator struct {
	stake   uint64
	key     vcrypto.PrivateKey
	address string
}

// NewValidator generates a fresh key pair for a validator with the given
// stake. Stake must be positive.
func NewValidator(stake uint64, scheme vcrypto.Scheme) (*Validator, error) {
	if stake == 0 {
		return nil, ErrInvalidStake
	}
	return newValidator(stake, scheme)
}

// newValidator skips the stake precondition; genesis is signed by a
// throwaway zero-stake validator.
func newValidator(stake uint64, scheme vcrypto.Scheme) (*Validator, error) {
	key, err := vcrypto.GenerateKey(scheme)
	if err != nil {
		return nil, fmt.Errorf("generate validator key: %w", err)
	}
	addr, err := vcrypto.AddressFromPublicKey(key.PublicKey())
	if err != nil {
		return nil, err
	}
	return &Validator{stake: stake, key: key, address: addr}, nil
}

func (v *Validator) Stake() uint64          { return v.stake }
func (v *Validator) Address() string        { return v.address }
func (v *Validator) Scheme() vcrypto.Scheme { return v.key.Scheme() }

func (v *Validator) Ref() blockchain.ValidatorRef {
	return blockchain.ValidatorRef{
		Address:   v.address,
		Stake:     v.stake,
		Scheme:    v.key.Scheme(),
		PublicKey: v.key.PublicKey(),
	}
}

// Sign returns the hex signature of message.
func (v *Validator) Sign(message string) (string, error) {
	sig, err := v.key.Sign([]byte(message))
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// Verify reports whether signature is this validator's signature of message.
func (v *Validator) Verify(message, signature string) bool {
	return v.Ref().Verify(message, signature)
}

func (v *Validator) String() string {
	return fmt.Sprintf("Validator{Address: %s, Stake: %d, Scheme: %s}", v.address, v.stake, v.key.Scheme())
}
