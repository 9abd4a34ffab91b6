package consensus

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/VeltarosLabs/sealchain/internal/blockchain"
	vcrypto "github.com/VeltarosLabs/sealchain/internal/crypto"
	"github.com/VeltarosLabs/sealchain/internal/logging"
)

const DefaultVerifyCacheSize = 1024

type PoSConfig struct {
	// Scheme is used for the genesis validator. Pool members bring their own.
	Scheme vcrypto.Scheme
	// Source drives validator selection; nil uses the process-wide generator.
	Source Source
	// VerifyCacheSize bounds the memo of verified signatures. Zero disables it.
	VerifyCacheSize int
	Now             func() time.Time
}

func DefaultPoSConfig() PoSConfig {
	return PoSConfig{
		Scheme:          vcrypto.SchemeEd25519,
		VerifyCacheSize: DefaultVerifyCacheSize,
	}
}

// PoS seals blocks by picking a validator from the pool by stake and
// having it sign the block.
type PoS struct {
	pool     *Pool
	selector *StakeSelector
	scheme   vcrypto.Scheme
	now      func() time.Time
	log      *slog.Logger

	verified *lru.Cache
}

func NewPoS(pool *Pool, cfg PoSConfig, log *slog.Logger) (*PoS, error) {
	if pool == nil || pool.Len() == 0 {
		return nil, ErrEmptyPool
	}
	if cfg.Scheme == "" {
		cfg.Scheme = vcrypto.SchemeEd25519
	}
	if _, err := vcrypto.ParseScheme(string(cfg.Scheme)); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}

	p := &PoS{
		pool:     pool,
		selector: NewStakeSelector(cfg.Source),
		scheme:   cfg.Scheme,
		now:      cfg.Now,
		log:      log,
	}
	if cfg.VerifyCacheSize > 0 {
		c, err := lru.New(cfg.VerifyCacheSize)
		if err != nil {
			return nil, fmt.Errorf("verify cache: %w", err)
		}
		p.verified = c
	}
	return p, nil
}

func (p *PoS) Pool() *Pool { return p.pool }

// Genesis is signed by a throwaway zero-stake validator whose private key
// is dropped once the block is built.
func (p *PoS) Genesis() (blockchain.StakeBlock, error) {
	v, err := newValidator(0, p.scheme)
	if err != nil {
		return blockchain.StakeBlock{}, err
	}
	return SealStakeBlock(blockchain.GenesisData, "", v, nowMillis(p.now))
}

func (p *PoS) Seal(ctx context.Context, parent blockchain.StakeBlock, height uint64, data string) (blockchain.StakeBlock, error) {
	if err := ctx.Err(); err != nil {
		return blockchain.StakeBlock{}, err
	}

	v, err := p.selector.Select(p.pool.validators)
	if err != nil {
		return blockchain.StakeBlock{}, err
	}
	p.log.Debug("validator selected",
		"height", height,
		"validator", v.address,
		"stake", v.stake,
		"share", p.pool.Share(v.address).StringFixed(4),
	)

	return SealStakeBlock(data, parent.Hash, v, nowMillis(p.now))
}

// CheckIntegrity verifies that the validator address derives from its
// public key and that Hash is the validator's signature over the block's
// content hash.
func (p *PoS) CheckIntegrity(b blockchain.StakeBlock) error {
	if !b.Validator.AddressMatches() {
		return fmt.Errorf("%w: validator address does not match public key", blockchain.ErrIntegrity)
	}
	if !p.verify(b.Validator, b.Digest(), b.Hash) {
		return blockchain.ErrIntegrity
	}
	return nil
}

// CheckSeal verifies that Signature is the validator's signature over Hash
// and that the validator, stake included, is a member of the pool. Stake is
// not covered by any signature, so the pool is its only authority.
func (p *PoS) CheckSeal(b blockchain.StakeBlock) error {
	if !p.verify(b.Validator, b.Hash, b.Signature) {
		return blockchain.ErrSeal
	}
	if !p.pool.Contains(b.Validator) {
		return fmt.Errorf("%w: validator %s with stake %d is not in the pool", blockchain.ErrSeal, b.Validator.Address, b.Validator.Stake)
	}
	return nil
}

// verify memoises successful checks only, so a tampered block can never
// hit the cache with a stale positive.
func (p *PoS) verify(ref blockchain.ValidatorRef, message, signature string) bool {
	if p.verified == nil {
		return ref.Verify(message, signature)
	}

	key := vcrypto.HashFields(string(ref.Scheme), "\x00", hex.EncodeToString(ref.PublicKey), "\x00", message, "\x00", signature)
	if p.verified.Contains(key) {
		return true
	}
	if !ref.Verify(message, signature) {
		return false
	}
	p.verified.Add(key, struct{}{})
	return true
}

// SealStakeBlock builds a block signed by v:
//
//	Hash      = v.Sign(ContentHash(timestamp, data))
//	Signature = v.Sign(Hash)
func SealStakeBlock(data, previousHash string, v *Validator, timestamp int64) (blockchain.StakeBlock, error) {
	b := blockchain.StakeBlock{
		Timestamp:    timestamp,
		Data:         data,
		PreviousHash: previousHash,
		Validator:    v.Ref(),
	}

	h, err := v.Sign(b.Digest())
	if err != nil {
		return blockchain.StakeBlock{}, err
	}
	b.Hash = h

	sig, err := v.Sign(b.Hash)
	if err != nil {
		return blockchain.StakeBlock{}, err
	}
	b.Signature = sig
	return b, nil
}
