package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/VeltarosLabs/sealchain/internal/blockchain"
	vcrypto "github.com/VeltarosLabs/sealchain/internal/crypto"
	"github.com/VeltarosLabs/sealchain/internal/logging"
)

const (
	DefaultDifficulty = 5
	MaxDifficulty     = 64 // hex chars in a sha256 digest

	// ctx is polled once per this many nonce attempts.
	cancelCheckInterval = 1024
)

type PoWConfig struct {
	Difficulty int
	// MaxAttempts bounds the nonce search per block. Zero means unbounded.
	MaxAttempts uint64
	Now         func() time.Time
}

func DefaultPoWConfig() PoWConfig {
	return PoWConfig{Difficulty: DefaultDifficulty}
}

// PoW seals blocks by brute-force nonce search until the block hash starts
// with Difficulty zero hex characters.
type PoW struct {
	difficulty  int
	maxAttempts uint64
	now         func() time.Time
	log         *slog.Logger
}

func NewPoW(cfg PoWConfig, log *slog.Logger) (*PoW, error) {
	if cfg.Difficulty < 0 || cfg.Difficulty > MaxDifficulty {
		return nil, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidDifficulty, cfg.Difficulty, MaxDifficulty)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &PoW{
		difficulty:  cfg.Difficulty,
		maxAttempts: cfg.MaxAttempts,
		now:         cfg.Now,
		log:         log,
	}, nil
}

func (p *PoW) Difficulty() int { return p.difficulty }

// Genesis is never mined.
func (p *PoW) Genesis() (blockchain.Block, error) {
	return blockchain.NewBlock(blockchain.GenesisData, "", nowMillis(p.now), 0), nil
}

func (p *PoW) Seal(ctx context.Context, parent blockchain.Block, height uint64, data string) (blockchain.Block, error) {
	b := blockchain.NewBlock(data, parent.Hash, nowMillis(p.now), height)
	if err := p.Mine(ctx, &b); err != nil {
		return blockchain.Block{}, err
	}
	return b, nil
}

// Mine searches nonces upward from b.Nonce, starting with the hash b already
// carries, and stops at the first one meeting the difficulty. The winning
// nonce and hash are written back into b. Without a deadline on ctx and
// without MaxAttempts the search runs until it succeeds. On error b holds
// the last nonce tried.
func (p *PoW) Mine(ctx context.Context, b *blockchain.Block) error {
	debug := p.log.Enabled(ctx, slog.LevelDebug)

	var attempts uint64
	for !MeetsDifficulty(b.Hash, p.difficulty) {
		if p.maxAttempts > 0 && attempts >= p.maxAttempts {
			return fmt.Errorf("%w: %d attempts", ErrNonceExhausted, attempts)
		}
		if attempts%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if b.Nonce == math.MaxUint64 {
			return fmt.Errorf("%w: nonce space", ErrNonceExhausted)
		}

		b.Nonce++
		b.Hash = blockchain.ComputeHash(*b)
		attempts++

		if debug {
			p.log.Debug("mining", "index", b.Index, "try", b.Nonce, "hash", b.Hash)
		}
	}

	p.log.Info("block mined", "index", b.Index, "nonce", b.Nonce, "hash", b.Hash)
	return nil
}

func (p *PoW) CheckIntegrity(b blockchain.Block) error {
	if !vcrypto.ConstantTimeEqual([]byte(b.Hash), []byte(blockchain.ComputeHash(b))) {
		return blockchain.ErrIntegrity
	}
	return nil
}

// CheckSeal accepts any block; the difficulty target is not re-audited once
// a block is on the chain.
func (p *PoW) CheckSeal(_ blockchain.Block) error { return nil }

// MeetsDifficulty reports whether the first difficulty characters of hash
// are all '0'.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	return strings.Count(hash[:difficulty], "0") == difficulty
}
