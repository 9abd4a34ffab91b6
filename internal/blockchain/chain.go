package blockchain

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/VeltarosLabs/sealchain/internal/logging"
)

var (
	ErrIntegrity  = errors.New("block hash does not match its contents")
	ErrLinkage    = errors.New("previous hash does not match parent")
	ErrSeal       = errors.New("block seal is invalid")
	ErrEmptyChain = errors.New("chain has no blocks")
	ErrNilEngine  = errors.New("nil engine")
	ErrOutOfRange = errors.New("block index out of range")
)

// Linked is implemented by block types that can be chained. Clone must
// return a copy sharing no mutable memory with the receiver.
type Linked[B any] interface {
	ID() string
	Parent() string
	Clone() B
}

// Engine is the sealing strategy a chain delegates to. The chain owns
// ordering and linkage; the engine owns genesis, sealing and the
// per-block integrity and seal checks.
type Engine[B Linked[B]] interface {
	Genesis() (B, error)
	Seal(ctx context.Context, parent B, height uint64, data string) (B, error)
	CheckIntegrity(b B) error
	CheckSeal(b B) error
}

type Chain[B Linked[B]] struct {
	mu sync.RWMutex

	engine Engine[B]
	blocks []B
	log    *slog.Logger
}

// New creates a chain holding only the engine's genesis block.
func New[B Linked[B]](engine Engine[B], log *slog.Logger) (*Chain[B], error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	g, err := engine.Genesis()
	if err != nil {
		return nil, fmt.Errorf("create genesis: %w", err)
	}
	return &Chain[B]{
		engine: engine,
		blocks: []B{g},
		log:    orDiscard(log),
	}, nil
}

// Import wraps an existing block sequence without validating it. Use
// Validate or Verify to audit the result.
func Import[B Linked[B]](engine Engine[B], blocks []B, log *slog.Logger) (*Chain[B], error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	if len(blocks) == 0 {
		return nil, ErrEmptyChain
	}
	cp := make([]B, 0, len(blocks))
	for _, b := range blocks {
		cp = append(cp, b.Clone())
	}
	return &Chain[B]{
		engine: engine,
		blocks: cp,
		log:    orDiscard(log),
	}, nil
}

func (c *Chain[B]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

func (c *Chain[B]) Genesis() B {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[0].Clone()
}

func (c *Chain[B]) Last() B {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1].Clone()
}

func (c *Chain[B]) At(i int) (B, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.blocks) {
		var zero B
		return zero, fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	return c.blocks[i].Clone(), nil
}

// Blocks iterates over a snapshot of the chain. Blocks are yielded by
// value; modifying them does not affect the chain.
func (c *Chain[B]) Blocks() iter.Seq2[int, B] {
	c.mu.RLock()
	snap := make([]B, 0, len(c.blocks))
	for _, b := range c.blocks {
		snap = append(snap, b.Clone())
	}
	c.mu.RUnlock()

	return func(yield func(int, B) bool) {
		for i, b := range snap {
			if !yield(i, b) {
				return
			}
		}
	}
}

// AddBlock seals data on top of the current last block and appends it.
// Appended blocks are never removed or replaced.
func (c *Chain[B]) AddBlock(ctx context.Context, data string) (B, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parent := c.blocks[len(c.blocks)-1]
	height := uint64(len(c.blocks))

	b, err := c.engine.Seal(ctx, parent, height, data)
	if err != nil {
		var zero B
		return zero, fmt.Errorf("seal block %d: %w", height, err)
	}

	c.blocks = append(c.blocks, b)
	c.log.Info("block appended", "height", height, "hash", b.ID())
	return b.Clone(), nil
}

// Verify audits every block after genesis: integrity, then linkage, then
// seal. It returns the first failure, annotated with the block index.
func (c *Chain[B]) Verify() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := 1; i < len(c.blocks); i++ {
		cur := c.blocks[i]
		prev := c.blocks[i-1]

		if err := c.engine.CheckIntegrity(cur); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if cur.Parent() != prev.ID() {
			return fmt.Errorf("block %d: %w", i, ErrLinkage)
		}
		if err := c.engine.CheckSeal(cur); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}
	return nil
}

// Validate reports whether Verify finds no defect.
func (c *Chain[B]) Validate() bool {
	if err := c.Verify(); err != nil {
		c.log.Warn("chain validation failed", "err", err)
		return false
	}
	return true
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return logging.Discard()
	}
	return log
}
