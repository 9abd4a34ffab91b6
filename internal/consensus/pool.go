package consensus

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/VeltarosLabs/sealchain/internal/blockchain"
	vcrypto "github.com/VeltarosLabs/sealchain/internal/crypto"
)

// Pool is the fixed, ordered validator set of a PoS chain.
type Pool struct {
	validators []*Validator
	byAddr     map[string]*Validator
	total      uint64
}

func NewPool(validators ...*Validator) (*Pool, error) {
	if len(validators) == 0 {
		return nil, ErrEmptyPool
	}

	p := &Pool{
		validators: make([]*Validator, 0, len(validators)),
		byAddr:     make(map[string]*Validator, len(validators)),
	}
	for i, v := range validators {
		if v == nil {
			return nil, fmt.Errorf("validator %d is nil", i)
		}
		if v.stake == 0 {
			return nil, fmt.Errorf("validator %s: %w", v.address, ErrInvalidStake)
		}
		if _, dup := p.byAddr[v.address]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateValidator, v.address)
		}
		if p.total+v.stake < p.total {
			return nil, ErrStakeOverflow
		}
		p.total += v.stake
		p.byAddr[v.address] = v
		p.validators = append(p.validators, v)
	}
	return p, nil
}

// NewPoolFromStakes generates one validator per stake, in order.
func NewPoolFromStakes(scheme vcrypto.Scheme, stakes ...uint64) (*Pool, error) {
	vs := make([]*Validator, 0, len(stakes))
	for _, s := range stakes {
		v, err := NewValidator(s, scheme)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return NewPool(vs...)
}

func (p *Pool) Len() int           { return len(p.validators) }
func (p *Pool) TotalStake() uint64 { return p.total }

func (p *Pool) Validators() []*Validator {
	out := make([]*Validator, len(p.validators))
	copy(out, p.validators)
	return out
}

func (p *Pool) Refs() []blockchain.ValidatorRef {
	out := make([]blockchain.ValidatorRef, 0, len(p.validators))
	for _, v := range p.validators {
		out = append(out, v.Ref())
	}
	return out
}

func (p *Pool) Lookup(address string) (*Validator, bool) {
	v, ok := p.byAddr[address]
	return v, ok
}

// Contains reports whether ref names a pool member with the same key and
// stake.
func (p *Pool) Contains(ref blockchain.ValidatorRef) bool {
	v, ok := p.byAddr[ref.Address]
	if !ok {
		return false
	}
	return v.stake == ref.Stake &&
		v.Scheme() == ref.Scheme &&
		vcrypto.ConstantTimeEqual(v.key.PublicKey(), ref.PublicKey)
}

// Share is the fraction of total stake held by address, zero if unknown.
func (p *Pool) Share(address string) decimal.Decimal {
	v, ok := p.byAddr[address]
	if !ok || p.total == 0 {
		return decimal.Zero
	}
	stake := decimal.NewFromBigInt(new(big.Int).SetUint64(v.stake), 0)
	total := decimal.NewFromBigInt(new(big.Int).SetUint64(p.total), 0)
	return stake.Div(total)
}
