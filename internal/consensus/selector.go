package consensus

import "math/rand/v2"

// Source supplies uniform integers in [0, n). *rand.Rand satisfies it, so
// tests can pass a seeded generator.
type Source interface {
	Uint64N(n uint64) uint64
}

type globalSource struct{}

func (globalSource) Uint64N(n uint64) uint64 { return rand.Uint64N(n) }

// StakeSelector picks validators with probability proportional to stake.
// Picks are not reproducible unless the caller injects a seeded Source.
type StakeSelector struct {
	src Source
}

// NewStakeSelector uses the process-wide generator when src is nil.
func NewStakeSelector(src Source) *StakeSelector {
	if src == nil {
		src = globalSource{}
	}
	return &StakeSelector{src: src}
}

// Select draws r in [0, totalStake) and walks validators in order,
// subtracting each stake until r falls below the current one. The last
// validator is the fallback.
func (s *StakeSelector) Select(validators []*Validator) (*Validator, error) {
	if len(validators) == 0 {
		return nil, ErrEmptyPool
	}

	var total uint64
	for _, v := range validators {
		if total+v.stake < total {
			return nil, ErrStakeOverflow
		}
		total += v.stake
	}

	last := validators[len(validators)-1]
	if total == 0 {
		return last, nil
	}

	r := s.src.Uint64N(total)
	for _, v := range validators {
		if r < v.stake {
			return v, nil
		}
		r -= v.stake
	}
	return last, nil
}
