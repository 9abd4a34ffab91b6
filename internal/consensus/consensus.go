package consensus

import (
	"errors"
	"time"
)

var (
	ErrInvalidDifficulty  = errors.New("invalid difficulty")
	ErrNonceExhausted     = errors.New("nonce search exhausted")
	ErrInvalidStake       = errors.New("validator stake must be positive")
	ErrEmptyPool          = errors.New("validator pool is empty")
	ErrDuplicateValidator = errors.New("duplicate validator")
	ErrStakeOverflow      = errors.New("total stake overflows uint64")
)

func nowMillis(now func() time.Time) int64 {
	if now == nil {
		return time.Now().UnixMilli()
	}
	return now().UnixMilli()
}
