package blockchain

import (
	"strconv"

	vcrypto "github.com/VeltarosLabs/sealchain/internal/crypto"
)

const GenesisData = "Genesis block"

// Block is a proof-of-work block. Hash covers Index, Timestamp, Data and
// Nonce; PreviousHash is checked through linkage only.
type Block struct {
	Index        uint64 `json:"index"`
	Timestamp    int64  `json:"timestamp"` // epoch ms
	Data         string `json:"data"`
	PreviousHash string `json:"previousHash"`
	Nonce        uint64 `json:"nonce"`
	Hash         string `json:"hash"`
}

// NewBlock builds an unsealed block with nonce 0. The hash it carries is
// provisional until the block is mined.
func NewBlock(data, previousHash string, timestamp int64, index uint64) Block {
	b := Block{
		Index:        index,
		Timestamp:    timestamp,
		Data:         data,
		PreviousHash: previousHash,
	}
	b.Hash = ComputeHash(b)
	return b
}

// ComputeHash hashes decimal(Index) || decimal(Timestamp) || Data || decimal(Nonce).
func ComputeHash(b Block) string {
	return vcrypto.HashFields(
		strconv.FormatUint(b.Index, 10),
		strconv.FormatInt(b.Timestamp, 10),
		b.Data,
		strconv.FormatUint(b.Nonce, 10),
	)
}

func (b Block) ID() string     { return b.Hash }
func (b Block) Parent() string { return b.PreviousHash }

// Clone returns b; Block holds no reference fields.
func (b Block) Clone() Block { return b }
