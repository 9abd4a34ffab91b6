package consensus

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VeltarosLabs/sealchain/internal/blockchain"
	vcrypto "github.com/VeltarosLabs/sealchain/internal/crypto"
)

// fixedSource returns the same draw regardless of n.
type fixedSource uint64

func (f fixedSource) Uint64N(uint64) uint64 { return uint64(f) }

func stakeOnly(stakes ...uint64) []*Validator {
	out := make([]*Validator, 0, len(stakes))
	for _, s := range stakes {
		out = append(out, &Validator{stake: s})
	}
	return out
}

func newTestPoS(t *testing.T, scheme vcrypto.Scheme, src Source) *PoS {
	t.Helper()
	pool, err := NewPoolFromStakes(scheme, 100, 200, 300)
	require.NoError(t, err)

	cfg := DefaultPoSConfig()
	cfg.Scheme = scheme
	cfg.Source = src
	cfg.Now = fixedNow
	p, err := NewPoS(pool, cfg, nil)
	require.NoError(t, err)
	return p
}

func TestNewValidatorRejectsZeroStake(t *testing.T) {
	_, err := NewValidator(0, vcrypto.SchemeEd25519)
	require.ErrorIs(t, err, ErrInvalidStake)

	_, err = NewValidator(1, vcrypto.Scheme("dsa"))
	require.ErrorIs(t, err, vcrypto.ErrUnknownScheme)
}

func TestValidatorSignVerify(t *testing.T) {
	a, err := NewValidator(100, vcrypto.SchemeEd25519)
	require.NoError(t, err)
	b, err := NewValidator(200, vcrypto.SchemeEd25519)
	require.NoError(t, err)

	require.NoError(t, vcrypto.ValidateAddress(a.Address()))
	assert.NotEqual(t, a.Address(), b.Address())

	for _, msg := range append([]string{"", "Genesis block"}, samplePayloads...) {
		sig, err := a.Sign(msg)
		require.NoError(t, err)

		assert.True(t, a.Verify(msg, sig), msg)
		assert.False(t, b.Verify(msg, sig), msg)
		assert.False(t, a.Verify(msg+"x", sig), msg)
	}

	assert.False(t, a.Verify("m", "not-hex"))
	assert.False(t, a.Verify("m", ""))
	assert.False(t, a.Verify("m", "abcd"))
}

func TestSelectWalksStakesInOrder(t *testing.T) {
	vs := stakeOnly(100, 200, 300)
	cases := []struct {
		draw uint64
		want int
	}{
		{0, 0}, {99, 0},
		{100, 1}, {299, 1},
		{300, 2}, {599, 2},
		{600, 2}, // out-of-range draw falls back to the last validator
	}
	for _, tc := range cases {
		got, err := NewStakeSelector(fixedSource(tc.draw)).Select(vs)
		require.NoError(t, err)
		assert.Same(t, vs[tc.want], got, "draw %d", tc.draw)
	}
}

func TestSelectEdgeCases(t *testing.T) {
	_, err := NewStakeSelector(nil).Select(nil)
	require.ErrorIs(t, err, ErrEmptyPool)

	zero := stakeOnly(0, 0)
	got, err := NewStakeSelector(nil).Select(zero)
	require.NoError(t, err)
	assert.Same(t, zero[1], got)

	_, err = NewStakeSelector(nil).Select(stakeOnly(^uint64(0), 1))
	require.ErrorIs(t, err, ErrStakeOverflow)

	// default source draws stay inside the pool
	vs := stakeOnly(1, 2, 3)
	for range 100 {
		got, err := NewStakeSelector(nil).Select(vs)
		require.NoError(t, err)
		assert.Contains(t, vs, got)
	}
}

func TestSelectFrequencyFollowsStake(t *testing.T) {
	vs := stakeOnly(100, 200, 300)
	sel := NewStakeSelector(rand.New(rand.NewPCG(42, 1337)))

	const draws = 100_000
	counts := make(map[*Validator]int, len(vs))
	for range draws {
		v, err := sel.Select(vs)
		require.NoError(t, err)
		counts[v]++
	}

	for _, v := range vs {
		want := float64(v.stake) / 600
		got := float64(counts[v]) / draws
		assert.InDelta(t, want, got, 0.01, "stake %d", v.stake)
	}
}

func TestPool(t *testing.T) {
	_, err := NewPool()
	require.ErrorIs(t, err, ErrEmptyPool)

	_, err = NewPool(nil)
	require.Error(t, err)

	pool, err := NewPoolFromStakes(vcrypto.SchemeEd25519, 100, 200, 300)
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Len())
	assert.Equal(t, uint64(600), pool.TotalStake())

	vs := pool.Validators()
	_, err = NewPool(vs[0], vs[0])
	require.ErrorIs(t, err, ErrDuplicateValidator)

	assert.True(t, pool.Share(vs[2].Address()).Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, pool.Share("unknown").IsZero())

	for i, ref := range pool.Refs() {
		assert.True(t, pool.Contains(ref))
		got, ok := pool.Lookup(ref.Address)
		require.True(t, ok)
		assert.Same(t, vs[i], got)
	}

	outsider, err := NewValidator(50, vcrypto.SchemeEd25519)
	require.NoError(t, err)
	assert.False(t, pool.Contains(outsider.Ref()))

	forged := vs[0].Ref()
	forged.PublicKey = outsider.Ref().PublicKey
	assert.False(t, pool.Contains(forged))

	restaked := vs[0].Ref()
	restaked.Stake++
	assert.False(t, pool.Contains(restaked))

	_, err = NewPoolFromStakes(vcrypto.SchemeEd25519, 100, 0)
	require.ErrorIs(t, err, ErrInvalidStake)
}

func TestSealStakeBlockLayout(t *testing.T) {
	v, err := NewValidator(100, vcrypto.SchemeEd25519)
	require.NoError(t, err)

	b, err := SealStakeBlock("First block", "prev", v, 1_700_000_000_000)
	require.NoError(t, err)

	assert.Equal(t, blockchain.ContentHash(b.Timestamp, b.Data), b.Digest())
	assert.True(t, v.Verify(b.Digest(), b.Hash))
	assert.True(t, v.Verify(b.Hash, b.Signature))
	assert.Equal(t, v.Ref(), b.Validator)
	assert.Equal(t, "prev", b.PreviousHash)
}

func TestNewPoSRejectsBadInput(t *testing.T) {
	_, err := NewPoS(nil, DefaultPoSConfig(), nil)
	require.ErrorIs(t, err, ErrEmptyPool)

	pool, err := NewPoolFromStakes(vcrypto.SchemeEd25519, 1)
	require.NoError(t, err)
	cfg := DefaultPoSConfig()
	cfg.Scheme = "dsa"
	_, err = NewPoS(pool, cfg, nil)
	require.ErrorIs(t, err, vcrypto.ErrUnknownScheme)
}

func TestPoSGenesis(t *testing.T) {
	p := newTestPoS(t, vcrypto.SchemeEd25519, nil)
	g, err := p.Genesis()
	require.NoError(t, err)

	assert.Equal(t, blockchain.GenesisData, g.Data)
	assert.Empty(t, g.PreviousHash)
	assert.Equal(t, uint64(0), g.Validator.Stake)
	assert.False(t, p.Pool().Contains(g.Validator))
	assert.True(t, g.Validator.AddressMatches())
	assert.NoError(t, p.CheckIntegrity(g))
	// genesis is signed by a throwaway validator the chain never seal-checks
	assert.ErrorIs(t, p.CheckSeal(g), blockchain.ErrSeal)
}

func TestPoSChainSampleBlocks(t *testing.T) {
	for _, scheme := range []vcrypto.Scheme{vcrypto.SchemeEd25519, vcrypto.SchemeSecp256k1, vcrypto.SchemeRSA} {
		t.Run(string(scheme), func(t *testing.T) {
			p := newTestPoS(t, scheme, rand.New(rand.NewPCG(1, 2)))
			c, err := blockchain.New[blockchain.StakeBlock](p, nil)
			require.NoError(t, err)
			require.True(t, c.Validate())

			for _, data := range samplePayloads {
				_, err := c.AddBlock(context.Background(), data)
				require.NoError(t, err)
				assert.True(t, c.Validate())
			}
			assert.Equal(t, 4, c.Len())

			blocks := collect(c)
			for i := 1; i < len(blocks); i++ {
				assert.True(t, p.Pool().Contains(blocks[i].Validator), "block %d", i)
				assert.Equal(t, blocks[i-1].Hash, blocks[i].PreviousHash)
				assert.Equal(t, samplePayloads[i-1], blocks[i].Data)
			}
		})
	}
}

func TestPoSChainDetectsTampering(t *testing.T) {
	p := newTestPoS(t, vcrypto.SchemeEd25519, nil)
	c, err := blockchain.New[blockchain.StakeBlock](p, nil)
	require.NoError(t, err)
	for _, data := range samplePayloads {
		_, err := c.AddBlock(context.Background(), data)
		require.NoError(t, err)
	}
	// warm the verification cache with the untouched chain
	require.True(t, c.Validate())
	original := collect(c)

	outsider, err := NewValidator(1, vcrypto.SchemeEd25519)
	require.NoError(t, err)
	otherMember := func(b *blockchain.StakeBlock) blockchain.ValidatorRef {
		for _, ref := range p.Pool().Refs() {
			if ref.Address != b.Validator.Address {
				return ref
			}
		}
		t.Fatal("pool has a single member")
		return blockchain.ValidatorRef{}
	}

	mutations := []struct {
		name   string
		mutate func(b *blockchain.StakeBlock)
		want   error
	}{
		{"data", func(b *blockchain.StakeBlock) { b.Data += "!" }, blockchain.ErrIntegrity},
		{"timestamp", func(b *blockchain.StakeBlock) { b.Timestamp++ }, blockchain.ErrIntegrity},
		{"hash", func(b *blockchain.StakeBlock) { b.Hash = b.Signature }, blockchain.ErrIntegrity},
		{"validator", func(b *blockchain.StakeBlock) { b.Validator = outsider.Ref() }, blockchain.ErrIntegrity},
		{"address", func(b *blockchain.StakeBlock) { b.Validator.Address = "deadbeef" }, blockchain.ErrIntegrity},
		{"addressOfOtherMember", func(b *blockchain.StakeBlock) { b.Validator.Address = otherMember(b).Address }, blockchain.ErrIntegrity},
		{"publicKey", func(b *blockchain.StakeBlock) { b.Validator.PublicKey[0] ^= 0xff }, blockchain.ErrIntegrity},
		{"stake", func(b *blockchain.StakeBlock) { b.Validator.Stake = 999999 }, blockchain.ErrSeal},
		{"zeroStake", func(b *blockchain.StakeBlock) { b.Validator.Stake = 0 }, blockchain.ErrSeal},
		{"previousHash", func(b *blockchain.StakeBlock) { b.PreviousHash = "00" }, blockchain.ErrLinkage},
		{"signature", func(b *blockchain.StakeBlock) {
			sig, err := outsider.Sign(b.Hash)
			require.NoError(t, err)
			b.Signature = sig
		}, blockchain.ErrSeal},
		{"signatureGarbage", func(b *blockchain.StakeBlock) { b.Signature = "zz" }, blockchain.ErrSeal},
	}

	for _, m := range mutations {
		for i := 1; i < len(original); i++ {
			blocks := make([]blockchain.StakeBlock, len(original))
			for j, b := range original {
				blocks[j] = b.Clone()
			}
			m.mutate(&blocks[i])

			tampered, err := blockchain.Import[blockchain.StakeBlock](p, blocks, nil)
			require.NoError(t, err)

			assert.False(t, tampered.Validate(), "%s of block %d", m.name, i)
			assert.ErrorIs(t, tampered.Verify(), m.want, "%s of block %d", m.name, i)
		}
	}

	assert.True(t, c.Validate())
}

func TestPoSChainKeepsValidatorKeysPrivate(t *testing.T) {
	p := newTestPoS(t, vcrypto.SchemeEd25519, nil)
	c, err := blockchain.New[blockchain.StakeBlock](p, nil)
	require.NoError(t, err)
	for _, data := range samplePayloads {
		_, err := c.AddBlock(context.Background(), data)
		require.NoError(t, err)
	}
	require.True(t, c.Validate())

	for _, b := range c.Blocks() {
		b.Validator.PublicKey[0] ^= 0xff
	}
	require.True(t, c.Validate())

	last := c.Last()
	last.Validator.PublicKey[0] ^= 0xff
	require.True(t, c.Validate())

	g := c.Genesis()
	g.Validator.PublicKey[0] ^= 0xff
	at, err := c.At(2)
	require.NoError(t, err)
	at.Validator.PublicKey[0] ^= 0xff

	require.NoError(t, c.Verify())
	assert.NotEqual(t, last.Validator.PublicKey, c.Last().Validator.PublicKey)
	assert.True(t, c.Last().Validator.AddressMatches())
}

func TestPoSImportDoesNotAliasInput(t *testing.T) {
	p := newTestPoS(t, vcrypto.SchemeEd25519, nil)
	c, err := blockchain.New[blockchain.StakeBlock](p, nil)
	require.NoError(t, err)
	_, err = c.AddBlock(context.Background(), "First block")
	require.NoError(t, err)

	blocks := collect(c)
	imported, err := blockchain.Import[blockchain.StakeBlock](p, blocks, nil)
	require.NoError(t, err)

	blocks[1].Validator.PublicKey[0] ^= 0xff
	assert.True(t, imported.Validate())
}

func TestPoSVerifyWithoutCache(t *testing.T) {
	p := newTestPoS(t, vcrypto.SchemeEd25519, nil)
	p.verified = nil

	c, err := blockchain.New[blockchain.StakeBlock](p, nil)
	require.NoError(t, err)
	_, err = c.AddBlock(context.Background(), "First block")
	require.NoError(t, err)
	assert.True(t, c.Validate())
}

func TestPoSVerifyCacheOnlyHoldsPositives(t *testing.T) {
	p := newTestPoS(t, vcrypto.SchemeEd25519, nil)
	v := p.Pool().Validators()[0]

	b, err := SealStakeBlock("First block", "", v, 1)
	require.NoError(t, err)

	require.NoError(t, p.CheckSeal(b))
	require.NoError(t, p.CheckSeal(b))
	assert.Equal(t, 1, p.verified.Len())

	b.Signature = b.Hash
	require.ErrorIs(t, p.CheckSeal(b), blockchain.ErrSeal)
	assert.Equal(t, 1, p.verified.Len())
}

func TestPoSSealCancelled(t *testing.T) {
	p := newTestPoS(t, vcrypto.SchemeEd25519, nil)
	g, err := p.Genesis()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Seal(ctx, g, 1, "First block")
	require.ErrorIs(t, err, context.Canceled)
}
