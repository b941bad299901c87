package gather

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/chain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/chain/chaintest"
)

const testBlock = 11272254

var (
	pair   = common.BytesToAddress([]byte{0x60, 1})
	chef   = common.BytesToAddress([]byte{0x60, 2})
	geyser = common.BytesToAddress([]byte{0x60, 3})
)

func addr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

func TestHolderBalances_PreservesInputOrder(t *testing.T) {
	src := chaintest.NewStubSource()
	holders := make([]common.Address, 50)
	for i := range holders {
		holders[i] = addr(byte(i + 1))
		src.SetBalance(pair, holders[i], testBlock, big.NewInt(int64(i+1)*100))
	}

	// A worker count far below the holder count forces interleaving.
	g := New(src, zap.NewNop(), Options{Workers: 3})

	out, err := g.HolderBalances(context.Background(), pair, holders, testBlock)
	require.NoError(t, err)
	require.Len(t, out, 50)

	for i, hb := range out {
		assert.Equal(t, holders[i], hb.Holder)
		assert.Equal(t, big.NewInt(int64(i+1)*100), hb.Direct)
		assert.Zero(t, hb.Staked.Sign())
	}
}

func TestHolderBalances_UnseededHolderIsZero(t *testing.T) {
	src := chaintest.NewStubSource()
	g := New(src, zap.NewNop(), Options{})

	out, err := g.HolderBalances(context.Background(), pair, []common.Address{addr(1)}, testBlock)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Zero(t, out[0].Direct.Sign())
}

func TestHolderBalances_AccumulatorDeposits(t *testing.T) {
	src := chaintest.NewStubSource()
	src.SetBalance(pair, addr(1), testBlock, big.NewInt(400))
	src.SetStaked(chef, addr(1), testBlock, big.NewInt(600))
	src.SetBalance(pair, addr(2), testBlock, big.NewInt(250))

	g := New(src, zap.NewNop(), Options{Accumulator: chef, PoolID: 7})

	out, err := g.HolderBalances(context.Background(), pair, []common.Address{addr(1), addr(2)}, testBlock)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, big.NewInt(400), out[0].Direct)
	assert.Equal(t, big.NewInt(600), out[0].Staked)
	assert.Equal(t, big.NewInt(250), out[1].Direct)
	assert.Zero(t, out[1].Staked.Sign())
}

func TestHolderBalances_EmptyHolderSet(t *testing.T) {
	g := New(chaintest.NewStubSource(), zap.NewNop(), Options{})

	out, err := g.HolderBalances(context.Background(), pair, nil, testBlock)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHolderBalances_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(chaintest.NewStubSource(), zap.NewNop(), Options{})

	_, err := g.HolderBalances(ctx, pair, []common.Address{addr(1)}, testBlock)
	assert.ErrorIs(t, err, context.Canceled)
}

// failingSource fails balance lookups for one holder.
type failingSource struct {
	chain.Source
	failFor common.Address
}

var errLookup = errors.New("rpc: connection reset")

func (f *failingSource) HolderBalance(ctx context.Context, pool, holder common.Address, block uint64) (*big.Int, error) {
	if holder == f.failFor {
		return nil, errLookup
	}
	return f.Source.HolderBalance(ctx, pool, holder, block)
}

func TestHolderBalances_LookupErrorAborts(t *testing.T) {
	stub := chaintest.NewStubSource()
	stub.SetBalance(pair, addr(1), testBlock, big.NewInt(100))
	src := &failingSource{Source: stub, failFor: addr(2)}

	g := New(src, zap.NewNop(), Options{Workers: 2})

	_, err := g.HolderBalances(context.Background(), pair, []common.Address{addr(1), addr(2)}, testBlock)
	require.Error(t, err)
	assert.ErrorIs(t, err, errLookup)
	assert.Contains(t, err.Error(), addr(2).Hex())
}

func TestStakerCredits_PreservesInputOrder(t *testing.T) {
	src := chaintest.NewStubSource()
	stakers := []common.Address{addr(3), addr(1), addr(2)}
	for i, st := range stakers {
		src.SetCredits(geyser, st, testBlock, big.NewInt(int64(i+1)*10))
	}

	g := New(src, zap.NewNop(), Options{Workers: 2})

	out, err := g.StakerCredits(context.Background(), geyser, stakers, testBlock)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, big.NewInt(10), out[0])
	assert.Equal(t, big.NewInt(20), out[1])
	assert.Equal(t, big.NewInt(30), out[2])
}
