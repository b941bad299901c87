package attribution

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

func addr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

func snapshot(totalSupply, reserveA, reserveB int64) *domain.PoolSnapshot {
	return &domain.PoolSnapshot{
		Pair:        addr(0xAA),
		TokenA:      addr(0x01),
		TokenB:      addr(0x02),
		TotalSupply: big.NewInt(totalSupply),
		ReserveA:    big.NewInt(reserveA),
		ReserveB:    big.NewInt(reserveB),
		Block:       100,
	}
}

func TestAttribute_ProportionalFloor(t *testing.T) {
	// totalSupply 1,000,000 with the 1,000 genesis burn, one holder with
	// 500,000 shares of a 2,000,000 reserve:
	// floor(2,000,000 * 500,000 / 999,000) = 1,001,001
	snap := snapshot(1_000_000, 2_000_000, 4_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(500_000)},
		{Holder: addr(0x11), Direct: big.NewInt(499_000)},
	}

	records, report, err := Attribute(snap, holders, Options{
		BurnedLiquidity: big.NewInt(MinimumLiquidity),
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, big.NewInt(1_001_001), records[0].AttributedA)
	assert.Equal(t, big.NewInt(2_002_002), records[0].AttributedB)
	assert.Equal(t, big.NewInt(500_000), records[0].ShareBalance)
	assert.Equal(t, addr(0x01), records[0].TokenA)
	assert.Equal(t, addr(0x02), records[0].TokenB)

	assert.Equal(t, big.NewInt(999_000), report.AttributableSupply)
	assert.Equal(t, 2, report.NonzeroHolders)
}

func TestAttribute_ZeroBalanceHolder(t *testing.T) {
	snap := snapshot(1_000_000, 2_000_000, 4_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(999_000)},
		{Holder: addr(0x11), Direct: big.NewInt(0)},
	}

	records, report, err := Attribute(snap, holders, Options{
		BurnedLiquidity: big.NewInt(MinimumLiquidity),
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Zero(t, records[1].AttributedA.Sign())
	assert.Zero(t, records[1].AttributedB.Sign())
	assert.Equal(t, 1, report.NonzeroHolders)
}

func TestAttribute_SupplyMismatchFails(t *testing.T) {
	snap := snapshot(1_000_000, 2_000_000, 4_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(500_000)},
	}

	records, _, err := Attribute(snap, holders, Options{
		BurnedLiquidity: big.NewInt(MinimumLiquidity),
	})
	assert.Nil(t, records)

	var conservation *domain.ConservationError
	require.ErrorAs(t, err, &conservation)
	assert.Equal(t, "combined share supply", conservation.Quantity)
	assert.Equal(t, big.NewInt(999_000), conservation.Expected)
	assert.Equal(t, big.NewInt(500_000), conservation.Computed)
}

func TestAttribute_AccumulatorCustody(t *testing.T) {
	snap := snapshot(1_000_000, 2_000_000, 4_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(399_000), Staked: big.NewInt(100_000)},
		{Holder: addr(0x11), Direct: big.NewInt(300_000), Staked: big.NewInt(200_000)},
	}

	records, _, err := Attribute(snap, holders, Options{
		BurnedLiquidity:    big.NewInt(MinimumLiquidity),
		AccumulatorBalance: big.NewInt(300_000),
	})
	require.NoError(t, err)

	// Combined share balance includes the staked portion.
	assert.Equal(t, big.NewInt(499_000), records[0].ShareBalance)
	assert.Equal(t, big.NewInt(500_000), records[1].ShareBalance)
}

func TestAttribute_AccumulatorCustodyMismatchFails(t *testing.T) {
	snap := snapshot(1_000_000, 2_000_000, 4_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(699_000), Staked: big.NewInt(300_000)},
	}

	_, _, err := Attribute(snap, holders, Options{
		BurnedLiquidity:    big.NewInt(MinimumLiquidity),
		AccumulatorBalance: big.NewInt(299_999),
	})

	var conservation *domain.ConservationError
	require.ErrorAs(t, err, &conservation)
	assert.Equal(t, "accumulator custody", conservation.Quantity)
}

func TestAttribute_TruncationDriftWithinTolerance(t *testing.T) {
	// floor(2,000,000*500,000/999,000) + floor(2,000,000*499,000/999,000)
	// = 1,001,001 + 998,998 = 1,999,999, one unit short of the reserve.
	snap := snapshot(1_000_000, 2_000_000, 4_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(500_000)},
		{Holder: addr(0x11), Direct: big.NewInt(499_000)},
	}

	_, report, err := Attribute(snap, holders, Options{
		BurnedLiquidity: big.NewInt(MinimumLiquidity),
		DriftTolerance:  big.NewInt(1),
	})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_999_999), report.AttributedATotal)
}

func TestAttribute_TruncationDriftBeyondToleranceFails(t *testing.T) {
	snap := snapshot(1_000_000, 2_000_000, 4_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(500_000)},
		{Holder: addr(0x11), Direct: big.NewInt(499_000)},
	}

	_, _, err := Attribute(snap, holders, Options{
		BurnedLiquidity: big.NewInt(MinimumLiquidity),
		DriftTolerance:  big.NewInt(0),
	})
	var conservation *domain.ConservationError
	require.ErrorAs(t, err, &conservation)
	assert.Equal(t, "token0 reserve", conservation.Quantity)
	assert.Equal(t, big.NewInt(1_999_999), conservation.Computed)
}

func TestAttribute_NoBurnVariant(t *testing.T) {
	// Mooniswap-style pools have no genesis burn; shares sum to the full
	// supply.
	snap := snapshot(1_000_000, 3_000_000, 9_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(250_000)},
		{Holder: addr(0x11), Direct: big.NewInt(750_000)},
	}

	records, report, err := Attribute(snap, holders, Options{})
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(1_000_000), report.AttributableSupply)
	assert.Equal(t, big.NewInt(750_000), records[0].AttributedA)
	assert.Equal(t, big.NewInt(2_250_000), records[1].AttributedA)
}

func TestAttribute_CreditsAdjustment(t *testing.T) {
	snap := snapshot(1_000_000, 2_000_000, 4_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(999_000)},
	}

	wad := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	halfWad := new(big.Int).Rsh(wad, 1)

	records, _, err := Attribute(snap, holders, Options{
		BurnedLiquidity: big.NewInt(MinimumLiquidity),
		AdjustTracked:   &CreditsAdjustment{FromCPT: wad, ToCPT: halfWad},
	})
	require.NoError(t, err)

	// Halving the factor doubles the restated tracked amount; the counter
	// side is untouched.
	assert.Equal(t, big.NewInt(4_000_000), records[0].AttributedA)
	assert.Equal(t, big.NewInt(4_000_000), records[0].AttributedB)
}

func TestAttribute_Deterministic(t *testing.T) {
	snap := snapshot(1_000_000, 2_000_000, 4_000_000)
	holders := []HolderBalance{
		{Holder: addr(0x10), Direct: big.NewInt(500_000)},
		{Holder: addr(0x11), Direct: big.NewInt(400_000)},
		{Holder: addr(0x12), Direct: big.NewInt(99_000)},
	}

	first, _, err := Attribute(snap, holders, Options{BurnedLiquidity: big.NewInt(MinimumLiquidity)})
	require.NoError(t, err)
	second, _, err := Attribute(snap, holders, Options{BurnedLiquidity: big.NewInt(MinimumLiquidity)})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
