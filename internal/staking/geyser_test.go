package staking

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

var wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func addr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

// tokens scales a whole-token count to 1e18 units.
func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), wad)
}

func geyserSnap(supply, knownBalance, knownCredits, cpt *big.Int) *GeyserSnapshot {
	return &GeyserSnapshot{
		Contract:           addr(0xEE),
		TotalSupply:        supply,
		KnownBalance:       knownBalance,
		KnownCreditBalance: knownCredits,
		CreditsPerToken:    cpt,
		Block:              100,
	}
}

func TestAttribute_DerivedAndAdjusted(t *testing.T) {
	// Credits-per-token 2e18: each token is two credits. 1000 credits staked
	// against a known balance of 500 tokens.
	snap := geyserSnap(tokens(1000), tokens(500), tokens(1000), new(big.Int).Mul(big.NewInt(2), wad))
	stakers := []StakerBalance{
		{Holder: addr(0x10), Credits: tokens(600)},
		{Holder: addr(0x11), Credits: tokens(400)},
	}

	records, report, err := Attribute(snap, stakers)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// derived = floor(credits * 1e18 / cpt)
	assert.Equal(t, tokens(300), records[0].DerivedBalance)
	assert.Equal(t, tokens(200), records[1].DerivedBalance)

	// adjusted = floor(knownBalance * credits / totalSupply)
	assert.Equal(t, tokens(300), records[0].AdjustedDerivedBalance)
	assert.Equal(t, tokens(200), records[1].AdjustedDerivedBalance)

	assert.Equal(t, tokens(1000), report.CreditTotal)
	assert.Equal(t, tokens(500), report.DerivedTotal)
}

func TestRestate_AtReferenceFactor(t *testing.T) {
	// The block's own factor is 2e18. Restating at 1e18 renormalizes the
	// known balance through credit space, so every derived and proportional
	// balance doubles while conservation still holds.
	snap := geyserSnap(tokens(1000), tokens(500), tokens(1000), new(big.Int).Mul(big.NewInt(2), wad))
	restated := snap.Restate(wad)

	assert.Equal(t, tokens(1000), restated.KnownBalance)
	assert.Equal(t, wad, restated.CreditsPerToken)
	// The original snapshot is untouched.
	assert.Equal(t, tokens(500), snap.KnownBalance)

	stakers := []StakerBalance{
		{Holder: addr(0x10), Credits: tokens(600)},
		{Holder: addr(0x11), Credits: tokens(400)},
	}
	records, report, err := Attribute(restated, stakers)
	require.NoError(t, err)

	assert.Equal(t, tokens(600), records[0].DerivedBalance)
	assert.Equal(t, tokens(400), records[1].DerivedBalance)
	assert.Equal(t, tokens(600), records[0].AdjustedDerivedBalance)
	assert.Equal(t, tokens(400), records[1].AdjustedDerivedBalance)
	assert.Equal(t, tokens(1000), report.DerivedTotal)
}

func TestAttribute_CreditSupplyGapFails(t *testing.T) {
	knownCredits := new(big.Int).Add(tokens(1000), big.NewInt(MaxCreditDrift))
	snap := geyserSnap(tokens(1000), tokens(500), knownCredits, new(big.Int).Mul(big.NewInt(2), wad))

	_, _, err := Attribute(snap, nil)

	var conservation *domain.ConservationError
	require.ErrorAs(t, err, &conservation)
	assert.Equal(t, "geyser credit supply", conservation.Quantity)
}

func TestAttribute_CreditSupplyGapWithinDrift(t *testing.T) {
	knownCredits := new(big.Int).Add(tokens(1000), big.NewInt(MaxCreditDrift-1))
	snap := geyserSnap(tokens(1000), tokens(500), knownCredits, new(big.Int).Mul(big.NewInt(2), wad))
	stakers := []StakerBalance{
		{Holder: addr(0x10), Credits: tokens(1000)},
	}

	_, _, err := Attribute(snap, stakers)
	assert.NoError(t, err)
}

func TestAttribute_StakedCreditsMismatchFails(t *testing.T) {
	snap := geyserSnap(tokens(1000), tokens(500), tokens(1000), new(big.Int).Mul(big.NewInt(2), wad))
	stakers := []StakerBalance{
		{Holder: addr(0x10), Credits: tokens(999)},
	}

	_, _, err := Attribute(snap, stakers)

	var conservation *domain.ConservationError
	require.ErrorAs(t, err, &conservation)
	assert.Equal(t, "geyser staked credits", conservation.Quantity)
}

func TestAttribute_DerivedOvershootFails(t *testing.T) {
	// A credits-per-token below the truthful factor would derive more
	// tokens than the geyser holds, which is never dust.
	snap := geyserSnap(tokens(1000), tokens(400), tokens(1000), new(big.Int).Mul(big.NewInt(2), wad))
	stakers := []StakerBalance{
		{Holder: addr(0x10), Credits: tokens(1000)},
	}

	_, _, err := Attribute(snap, stakers)

	var conservation *domain.ConservationError
	require.ErrorAs(t, err, &conservation)
	assert.Equal(t, "geyser derived balance", conservation.Quantity)
}

func TestAttribute_ZeroCreditStaker(t *testing.T) {
	snap := geyserSnap(tokens(1000), tokens(500), tokens(1000), new(big.Int).Mul(big.NewInt(2), wad))
	stakers := []StakerBalance{
		{Holder: addr(0x10), Credits: tokens(1000)},
		{Holder: addr(0x11), Credits: new(big.Int)},
	}

	records, _, err := Attribute(snap, stakers)
	require.NoError(t, err)

	assert.Zero(t, records[1].DerivedBalance.Sign())
	assert.Zero(t, records[1].AdjustedDerivedBalance.Sign())
}
