package credits

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokensFromCredits(t *testing.T) {
	cpt := new(big.Int).Mul(big.NewInt(2), wad)

	out := TokensFromCredits(big.NewInt(1000), cpt)
	assert.Equal(t, big.NewInt(500), out)

	// Truncates toward zero.
	out = TokensFromCredits(big.NewInt(1001), cpt)
	assert.Equal(t, big.NewInt(500), out)
}

func TestCreditsFromTokens(t *testing.T) {
	cpt := new(big.Int).Mul(big.NewInt(2), wad)

	out := CreditsFromTokens(big.NewInt(500), cpt)
	assert.Equal(t, big.NewInt(1000), out)
}

func TestAdjust(t *testing.T) {
	one := new(big.Int).Set(wad)
	two := new(big.Int).Mul(big.NewInt(2), wad)

	// Same factor round-trips unchanged.
	assert.Equal(t, big.NewInt(1000), Adjust(big.NewInt(1000), one, one))

	// A balance recorded at factor 2 holds twice the credits the reference
	// factor 1 would imply.
	assert.Equal(t, big.NewInt(2000), Adjust(big.NewInt(1000), two, one))
	assert.Equal(t, big.NewInt(500), Adjust(big.NewInt(1000), one, two))
}

func TestAdjust_TruncatesInCreditSpace(t *testing.T) {
	// An odd factor forces truncation at the credit conversion first.
	three := big.NewInt(3_000_000_000_000_000_001)
	one := new(big.Int).Set(wad)

	credits := CreditsFromTokens(big.NewInt(7), three)
	assert.Equal(t, big.NewInt(21), credits)
	assert.Equal(t, big.NewInt(21), Adjust(big.NewInt(7), three, one))
}

func TestAdjustRat_MatchesAdjustOnIntegers(t *testing.T) {
	two := new(big.Int).Mul(big.NewInt(2), wad)
	one := new(big.Int).Set(wad)

	got := AdjustRat(new(big.Rat).SetInt64(1000), two, one)
	assert.Equal(t, Adjust(big.NewInt(1000), two, one), got)
}

func TestAdjustRat_FlooredBeforeConversion(t *testing.T) {
	one := new(big.Int).Set(wad)

	// 10.75 tokens at factor 1 are 10.75 credits, floored to 10.
	got := AdjustRat(big.NewRat(43, 4), one, one)
	assert.Equal(t, big.NewInt(10), got)
}
