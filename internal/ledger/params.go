package ledger

import "math/big"

// Parameters fixes the compensation policy for one run. Immutable after
// construction; every Account holds a reference to the same instance.
type Parameters struct {
	// SplitThreshold is the eligible-balance level (USD, 1e18 scale) below
	// which compensation is paid entirely in the primary asset.
	SplitThreshold *big.Int

	// PrimarySecondarySplit is the fraction of the above-threshold amount
	// still paid in the primary asset.
	PrimarySecondarySplit *big.Rat

	// SecondaryAssetPriceUsd prices the secondary reward asset (USD, 1e18
	// scale).
	SecondaryAssetPriceUsd *big.Int

	// EthValueUsd converts WETH trading flows to USD. Kept as an exact
	// rational parsed from the configured decimal string so runs are
	// deterministic.
	EthValueUsd *big.Rat

	// MinimumThreshold zeroes out eligible balances below it (USD, 1e18
	// scale).
	MinimumThreshold *big.Int
}

// DefaultParameters returns the parameters of the published run:
// $1000 split threshold, 25% primary / 75% secondary above it, secondary
// asset at $0.1492, ETH at $578.24, $0.01 minimum.
func DefaultParameters() *Parameters {
	return &Parameters{
		SplitThreshold:         mustWad("1000"),
		PrimarySecondarySplit:  big.NewRat(1, 4),
		SecondaryAssetPriceUsd: mustWad("0.1492"),
		EthValueUsd:            mustRat("578.24"),
		MinimumThreshold:       mustWad("0.01"),
	}
}

var wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// mustRat parses a decimal string into an exact rational.
func mustRat(s string) *big.Rat {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		panic("ledger: bad rational literal " + s)
	}
	return r
}

// mustWad parses a decimal USD string into 1e18 fixed-point.
func mustWad(s string) *big.Int {
	r := mustRat(s)
	r.Mul(r, new(big.Rat).SetInt(wad))
	if !r.IsInt() {
		panic("ledger: non-integral wad literal " + s)
	}
	return new(big.Int).Set(r.Num())
}
