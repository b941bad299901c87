// Package credits normalizes balances of the rebasing tracked asset between
// its external token amount and the protocol-internal credit unit. The
// credits-per-token factor drifts over time; after the incident it moved
// sharply, so post-incident balances are renormalized to a fixed factor
// before being compared with pre-incident ones.
package credits

import "math/big"

var wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil) // 1e18

// TokensFromCredits converts an internal credit balance to token units at
// the given credits-per-token factor, truncating toward zero.
func TokensFromCredits(creditBalance, creditsPerToken *big.Int) *big.Int {
	out := new(big.Int).Mul(creditBalance, wad)
	return out.Quo(out, creditsPerToken)
}

// CreditsFromTokens converts a token balance to internal credits at the
// given credits-per-token factor, truncating toward zero.
func CreditsFromTokens(tokenBalance, creditsPerToken *big.Int) *big.Int {
	out := new(big.Int).Mul(tokenBalance, creditsPerToken)
	return out.Quo(out, wad)
}

// Adjust renormalizes a token balance recorded at fromCPT to the token
// amount it represents at toCPT. Both truncations happen in credit space,
// matching the token contract's own rounding.
func Adjust(tokenBalance, fromCPT, toCPT *big.Int) *big.Int {
	return TokensFromCredits(CreditsFromTokens(tokenBalance, fromCPT), toCPT)
}

// AdjustRat is Adjust for an unfloored rational balance. The first
// truncation applies to the rational credit amount, so the result equals
// Adjust applied to the exact value.
func AdjustRat(tokenBalance *big.Rat, fromCPT, toCPT *big.Int) *big.Int {
	creditsRat := new(big.Rat).Mul(tokenBalance, new(big.Rat).SetFrac(fromCPT, wad))
	credits := new(big.Int).Quo(creditsRat.Num(), creditsRat.Denom())
	return TokensFromCredits(credits, toCPT)
}
