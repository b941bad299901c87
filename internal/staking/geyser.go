// Package staking reconciles a geyser contract's per-staker positions. The
// geyser custodies the tracked asset directly but accounts internally in
// rebasing credits, so each staker's position is derived twice: from their
// credit balance via the credits-per-token factor, and as their proportional
// share of the geyser's actual token balance. Both derivations must
// reconcile to the geyser's totals before any record is accepted.
package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/credits"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

// MaxCreditDrift bounds the discrepancy between the geyser's internal supply
// and its credit balance as seen by the token. The tiny drift comes from the
// contract's own mul/div leaving behind fractions of an indivisible unit.
const MaxCreditDrift = 50

// MaxBalanceDrift bounds token-denominated reconciliation dust.
var MaxBalanceDrift = big.NewInt(100_000_000) // 1e8, fractions of 1e-10 tokens

// GeyserSnapshot is the frozen state of a geyser at a block.
type GeyserSnapshot struct {
	Contract           common.Address
	TotalSupply        *big.Int // internal supply, denominated in credits
	KnownBalance       *big.Int // the geyser's tracked-asset token balance
	KnownCreditBalance *big.Int // creditsBalanceOf(geyser) per the token
	CreditsPerToken    *big.Int // conversion factor for derived balances
	Block              uint64
}

// StakerBalance is one staker's collected credit balance.
type StakerBalance struct {
	Holder  common.Address
	Credits *big.Int
}

// Report summarizes a successful geyser reconciliation.
type Report struct {
	CreditTotal   *big.Int
	DerivedTotal  *big.Int
	AdjustedTotal *big.Int
	Stakers       int
}

// Restate returns a copy of the snapshot expressed at a reference
// credits-per-token factor. The known token balance is renormalized through
// credit space so derived and proportional balances both reflect the
// reference factor instead of the block's own.
func (s *GeyserSnapshot) Restate(refCPT *big.Int) *GeyserSnapshot {
	out := *s
	out.KnownBalance = credits.Adjust(s.KnownBalance, s.CreditsPerToken, refCPT)
	out.CreditsPerToken = new(big.Int).Set(refCPT)
	return &out
}

// Attribute derives every staker's token-denominated position and verifies
// conservation against the geyser's totals. Any failure discards the batch.
func Attribute(snap *GeyserSnapshot, stakers []StakerBalance) ([]domain.StakingRecord, *Report, error) {
	// The internal supply and the token's view of the geyser's credits must
	// agree before per-staker ratios mean anything.
	creditGap := new(big.Int).Sub(snap.TotalSupply, snap.KnownCreditBalance)
	if creditGap.CmpAbs(big.NewInt(MaxCreditDrift)) >= 0 {
		return nil, nil, &domain.ConservationError{
			Quantity:  "geyser credit supply",
			Expected:  snap.KnownCreditBalance,
			Computed:  snap.TotalSupply,
			Tolerance: big.NewInt(MaxCreditDrift),
		}
	}

	var (
		records       = make([]domain.StakingRecord, 0, len(stakers))
		creditTotal   = new(big.Int)
		derivedTotal  = new(big.Int)
		adjustedTotal = new(big.Int)
	)

	for _, st := range stakers {
		derived := new(big.Int)
		adjusted := new(big.Int)
		if st.Credits.Sign() != 0 {
			derived = credits.TokensFromCredits(st.Credits, snap.CreditsPerToken)
			adjusted.Mul(snap.KnownBalance, st.Credits)
			adjusted.Quo(adjusted, snap.TotalSupply)
		}

		creditTotal.Add(creditTotal, st.Credits)
		derivedTotal.Add(derivedTotal, derived)
		adjustedTotal.Add(adjustedTotal, adjusted)

		records = append(records, domain.StakingRecord{
			Holder:                 st.Holder,
			CreditBalance:          new(big.Int).Set(st.Credits),
			DerivedBalance:         derived,
			AdjustedDerivedBalance: adjusted,
		})
	}

	if creditTotal.Cmp(snap.TotalSupply) != 0 {
		return nil, nil, &domain.ConservationError{
			Quantity: "geyser staked credits",
			Expected: snap.TotalSupply,
			Computed: creditTotal,
		}
	}

	// Derived balances may undershoot the known balance by truncation dust
	// but must never exceed it.
	dust := new(big.Int).Sub(snap.KnownBalance, derivedTotal)
	if dust.Sign() < 0 || dust.Cmp(MaxBalanceDrift) > 0 {
		return nil, nil, &domain.ConservationError{
			Quantity:  "geyser derived balance",
			Expected:  snap.KnownBalance,
			Computed:  derivedTotal,
			Tolerance: MaxBalanceDrift,
		}
	}

	adjDust := new(big.Int).Sub(snap.KnownBalance, adjustedTotal)
	if adjDust.Cmp(MaxBalanceDrift) > 0 {
		return nil, nil, &domain.ConservationError{
			Quantity:  "geyser attributed balance",
			Expected:  snap.KnownBalance,
			Computed:  adjustedTotal,
			Tolerance: MaxBalanceDrift,
		}
	}

	report := &Report{
		CreditTotal:   creditTotal,
		DerivedTotal:  derivedTotal,
		AdjustedTotal: adjustedTotal,
		Stakers:       len(stakers),
	}
	return records, report, nil
}
