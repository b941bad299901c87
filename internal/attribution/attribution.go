// Package attribution computes each holder's proportional claim on a pool's
// reserves and verifies that the attributed amounts reconcile to the pool's
// known totals. It is a pure batch computation: balances are gathered
// elsewhere, attribution runs once over the collected set, and any
// conservation failure invalidates the whole batch.
package attribution

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/credits"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

// Pairs burn the first MinimumLiquidity pool tokens at genesis to bound the
// minimum tick size, so that slice of the supply is permanently
// unattributable.
const MinimumLiquidity = 1000

// MaxRoundingDrift is the default tolerance for reserve reconciliation,
// covering integer truncation in the pool's own mint math.
const MaxRoundingDrift = 10

// HolderBalance is one participant's collected share position: their direct
// LP balance plus whatever a staking accumulator custodies for them.
type HolderBalance struct {
	Holder common.Address
	Direct *big.Int
	Staked *big.Int // nil when the variant has no accumulator
}

// Combined returns Direct + Staked.
func (h HolderBalance) Combined() *big.Int {
	out := new(big.Int).Set(h.Direct)
	if h.Staked != nil {
		out.Add(out, h.Staked)
	}
	return out
}

// CreditsAdjustment renormalizes emitted tracked-asset amounts from the
// snapshot block's credits-per-token factor to a fixed reference factor.
type CreditsAdjustment struct {
	FromCPT *big.Int
	ToCPT   *big.Int
}

// Options selects the pool-variant behavior.
type Options struct {
	// BurnedLiquidity is subtracted from the attributable supply. Zero or
	// nil for variants without the genesis burn.
	BurnedLiquidity *big.Int

	// AccumulatorBalance is the direct LP balance held by the staking
	// contract itself, which belongs to its stakers, not to it. Nil when the
	// variant has no accumulator.
	AccumulatorBalance *big.Int

	// DriftTolerance overrides MaxRoundingDrift when set.
	DriftTolerance *big.Int

	// AdjustTracked, when set, renormalizes the tracked side of every
	// emitted record. Conservation always checks the unadjusted sums.
	AdjustTracked *CreditsAdjustment

	// TrackedIsTokenB marks pools where the tracked asset sorted into the
	// token1 slot. Default is token0.
	TrackedIsTokenB bool
}

// Report summarizes the reconciliation a successful attribution passed.
type Report struct {
	AttributableSupply *big.Int
	ShareTotal         *big.Int
	AttributedATotal   *big.Int // sum of the truncated emitted amounts
	AttributedBTotal   *big.Int
	Holders            int
	NonzeroHolders     int
}

// Attribute computes ownership records for every collected holder of the
// snapshot's pool and verifies conservation. The per-holder ratio is
// combined balance over attributable supply, applied to each reserve in
// exact rational arithmetic; amounts are truncated toward zero only on
// emission. On any conservation failure the records are discarded and a
// *domain.ConservationError returned.
func Attribute(snapshot *domain.PoolSnapshot, holders []HolderBalance, opts Options) ([]domain.OwnershipRecord, *Report, error) {
	attributable := new(big.Int).Set(snapshot.TotalSupply)
	if opts.BurnedLiquidity != nil {
		attributable.Sub(attributable, opts.BurnedLiquidity)
	}

	drift := big.NewInt(MaxRoundingDrift)
	if opts.DriftTolerance != nil {
		drift = opts.DriftTolerance
	}

	var (
		records    = make([]domain.OwnershipRecord, 0, len(holders))
		shareTotal = new(big.Int)
		sumA       = new(big.Int)
		sumB       = new(big.Int)
		nonzero    int
	)

	for _, h := range holders {
		combined := h.Combined()
		shareTotal.Add(shareTotal, combined)

		attrA := new(big.Rat)
		attrB := new(big.Rat)
		if combined.Sign() != 0 {
			if attributable.Sign() <= 0 {
				return nil, nil, &domain.ConservationError{
					Quantity: "attributable supply",
					Expected: attributable,
					Computed: shareTotal,
				}
			}
			nonzero++
			ratio := new(big.Rat).SetFrac(combined, attributable)
			attrA.Mul(ratio, new(big.Rat).SetInt(snapshot.ReserveA))
			attrB.Mul(ratio, new(big.Rat).SetInt(snapshot.ReserveB))
		}

		// Truncation happens per holder, so the reconciled sums are over the
		// floored values actually emitted, not the exact rationals.
		sumA.Add(sumA, ratFloor(attrA))
		sumB.Add(sumB, ratFloor(attrB))

		records = append(records, domain.OwnershipRecord{
			TokenA:       snapshot.TokenA,
			TokenB:       snapshot.TokenB,
			Holder:       h.Holder,
			ShareBalance: combined,
			AttributedA:  emit(attrA, opts, !opts.TrackedIsTokenB),
			AttributedB:  emit(attrB, opts, opts.TrackedIsTokenB),
		})
	}

	// The accumulator's own balance was skipped above; its stakers' recorded
	// positions must add back up to it before the supply can reconcile.
	supplyTotal := new(big.Int).Set(shareTotal)
	if opts.AccumulatorBalance != nil {
		staked := new(big.Int)
		for _, h := range holders {
			if h.Staked != nil {
				staked.Add(staked, h.Staked)
			}
		}
		if staked.Cmp(opts.AccumulatorBalance) != 0 {
			return nil, nil, &domain.ConservationError{
				Quantity: "accumulator custody",
				Expected: opts.AccumulatorBalance,
				Computed: staked,
			}
		}
	}

	if supplyTotal.Cmp(attributable) != 0 {
		return nil, nil, &domain.ConservationError{
			Quantity: "combined share supply",
			Expected: attributable,
			Computed: supplyTotal,
		}
	}

	if err := checkReserve("token0 reserve", snapshot.ReserveA, sumA, drift); err != nil {
		return nil, nil, err
	}
	if err := checkReserve("token1 reserve", snapshot.ReserveB, sumB, drift); err != nil {
		return nil, nil, err
	}

	report := &Report{
		AttributableSupply: attributable,
		ShareTotal:         shareTotal,
		AttributedATotal:   sumA,
		AttributedBTotal:   sumB,
		Holders:            len(holders),
		NonzeroHolders:     nonzero,
	}
	return records, report, nil
}

// emit truncates an exact attributed amount for output, renormalizing the
// tracked side first when an adjustment is configured.
func emit(exact *big.Rat, opts Options, isTracked bool) *big.Int {
	if isTracked && opts.AdjustTracked != nil && exact.Sign() != 0 {
		return credits.AdjustRat(exact, opts.AdjustTracked.FromCPT, opts.AdjustTracked.ToCPT)
	}
	return ratFloor(exact)
}

func checkReserve(quantity string, reserve, sum, drift *big.Int) error {
	diff := new(big.Int).Sub(reserve, sum)
	if diff.CmpAbs(drift) > 0 {
		return &domain.ConservationError{
			Quantity:  quantity,
			Expected:  reserve,
			Computed:  sum,
			Tolerance: drift,
		}
	}
	return nil
}

// ratFloor truncates a non-negative rational toward zero.
func ratFloor(r *big.Rat) *big.Int {
	return new(big.Int).Quo(r.Num(), r.Denom())
}
