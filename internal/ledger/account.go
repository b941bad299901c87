package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

// SplitInvariantError reports an internal inconsistency in the compensation
// split: the primary amount plus the secondary USD value must reconstruct
// the eligible balance exactly.
type SplitInvariantError struct {
	Address      common.Address
	Eligible     *big.Int
	Primary      *big.Int
	SecondaryUsd *big.Int
}

func (e *SplitInvariantError) Error() string {
	return fmt.Sprintf("split invariant violated for %s: primary %s + secondary usd %s != eligible %s",
		e.Address.Hex(), e.Primary, e.SecondaryUsd, e.Eligible)
}

// swapFlow is one classified swap's contribution to an account, measured in
// the counter asset's own units.
type swapFlow struct {
	counterAmount *big.Int
	direction     domain.Direction
}

// Account is one address's ledger entry. Created on first reference from any
// data source, never deleted; all mutation goes through additive
// accumulation methods.
type Account struct {
	Address common.Address
	params  *Parameters

	baseStart *big.Int // tracked-asset balance, pre-incident
	baseEnd   *big.Int

	trackedPooledStart *big.Int // tracked side of LP/staked positions
	trackedPooledEnd   *big.Int

	counterPooledStart map[domain.CounterAsset]*big.Int
	counterPooledEnd   map[domain.CounterAsset]*big.Int

	swaps map[domain.CounterAsset][]swapFlow

	offPlatformProceeds []*big.Int // USD, 1e18 scale
}

func newAccount(addr common.Address, params *Parameters) *Account {
	return &Account{
		Address:            addr,
		params:             params,
		baseStart:          new(big.Int),
		baseEnd:            new(big.Int),
		trackedPooledStart: new(big.Int),
		trackedPooledEnd:   new(big.Int),
		counterPooledStart: make(map[domain.CounterAsset]*big.Int),
		counterPooledEnd:   make(map[domain.CounterAsset]*big.Int),
		swaps:              make(map[domain.CounterAsset][]swapFlow),
	}
}

// AddBaseBalanceStart accumulates pre-incident tracked-asset balance.
func (a *Account) AddBaseBalanceStart(v *big.Int) { a.baseStart.Add(a.baseStart, v) }

// AddBaseBalanceEnd accumulates post-incident tracked-asset balance.
func (a *Account) AddBaseBalanceEnd(v *big.Int) { a.baseEnd.Add(a.baseEnd, v) }

// AddPooledStart accumulates a pre-incident pooled position: the tracked
// side plus the counter side in its own units.
func (a *Account) AddPooledStart(asset domain.CounterAsset, tracked, counter *big.Int) {
	a.trackedPooledStart.Add(a.trackedPooledStart, tracked)
	addTo(a.counterPooledStart, asset, counter)
}

// AddPooledEnd accumulates a post-incident pooled position.
func (a *Account) AddPooledEnd(asset domain.CounterAsset, tracked, counter *big.Int) {
	a.trackedPooledEnd.Add(a.trackedPooledEnd, tracked)
	addTo(a.counterPooledEnd, asset, counter)
}

// AddSwap records one classified swap's counter-asset flow.
func (a *Account) AddSwap(asset domain.CounterAsset, counterAmount *big.Int, direction domain.Direction) {
	a.swaps[asset] = append(a.swaps[asset], swapFlow{
		counterAmount: new(big.Int).Set(counterAmount),
		direction:     direction,
	})
}

// AddOffPlatformProceeds records a post-incident off-platform sale of the
// tracked asset (USD, 1e18 scale).
func (a *Account) AddOffPlatformProceeds(usd *big.Int) {
	a.offPlatformProceeds = append(a.offPlatformProceeds, new(big.Int).Set(usd))
}

func addTo(m map[domain.CounterAsset]*big.Int, asset domain.CounterAsset, v *big.Int) {
	if cur, ok := m[asset]; ok {
		cur.Add(cur, v)
	} else {
		m[asset] = new(big.Int).Set(v)
	}
}

// BaseBalanceStart returns the accumulated pre-incident balance.
func (a *Account) BaseBalanceStart() *big.Int { return new(big.Int).Set(a.baseStart) }

// TrackedPooledStart returns the pre-incident pooled tracked position.
func (a *Account) TrackedPooledStart() *big.Int { return new(big.Int).Set(a.trackedPooledStart) }

// SwapIn sums the counter asset received for selling the tracked asset.
func (a *Account) SwapIn(asset domain.CounterAsset) *big.Int {
	return a.sumSwaps(asset, domain.DirectionSell)
}

// SwapOut sums the counter asset spent buying the tracked asset.
func (a *Account) SwapOut(asset domain.CounterAsset) *big.Int {
	return a.sumSwaps(asset, domain.DirectionBuy)
}

func (a *Account) sumSwaps(asset domain.CounterAsset, dir domain.Direction) *big.Int {
	total := new(big.Int)
	for _, s := range a.swaps[asset] {
		if s.direction == dir {
			total.Add(total, s.counterAmount)
		}
	}
	return total
}

// TradingGain is the net post-incident counter-asset flow, in the asset's
// own units. An account with no pre-incident exposure cannot register a
// gain; its flow is defined as zero.
func (a *Account) TradingGain(asset domain.CounterAsset) *big.Int {
	exposure := new(big.Int).Add(a.baseStart, a.trackedPooledStart)
	if exposure.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(a.SwapIn(asset), a.SwapOut(asset))
}

// OffPlatformGain sums recorded off-platform proceeds.
func (a *Account) OffPlatformGain() *big.Int {
	total := new(big.Int)
	for _, p := range a.offPlatformProceeds {
		total.Add(total, p)
	}
	return total
}

// stablecoin balances carry 6 decimals; USD amounts carry 18
var stableScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

// TradingGainTotalUsd converts every counter-asset gain to USD (1e18 scale)
// and adds off-platform proceeds. Exact rational arithmetic throughout.
func (a *Account) TradingGainTotalUsd() *big.Rat {
	total := new(big.Rat)

	usdt := new(big.Int).Mul(a.TradingGain(domain.AssetUSDT), stableScale)
	usdc := new(big.Int).Mul(a.TradingGain(domain.AssetUSDC), stableScale)
	total.Add(total, new(big.Rat).SetInt(usdt))
	total.Add(total, new(big.Rat).SetInt(usdc))

	weth := new(big.Rat).SetInt(a.TradingGain(domain.AssetWETH))
	weth.Mul(weth, a.params.EthValueUsd)
	total.Add(total, weth)

	total.Add(total, new(big.Rat).SetInt(a.OffPlatformGain()))
	return total
}

// EligibleBalanceUsd is the reimbursable pre-incident holding: base balance
// plus pooled tracked-asset position, net of any post-incident trading gain.
// Never negative; amounts below the minimum threshold collapse to zero.
func (a *Account) EligibleBalanceUsd() *big.Int {
	diff := new(big.Rat).SetInt(new(big.Int).Add(a.baseStart, a.trackedPooledStart))

	gain := a.TradingGainTotalUsd()
	if gain.Sign() > 0 {
		diff.Sub(diff, gain)
	}

	if diff.Cmp(new(big.Rat).SetInt(a.params.MinimumThreshold)) < 0 {
		return new(big.Int)
	}
	return new(big.Int).Quo(diff.Num(), diff.Denom())
}

// Compensation is the computed two-asset split for one account. Primary and
// SecondaryUsd are USD amounts at 1e18 scale; Secondary is denominated in
// the secondary asset at 1e18 scale.
type Compensation struct {
	Eligible     *big.Int
	Primary      *big.Int
	SecondaryUsd *big.Int
	Secondary    *big.Int
}

// Compensation applies the threshold split. At or below the threshold the
// whole eligible balance is paid in the primary asset. Above it, the excess
// is split by the configured ratio, and the consistency of the split is
// enforced before anything is returned.
func (a *Account) Compensation() (*Compensation, error) {
	eligible := a.EligibleBalanceUsd()

	if eligible.Cmp(a.params.SplitThreshold) <= 0 {
		return &Compensation{
			Eligible:     eligible,
			Primary:      new(big.Int).Set(eligible),
			SecondaryUsd: new(big.Int),
			Secondary:    new(big.Int),
		}, nil
	}

	aboveSplit := new(big.Int).Sub(eligible, a.params.SplitThreshold)

	primaryShare := new(big.Rat).SetInt(aboveSplit)
	primaryShare.Mul(primaryShare, a.params.PrimarySecondarySplit)
	primaryAbove := new(big.Int).Quo(primaryShare.Num(), primaryShare.Denom())

	primary := new(big.Int).Add(a.params.SplitThreshold, primaryAbove)
	secondaryUsd := new(big.Int).Sub(aboveSplit, primaryAbove)

	if check := new(big.Int).Add(secondaryUsd, primary); check.Cmp(eligible) != 0 {
		return nil, &SplitInvariantError{
			Address:      a.Address,
			Eligible:     eligible,
			Primary:      primary,
			SecondaryUsd: secondaryUsd,
		}
	}

	secondary := new(big.Int).Mul(secondaryUsd, wad)
	secondary.Quo(secondary, a.params.SecondaryAssetPriceUsd)

	return &Compensation{
		Eligible:     eligible,
		Primary:      primary,
		SecondaryUsd: secondaryUsd,
		Secondary:    secondary,
	}, nil
}
