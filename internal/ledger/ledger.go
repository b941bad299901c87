// Package ledger aggregates every reconciled data source into per-account
// compensation. The ledger map is append-only: entries are created on first
// reference and only ever accumulate.
package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

// Phase tags whether a record describes the pre- or post-incident snapshot.
type Phase int

// Snapshot phases.
const (
	PhaseStart Phase = iota // pre-incident block
	PhaseEnd                // post-incident block
)

// AssetResolver maps a counter-token address to its configured asset.
type AssetResolver func(common.Address) (domain.CounterAsset, error)

// Ledger is the per-address compensation ledger.
type Ledger struct {
	params  *Parameters
	resolve AssetResolver

	accounts map[common.Address]*Account
	order    []common.Address // first-reference order, for deterministic output
}

// New creates an empty ledger.
func New(params *Parameters, resolve AssetResolver) *Ledger {
	return &Ledger{
		params:   params,
		resolve:  resolve,
		accounts: make(map[common.Address]*Account),
	}
}

// Upsert returns the account for addr, creating it on first reference.
func (l *Ledger) Upsert(addr common.Address) *Account {
	if acct, ok := l.accounts[addr]; ok {
		return acct
	}
	acct := newAccount(addr, l.params)
	l.accounts[addr] = acct
	l.order = append(l.order, addr)
	return acct
}

// Account returns the entry for addr, or nil when addr was never referenced.
func (l *Ledger) Account(addr common.Address) *Account {
	return l.accounts[addr]
}

// Len returns the number of referenced accounts.
func (l *Ledger) Len() int { return len(l.accounts) }

// ApplyBalances accumulates a tracked-asset balance snapshot.
func (l *Ledger) ApplyBalances(phase Phase, recs []domain.BalanceRecord) {
	for _, rec := range recs {
		acct := l.Upsert(rec.Address)
		if phase == PhaseStart {
			acct.AddBaseBalanceStart(rec.Balance)
		} else {
			acct.AddBaseBalanceEnd(rec.Balance)
		}
	}
}

// ApplyOwnership accumulates pool ownership records. The tracked asset is
// always the record's token0 side; the counter asset is resolved from the
// token1 address, and an unknown counter asset aborts the load.
func (l *Ledger) ApplyOwnership(phase Phase, recs []domain.OwnershipRecord) error {
	for _, rec := range recs {
		asset, err := l.resolve(rec.TokenB)
		if err != nil {
			return err
		}
		acct := l.Upsert(rec.Holder)
		if phase == PhaseStart {
			acct.AddPooledStart(asset, rec.AttributedA, rec.AttributedB)
		} else {
			acct.AddPooledEnd(asset, rec.AttributedA, rec.AttributedB)
		}
	}
	return nil
}

// ApplyStaking accumulates geyser staking records. A staked position is the
// tracked asset held directly, so the adjusted derived balance lands on the
// base balance, not the pooled position.
func (l *Ledger) ApplyStaking(phase Phase, recs []domain.StakingRecord) {
	for _, rec := range recs {
		acct := l.Upsert(rec.Holder)
		if phase == PhaseStart {
			acct.AddBaseBalanceStart(rec.AdjustedDerivedBalance)
		} else {
			acct.AddBaseBalanceEnd(rec.AdjustedDerivedBalance)
		}
	}
}

// ApplySwaps accumulates classified swaps. The flow is booked against the
// transaction sender; the recipient is still upserted so it appears in the
// ledger.
func (l *Ledger) ApplySwaps(recs []domain.SwapRecord) error {
	for _, rec := range recs {
		asset, err := l.resolve(rec.TokenB)
		if err != nil {
			return err
		}
		l.Upsert(rec.OutAddress)
		l.Upsert(rec.InAddress).AddSwap(asset, rec.CounterChange, rec.Direction)
	}
	return nil
}

// AddOffPlatformProceeds books an off-platform USD proceed (1e18 scale).
func (l *Ledger) AddOffPlatformProceeds(addr common.Address, usd *big.Int) {
	l.Upsert(addr).AddOffPlatformProceeds(usd)
}

// Row is one account's final compensation output.
type Row struct {
	Address      common.Address
	Eligible     *big.Int
	Primary      *big.Int
	Secondary    *big.Int
	SecondaryUsd *big.Int
}

// Rows computes compensation for every account in first-reference order.
// Blacklisted accounts and accounts with zero eligible balance are omitted.
// A split-invariant failure aborts the whole table.
func (l *Ledger) Rows(blacklist map[common.Address]bool) ([]Row, error) {
	rows := make([]Row, 0, len(l.order))
	for _, addr := range l.order {
		if blacklist[addr] {
			continue
		}
		comp, err := l.accounts[addr].Compensation()
		if err != nil {
			return nil, fmt.Errorf("compute compensation for %s: %w", addr.Hex(), err)
		}
		if comp.Eligible.Sign() == 0 {
			continue
		}
		rows = append(rows, Row{
			Address:      addr,
			Eligible:     comp.Eligible,
			Primary:      comp.Primary,
			Secondary:    comp.Secondary,
			SecondaryUsd: comp.SecondaryUsd,
		})
	}
	return rows, nil
}
