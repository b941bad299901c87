// Package discovery derives the candidate holder set for a pool or geyser
// from its historical event log.
package discovery

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/registry"
)

// UnrecognizedOriginError is returned when a liquidity-add event originates
// from a transaction whose call selector matches no known entry point. The
// depositor's identity is never guessed from unfamiliar call patterns.
type UnrecognizedOriginError struct {
	TxHash   common.Hash
	Selector []byte
}

func (e *UnrecognizedOriginError) Error() string {
	return fmt.Sprintf("unknown function resulting in event: tx %s selector 0x%x",
		e.TxHash.Hex(), e.Selector)
}

// ParticipantSet is an ordered, deduplicated address set. The zero address
// is never admitted. Order is first-seen, which keeps downstream output
// deterministic for identical event streams.
type ParticipantSet struct {
	addrs []common.Address
	seen  map[common.Address]struct{}
}

// NewParticipantSet returns an empty set.
func NewParticipantSet() *ParticipantSet {
	return &ParticipantSet{seen: make(map[common.Address]struct{})}
}

// Add inserts addr unless it is the zero address or already present.
// Reports whether the set changed.
func (s *ParticipantSet) Add(addr common.Address) bool {
	if addr == (common.Address{}) {
		return false
	}
	if _, ok := s.seen[addr]; ok {
		return false
	}
	s.seen[addr] = struct{}{}
	s.addrs = append(s.addrs, addr)
	return true
}

// Contains reports whether addr is in the set.
func (s *ParticipantSet) Contains(addr common.Address) bool {
	_, ok := s.seen[addr]
	return ok
}

// Addresses returns the members in first-seen order.
func (s *ParticipantSet) Addresses() []common.Address {
	out := make([]common.Address, len(s.addrs))
	copy(out, s.addrs)
	return out
}

// Len returns the member count.
func (s *ParticipantSet) Len() int { return len(s.addrs) }

// TransactionSource resolves the originating transaction of an event.
type TransactionSource interface {
	Transaction(ctx context.Context, hash common.Hash) (*domain.Transaction, error)
}

// Discoverer accumulates participants from event streams.
type Discoverer struct {
	txs TransactionSource
	reg *registry.Registry
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(txs TransactionSource, reg *registry.Registry) *Discoverer {
	return &Discoverer{txs: txs, reg: reg}
}

// FromMints adds the transaction sender of every liquidity-add event. The
// logged event sender is typically the router, so the depositor is taken
// from the transaction itself, after its call selector is validated against
// the known liquidity-add entry points. An unrecognized selector is fatal.
func (d *Discoverer) FromMints(ctx context.Context, mints []domain.MintEvent, set *ParticipantSet) error {
	for _, mint := range mints {
		tx, err := d.txs.Transaction(ctx, mint.TxHash)
		if err != nil {
			return fmt.Errorf("resolve mint origin %s: %w", mint.TxHash.Hex(), err)
		}
		if !d.reg.IsAddLiquiditySelector(tx.InputSelector()) {
			return &UnrecognizedOriginError{TxHash: mint.TxHash, Selector: tx.InputSelector()}
		}
		set.Add(tx.From)
	}
	return nil
}

// FromDepositors adds the logged sender of deposit events for pools whose
// deposit event carries the real depositor (Mooniswap-style, no router
// indirection). No origin validation applies.
func (d *Discoverer) FromDepositors(deposits []domain.MintEvent, set *ParticipantSet) {
	for _, dep := range deposits {
		set.Add(dep.Sender)
	}
}

// FromTransfers adds every LP share transfer recipient.
func (d *Discoverer) FromTransfers(transfers []domain.TransferEvent, set *ParticipantSet) {
	for _, tr := range transfers {
		set.Add(tr.To)
	}
}

// FromStakes adds every staker seen by a geyser.
func (d *Discoverer) FromStakes(stakes []domain.StakeEvent, set *ParticipantSet) {
	for _, st := range stakes {
		set.Add(st.User)
	}
}
