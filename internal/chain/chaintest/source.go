// Package chaintest provides a deterministic in-memory chain source for
// testing. Every lookup is keyed exactly the way the real source pins it, so
// tests fail loudly when a component queries state it never seeded.
package chaintest

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/chain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

type contractKey struct {
	Contract common.Address
	Block    uint64
}

type holderKey struct {
	Contract common.Address
	Holder   common.Address
	Block    uint64
}

type tokenPairKey struct {
	Factory common.Address
	TokenA  common.Address
	TokenB  common.Address
}

// StubSource implements chain.Source from seeded in-memory state.
type StubSource struct {
	snapshots     map[contractKey]*domain.PoolSnapshot
	balances      map[holderKey]*big.Int
	staked        map[holderKey]*big.Int
	poolIDs       map[common.Address]uint64
	tokenBalances map[holderKey]*big.Int
	supplies      map[contractKey]*big.Int
	credits       map[holderKey]*big.Int
	cpt           map[contractKey]*big.Int
	pairs         map[tokenPairKey]common.Address
	pairTokens    map[common.Address][2]common.Address

	mints     []domain.MintEvent
	transfers []domain.TransferEvent
	stakes    []domain.StakeEvent
	swaps     []domain.SwapEvent

	receiptSwaps map[common.Hash][]domain.SwapEvent
	transactions map[common.Hash]*domain.Transaction
	receipts     map[common.Hash]*domain.Receipt
}

// Compile-time interface check.
var _ chain.Source = (*StubSource)(nil)

// NewStubSource creates an empty stub source.
func NewStubSource() *StubSource {
	return &StubSource{
		snapshots:     make(map[contractKey]*domain.PoolSnapshot),
		balances:      make(map[holderKey]*big.Int),
		staked:        make(map[holderKey]*big.Int),
		poolIDs:       make(map[common.Address]uint64),
		tokenBalances: make(map[holderKey]*big.Int),
		supplies:      make(map[contractKey]*big.Int),
		credits:       make(map[holderKey]*big.Int),
		cpt:           make(map[contractKey]*big.Int),
		pairs:         make(map[tokenPairKey]common.Address),
		pairTokens:    make(map[common.Address][2]common.Address),
		receiptSwaps:  make(map[common.Hash][]domain.SwapEvent),
		transactions:  make(map[common.Hash]*domain.Transaction),
		receipts:      make(map[common.Hash]*domain.Receipt),
	}
}

// Seeding helpers.

func (s *StubSource) SetSnapshot(snap *domain.PoolSnapshot) {
	s.snapshots[contractKey{snap.Pair, snap.Block}] = snap
	s.pairTokens[snap.Pair] = [2]common.Address{snap.TokenA, snap.TokenB}
}

func (s *StubSource) SetBalance(pool, holder common.Address, block uint64, v *big.Int) {
	s.balances[holderKey{pool, holder, block}] = v
}

func (s *StubSource) SetStaked(staking, holder common.Address, block uint64, v *big.Int) {
	s.staked[holderKey{staking, holder, block}] = v
}

func (s *StubSource) SetPoolID(lpToken common.Address, pid uint64) {
	s.poolIDs[lpToken] = pid
}

func (s *StubSource) SetTokenBalance(token, holder common.Address, block uint64, v *big.Int) {
	s.tokenBalances[holderKey{token, holder, block}] = v
}

func (s *StubSource) SetTotalSupply(contract common.Address, block uint64, v *big.Int) {
	s.supplies[contractKey{contract, block}] = v
}

func (s *StubSource) SetCredits(contract, holder common.Address, block uint64, v *big.Int) {
	s.credits[holderKey{contract, holder, block}] = v
}

func (s *StubSource) SetCreditsPerToken(token common.Address, block uint64, v *big.Int) {
	s.cpt[contractKey{token, block}] = v
}

func (s *StubSource) SetPair(factory, tokenA, tokenB, pair common.Address) {
	s.pairs[tokenPairKey{factory, tokenA, tokenB}] = pair
}

func (s *StubSource) SetPairTokens(pair, token0, token1 common.Address) {
	s.pairTokens[pair] = [2]common.Address{token0, token1}
}

func (s *StubSource) AddMint(ev domain.MintEvent)         { s.mints = append(s.mints, ev) }
func (s *StubSource) AddTransfer(ev domain.TransferEvent) { s.transfers = append(s.transfers, ev) }
func (s *StubSource) AddStake(ev domain.StakeEvent)       { s.stakes = append(s.stakes, ev) }
func (s *StubSource) AddSwap(ev domain.SwapEvent) {
	s.swaps = append(s.swaps, ev)
	s.receiptSwaps[ev.TxHash] = append(s.receiptSwaps[ev.TxHash], ev)
}

func (s *StubSource) SetTransaction(tx *domain.Transaction) {
	s.transactions[tx.Hash] = tx
}

func (s *StubSource) SetReceipt(r *domain.Receipt) {
	s.receipts[r.TxHash] = r
}

// chain.Source implementation.

func (s *StubSource) PoolSnapshot(_ context.Context, pair common.Address, block uint64) (*domain.PoolSnapshot, error) {
	snap, ok := s.snapshots[contractKey{pair, block}]
	if !ok {
		return nil, fmt.Errorf("no snapshot seeded for %s at block %d", pair.Hex(), block)
	}
	return snap, nil
}

func (s *StubSource) HolderBalance(_ context.Context, pool, holder common.Address, block uint64) (*big.Int, error) {
	if v, ok := s.balances[holderKey{pool, holder, block}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (s *StubSource) StakingUserBalance(_ context.Context, staking common.Address, _ uint64, holder common.Address, block uint64) (*big.Int, error) {
	if v, ok := s.staked[holderKey{staking, holder, block}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (s *StubSource) StakingPoolID(_ context.Context, staking, lpToken common.Address, _ uint64) (uint64, error) {
	pid, ok := s.poolIDs[lpToken]
	if !ok {
		return 0, &chain.StakingPoolNotFoundError{Staking: staking, LPToken: lpToken}
	}
	return pid, nil
}

func (s *StubSource) TokenBalance(_ context.Context, token, holder common.Address, block uint64) (*big.Int, error) {
	if v, ok := s.tokenBalances[holderKey{token, holder, block}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (s *StubSource) TotalSupply(_ context.Context, contract common.Address, block uint64) (*big.Int, error) {
	v, ok := s.supplies[contractKey{contract, block}]
	if !ok {
		return nil, fmt.Errorf("no total supply seeded for %s at block %d", contract.Hex(), block)
	}
	return new(big.Int).Set(v), nil
}

func (s *StubSource) CreditsBalance(_ context.Context, contract, holder common.Address, block uint64) (*big.Int, error) {
	if v, ok := s.credits[holderKey{contract, holder, block}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (s *StubSource) CreditsPerToken(_ context.Context, token common.Address, block uint64) (*big.Int, error) {
	v, ok := s.cpt[contractKey{token, block}]
	if !ok {
		return nil, fmt.Errorf("no credits per token seeded for %s at block %d", token.Hex(), block)
	}
	return new(big.Int).Set(v), nil
}

func (s *StubSource) PairByTokens(_ context.Context, factory, tokenA, tokenB common.Address, _ uint64) (common.Address, error) {
	pair, ok := s.pairs[tokenPairKey{factory, tokenA, tokenB}]
	if !ok {
		return common.Address{}, &chain.PairNotFoundError{Factory: factory, TokenA: tokenA, TokenB: tokenB}
	}
	return pair, nil
}

func (s *StubSource) PairTokens(_ context.Context, pair common.Address, _ uint64) (common.Address, common.Address, error) {
	tokens, ok := s.pairTokens[pair]
	if !ok {
		return common.Address{}, common.Address{}, fmt.Errorf("no tokens seeded for pair %s", pair.Hex())
	}
	return tokens[0], tokens[1], nil
}

func (s *StubSource) MintEvents(_ context.Context, pair common.Address, fromBlock, toBlock uint64) ([]domain.MintEvent, error) {
	var out []domain.MintEvent
	for _, ev := range s.mints {
		if ev.Pair == pair && ev.Block >= fromBlock && ev.Block <= toBlock {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *StubSource) TransferEvents(_ context.Context, pair common.Address, fromBlock, toBlock uint64) ([]domain.TransferEvent, error) {
	var out []domain.TransferEvent
	for _, ev := range s.transfers {
		if ev.Pair == pair && ev.Block >= fromBlock && ev.Block <= toBlock {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *StubSource) StakeEvents(_ context.Context, contract common.Address, fromBlock, toBlock uint64) ([]domain.StakeEvent, error) {
	var out []domain.StakeEvent
	for _, ev := range s.stakes {
		if ev.Contract == contract && ev.Block >= fromBlock && ev.Block <= toBlock {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *StubSource) SwapEvents(_ context.Context, pair common.Address, fromBlock, toBlock uint64) ([]domain.SwapEvent, error) {
	var out []domain.SwapEvent
	for _, ev := range s.swaps {
		if ev.Pair == pair && ev.Block >= fromBlock && ev.Block <= toBlock {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *StubSource) SwapEventsInReceipt(_ context.Context, txHash common.Hash) ([]domain.SwapEvent, error) {
	return s.receiptSwaps[txHash], nil
}

func (s *StubSource) Transaction(_ context.Context, hash common.Hash) (*domain.Transaction, error) {
	tx, ok := s.transactions[hash]
	if !ok {
		return nil, fmt.Errorf("no transaction seeded for %s", hash.Hex())
	}
	return tx, nil
}

func (s *StubSource) TransactionReceipt(_ context.Context, hash common.Hash) (*domain.Receipt, error) {
	r, ok := s.receipts[hash]
	if !ok {
		return nil, fmt.Errorf("no receipt seeded for %s", hash.Hex())
	}
	return r, nil
}
