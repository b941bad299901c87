// Package chain defines the data-source interface the reconciliation reads
// frozen chain state through. Implementations must answer every query at the
// exact block height requested; the core never sees a live chain.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

// Source abstracts the chain data layer.
type Source interface {
	// PoolSnapshot returns the pool's supply, reserves and token ordering at
	// a block. For Mooniswap-style pools the reserves are the pool's raw
	// token balances.
	PoolSnapshot(ctx context.Context, pair common.Address, block uint64) (*domain.PoolSnapshot, error)

	// HolderBalance returns a holder's LP share balance at a block.
	HolderBalance(ctx context.Context, pool, holder common.Address, block uint64) (*big.Int, error)

	// StakingUserBalance returns the share amount a staking contract records
	// for holder under the given pool id.
	StakingUserBalance(ctx context.Context, staking common.Address, poolID uint64, holder common.Address, block uint64) (*big.Int, error)

	// StakingPoolID resolves the staking contract's internal pool id for an
	// LP token.
	StakingPoolID(ctx context.Context, staking, lpToken common.Address, block uint64) (uint64, error)

	// TokenBalance returns an ERC-20 balance at a block.
	TokenBalance(ctx context.Context, token, holder common.Address, block uint64) (*big.Int, error)

	// TotalSupply returns a contract's totalSupply at a block. For geysers
	// this is denominated in the contract's internal accounting unit.
	TotalSupply(ctx context.Context, contract common.Address, block uint64) (*big.Int, error)

	// CreditsBalance returns the rebasing-token credit balance of a holder.
	CreditsBalance(ctx context.Context, token, holder common.Address, block uint64) (*big.Int, error)

	// CreditsPerToken returns the rebasing conversion factor at a block.
	CreditsPerToken(ctx context.Context, token common.Address, block uint64) (*big.Int, error)

	// PairByTokens resolves a factory's pair address for a token pair.
	// A missing pair is a *PairNotFoundError.
	PairByTokens(ctx context.Context, factory, tokenA, tokenB common.Address, block uint64) (common.Address, error)

	// PairTokens returns a pair's token0 and token1.
	PairTokens(ctx context.Context, pair common.Address, block uint64) (common.Address, common.Address, error)

	// MintEvents returns a pair's liquidity-add events in [fromBlock, toBlock],
	// block order.
	MintEvents(ctx context.Context, pair common.Address, fromBlock, toBlock uint64) ([]domain.MintEvent, error)

	// TransferEvents returns a pair's LP transfer events in block order.
	TransferEvents(ctx context.Context, pair common.Address, fromBlock, toBlock uint64) ([]domain.TransferEvent, error)

	// StakeEvents returns a geyser's Staked events in block order.
	StakeEvents(ctx context.Context, contract common.Address, fromBlock, toBlock uint64) ([]domain.StakeEvent, error)

	// SwapEvents returns a pair's Swap events in block order.
	SwapEvents(ctx context.Context, pair common.Address, fromBlock, toBlock uint64) ([]domain.SwapEvent, error)

	// SwapEventsInReceipt returns every pool Swap event emitted by a
	// transaction, in log order, regardless of emitting pool.
	SwapEventsInReceipt(ctx context.Context, txHash common.Hash) ([]domain.SwapEvent, error)

	// Transaction returns the sender and input of a transaction.
	Transaction(ctx context.Context, hash common.Hash) (*domain.Transaction, error)

	// TransactionReceipt returns the status and sender of a transaction.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
}
