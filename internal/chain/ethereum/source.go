// Package ethereum implements the chain source against a JSON-RPC endpoint
// via go-ethereum. Every read is pinned to an explicit block height; transient
// transport failures are retried with bounded backoff.
package ethereum

import (
	"context"
	"fmt"
	"math/big"

	ethereumgo "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/chain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/retry"
)

// Client reads frozen chain state over JSON-RPC.
type Client struct {
	ec      *ethclient.Client
	chainID *big.Int
	signer  types.Signer
	cfg     retry.Config
	logger  *zap.Logger
}

// Compile-time interface check.
var _ chain.Source = (*Client)(nil)

// Dial connects to a JSON-RPC endpoint and resolves its chain id, which is
// needed to recover transaction senders.
func Dial(ctx context.Context, url string, logger *zap.Logger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	chainID, err := ec.ChainID(ctx)
	if err != nil {
		ec.Close()
		return nil, fmt.Errorf("resolve chain id: %w", err)
	}
	return &Client{
		ec:      ec,
		chainID: chainID,
		signer:  types.LatestSignerForChainID(chainID),
		cfg:     retry.DefaultConfig(),
		logger:  logger,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.ec.Close()
}

// call executes a pinned eth_call and unpacks the result.
func (c *Client) call(ctx context.Context, target common.Address, contract abi.ABI, method string, block uint64, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereumgo.CallMsg{To: &target, Data: data}

	var raw []byte
	op := fmt.Sprintf("eth_call %s on %s", method, target.Hex())
	err = retry.WithBackoff(ctx, c.cfg, c.logger, op, func() error {
		var callErr error
		raw, callErr = c.ec.CallContract(ctx, msg, new(big.Int).SetUint64(block))
		return callErr
	})
	if err != nil {
		return nil, err
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// filterLogs runs a pinned eth_getLogs with retry.
func (c *Client) filterLogs(ctx context.Context, q ethereumgo.FilterQuery, op string) ([]types.Log, error) {
	var logs []types.Log
	err := retry.WithBackoff(ctx, c.cfg, c.logger, op, func() error {
		var filterErr error
		logs, filterErr = c.ec.FilterLogs(ctx, q)
		return filterErr
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// PoolSnapshot reads the pool's supply, reserves and token ordering. Uniswap
// style pools answer getReserves; Mooniswap pools have no reserve accessor,
// so the caller uses MooniswapSnapshot instead.
func (c *Client) PoolSnapshot(ctx context.Context, pair common.Address, block uint64) (*domain.PoolSnapshot, error) {
	token0, err := c.call(ctx, pair, pairABI, "token0", block)
	if err != nil {
		return nil, err
	}
	token1, err := c.call(ctx, pair, pairABI, "token1", block)
	if err != nil {
		return nil, err
	}
	supply, err := c.call(ctx, pair, pairABI, "totalSupply", block)
	if err != nil {
		return nil, err
	}
	reserves, err := c.call(ctx, pair, pairABI, "getReserves", block)
	if err != nil {
		return nil, err
	}
	return &domain.PoolSnapshot{
		Pair:        pair,
		TokenA:      token0[0].(common.Address),
		TokenB:      token1[0].(common.Address),
		TotalSupply: supply[0].(*big.Int),
		ReserveA:    reserves[0].(*big.Int),
		ReserveB:    reserves[1].(*big.Int),
		Block:       block,
	}, nil
}

// MooniswapSnapshot reads a Mooniswap pool, whose reserves are its raw token
// balances and whose token ordering comes from tokens(0)/tokens(1).
func (c *Client) MooniswapSnapshot(ctx context.Context, pool common.Address, block uint64) (*domain.PoolSnapshot, error) {
	token0, err := c.call(ctx, pool, mooniswapABI, "tokens", block, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	token1, err := c.call(ctx, pool, mooniswapABI, "tokens", block, big.NewInt(1))
	if err != nil {
		return nil, err
	}
	supply, err := c.call(ctx, pool, mooniswapABI, "totalSupply", block)
	if err != nil {
		return nil, err
	}
	tokenA := token0[0].(common.Address)
	tokenB := token1[0].(common.Address)
	reserveA, err := c.TokenBalance(ctx, tokenA, pool, block)
	if err != nil {
		return nil, err
	}
	reserveB, err := c.TokenBalance(ctx, tokenB, pool, block)
	if err != nil {
		return nil, err
	}
	return &domain.PoolSnapshot{
		Pair:        pool,
		TokenA:      tokenA,
		TokenB:      tokenB,
		TotalSupply: supply[0].(*big.Int),
		ReserveA:    reserveA,
		ReserveB:    reserveB,
		Block:       block,
	}, nil
}

// HolderBalance reads a holder's LP share balance.
func (c *Client) HolderBalance(ctx context.Context, pool, holder common.Address, block uint64) (*big.Int, error) {
	out, err := c.call(ctx, pool, pairABI, "balanceOf", block, holder)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// StakingUserBalance reads the share amount a MasterChef-style contract
// records for holder under poolID.
func (c *Client) StakingUserBalance(ctx context.Context, staking common.Address, poolID uint64, holder common.Address, block uint64) (*big.Int, error) {
	out, err := c.call(ctx, staking, masterChefABI, "userInfo", block, new(big.Int).SetUint64(poolID), holder)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// StakingPoolID scans poolInfo from the newest pool downward and returns the
// id whose lpToken matches. Newer pools are the common case for recently
// listed pairs.
func (c *Client) StakingPoolID(ctx context.Context, staking, lpToken common.Address, block uint64) (uint64, error) {
	out, err := c.call(ctx, staking, masterChefABI, "poolLength", block)
	if err != nil {
		return 0, err
	}
	length := out[0].(*big.Int).Uint64()
	for i := length; i > 0; i-- {
		pid := i - 1
		info, err := c.call(ctx, staking, masterChefABI, "poolInfo", block, new(big.Int).SetUint64(pid))
		if err != nil {
			return 0, err
		}
		if info[0].(common.Address) == lpToken {
			return pid, nil
		}
	}
	return 0, &chain.StakingPoolNotFoundError{Staking: staking, LPToken: lpToken}
}

// TokenBalance reads an ERC-20 balance.
func (c *Client) TokenBalance(ctx context.Context, token, holder common.Address, block uint64) (*big.Int, error) {
	out, err := c.call(ctx, token, erc20ABI, "balanceOf", block, holder)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// TotalSupply reads a contract's totalSupply.
func (c *Client) TotalSupply(ctx context.Context, contract common.Address, block uint64) (*big.Int, error) {
	out, err := c.call(ctx, contract, erc20ABI, "totalSupply", block)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// CreditsBalance reads the rebasing-token credit balance of a holder. The
// geyser contract tracks credits through its own balanceOf, the token itself
// through creditsBalanceOf; both shapes are handled by the caller picking the
// right contract address.
func (c *Client) CreditsBalance(ctx context.Context, contract, holder common.Address, block uint64) (*big.Int, error) {
	out, err := c.call(ctx, contract, geyserABI, "balanceOf", block, holder)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// TokenCreditsBalance reads creditsBalanceOf on the rebasing token itself.
func (c *Client) TokenCreditsBalance(ctx context.Context, token, holder common.Address, block uint64) (*big.Int, error) {
	out, err := c.call(ctx, token, rebasingABI, "creditsBalanceOf", block, holder)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// CreditsPerToken reads the rebasing conversion factor.
func (c *Client) CreditsPerToken(ctx context.Context, token common.Address, block uint64) (*big.Int, error) {
	out, err := c.call(ctx, token, rebasingABI, "rebasingCreditsPerToken", block)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// PairByTokens resolves a factory's pair address. A zero pair address is a
// *chain.PairNotFoundError.
func (c *Client) PairByTokens(ctx context.Context, factory, tokenA, tokenB common.Address, block uint64) (common.Address, error) {
	out, err := c.call(ctx, factory, factoryABI, "getPair", block, tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	pair := out[0].(common.Address)
	if pair == (common.Address{}) {
		return common.Address{}, &chain.PairNotFoundError{Factory: factory, TokenA: tokenA, TokenB: tokenB}
	}
	return pair, nil
}

// PairTokens reads a pair's token0 and token1.
func (c *Client) PairTokens(ctx context.Context, pair common.Address, block uint64) (common.Address, common.Address, error) {
	token0, err := c.call(ctx, pair, pairABI, "token0", block)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token1, err := c.call(ctx, pair, pairABI, "token1", block)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return token0[0].(common.Address), token1[0].(common.Address), nil
}

// MintEvents returns a pair's Mint and Deposited events in block order. Both
// topics are queried so Uniswap-style and Mooniswap-style pools share a path.
func (c *Client) MintEvents(ctx context.Context, pair common.Address, fromBlock, toBlock uint64) ([]domain.MintEvent, error) {
	q := ethereumgo.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{pair},
		Topics:    [][]common.Hash{{topicMint, topicDeposited}},
	}
	logs, err := c.filterLogs(ctx, q, fmt.Sprintf("mint events of %s", pair.Hex()))
	if err != nil {
		return nil, err
	}
	out := make([]domain.MintEvent, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 2 {
			continue
		}
		out = append(out, domain.MintEvent{
			Pair:   lg.Address,
			Sender: topicAddress(lg.Topics[1]),
			TxHash: lg.TxHash,
			Block:  lg.BlockNumber,
		})
	}
	return out, nil
}

// TransferEvents returns a pair's LP transfer events in block order.
func (c *Client) TransferEvents(ctx context.Context, pair common.Address, fromBlock, toBlock uint64) ([]domain.TransferEvent, error) {
	q := ethereumgo.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{pair},
		Topics:    [][]common.Hash{{topicTransfer}},
	}
	logs, err := c.filterLogs(ctx, q, fmt.Sprintf("transfer events of %s", pair.Hex()))
	if err != nil {
		return nil, err
	}
	out := make([]domain.TransferEvent, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 3 {
			continue
		}
		out = append(out, domain.TransferEvent{
			Pair:   lg.Address,
			From:   topicAddress(lg.Topics[1]),
			To:     topicAddress(lg.Topics[2]),
			TxHash: lg.TxHash,
			Block:  lg.BlockNumber,
		})
	}
	return out, nil
}

// StakeEvents returns a geyser's Staked events in block order.
func (c *Client) StakeEvents(ctx context.Context, contract common.Address, fromBlock, toBlock uint64) ([]domain.StakeEvent, error) {
	q := ethereumgo.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{topicStaked}},
	}
	logs, err := c.filterLogs(ctx, q, fmt.Sprintf("stake events of %s", contract.Hex()))
	if err != nil {
		return nil, err
	}
	out := make([]domain.StakeEvent, 0, len(logs))
	for _, lg := range logs {
		if len(lg.Topics) < 2 {
			continue
		}
		out = append(out, domain.StakeEvent{
			Contract: lg.Address,
			User:     topicAddress(lg.Topics[1]),
			TxHash:   lg.TxHash,
			Block:    lg.BlockNumber,
		})
	}
	return out, nil
}

// SwapEvents returns a pair's Swap events in block order.
func (c *Client) SwapEvents(ctx context.Context, pair common.Address, fromBlock, toBlock uint64) ([]domain.SwapEvent, error) {
	q := ethereumgo.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{pair},
		Topics:    [][]common.Hash{{topicSwap}},
	}
	logs, err := c.filterLogs(ctx, q, fmt.Sprintf("swap events of %s", pair.Hex()))
	if err != nil {
		return nil, err
	}
	out := make([]domain.SwapEvent, 0, len(logs))
	for _, lg := range logs {
		ev, err := decodeSwapLog(lg)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// SwapEventsInReceipt returns every pool Swap event a transaction emitted, in
// log order, regardless of emitting pool. Logs with the Swap topic but an
// incompatible payload are discarded.
func (c *Client) SwapEventsInReceipt(ctx context.Context, txHash common.Hash) ([]domain.SwapEvent, error) {
	var receipt *types.Receipt
	err := retry.WithBackoff(ctx, c.cfg, c.logger, fmt.Sprintf("receipt %s", txHash.Hex()), func() error {
		var rcptErr error
		receipt, rcptErr = c.ec.TransactionReceipt(ctx, txHash)
		return rcptErr
	})
	if err != nil {
		return nil, err
	}
	var out []domain.SwapEvent
	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != topicSwap {
			continue
		}
		ev, err := decodeSwapLog(*lg)
		if err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func decodeSwapLog(lg types.Log) (domain.SwapEvent, error) {
	if len(lg.Topics) < 3 {
		return domain.SwapEvent{}, fmt.Errorf("swap log %s:%d: missing indexed topics", lg.TxHash.Hex(), lg.Index)
	}
	vals, err := pairABI.Unpack("Swap", lg.Data)
	if err != nil {
		return domain.SwapEvent{}, fmt.Errorf("decode swap log %s:%d: %w", lg.TxHash.Hex(), lg.Index, err)
	}
	return domain.SwapEvent{
		Pair:       lg.Address,
		Amount0In:  vals[0].(*big.Int),
		Amount1In:  vals[1].(*big.Int),
		Amount0Out: vals[2].(*big.Int),
		Amount1Out: vals[3].(*big.Int),
		To:         topicAddress(lg.Topics[2]),
		TxHash:     lg.TxHash,
		Block:      lg.BlockNumber,
		LogIndex:   lg.Index,
	}, nil
}

// Transaction returns the sender and input of a transaction.
func (c *Client) Transaction(ctx context.Context, hash common.Hash) (*domain.Transaction, error) {
	var tx *types.Transaction
	err := retry.WithBackoff(ctx, c.cfg, c.logger, fmt.Sprintf("transaction %s", hash.Hex()), func() error {
		var txErr error
		tx, _, txErr = c.ec.TransactionByHash(ctx, hash)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return nil, fmt.Errorf("recover sender of %s: %w", hash.Hex(), err)
	}
	return &domain.Transaction{Hash: hash, From: from, Input: tx.Data()}, nil
}

// TransactionReceipt returns the status and sender of a transaction.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	var receipt *types.Receipt
	err := retry.WithBackoff(ctx, c.cfg, c.logger, fmt.Sprintf("receipt %s", hash.Hex()), func() error {
		var rcptErr error
		receipt, rcptErr = c.ec.TransactionReceipt(ctx, hash)
		return rcptErr
	})
	if err != nil {
		return nil, err
	}
	tx, err := c.Transaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &domain.Receipt{TxHash: hash, From: tx.From, Status: receipt.Status}, nil
}
