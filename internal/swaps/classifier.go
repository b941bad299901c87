// Package swaps classifies raw pool swap events into per-account trade
// records: direction, net per-asset flow, and the tracked pool's relevance
// within multi-hop routing chains.
package swaps

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/credits"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

// PairTokensFunc resolves a pool's token0/token1 ordering. Used to identify
// the true originating or terminating asset of a chain that passes through
// the tracked pool.
type PairTokensFunc func(ctx context.Context, pair common.Address) (common.Address, common.Address, error)

// CreditsPerTokenFunc resolves the rebasing factor at a block.
type CreditsPerTokenFunc func(ctx context.Context, block uint64) (*big.Int, error)

// Classifier classifies swaps against one tracked pool. The tracked asset
// occupies the token0 slot of the pair.
type Classifier struct {
	pair   common.Address
	token0 common.Address // tracked asset
	token1 common.Address // immediate counter asset

	pairTokens PairTokensFunc

	// Optional renormalization of the tracked-asset amount: post-incident
	// rebasing moved the credits-per-token factor sharply, so amounts are
	// restated at a fixed reference factor.
	cptAt  CreditsPerTokenFunc
	refCPT *big.Int
}

// NewClassifier creates a classifier for the tracked pool.
func NewClassifier(pair, token0, token1 common.Address, pairTokens PairTokensFunc) *Classifier {
	return &Classifier{pair: pair, token0: token0, token1: token1, pairTokens: pairTokens}
}

// WithCreditsAdjustment renormalizes tracked-asset amounts from the factor
// at each event's block to refCPT.
func (c *Classifier) WithCreditsAdjustment(cptAt CreditsPerTokenFunc, refCPT *big.Int) *Classifier {
	c.cptAt = cptAt
	c.refCPT = refCPT
	return c
}

// Classify turns one swap event into a SwapRecord. Transactions with a
// failed receipt are excluded entirely; the second return value reports
// whether a record was produced. receiptSwaps must hold every pool swap
// event of the transaction in log order, including the tracked one.
func (c *Classifier) Classify(ctx context.Context, event domain.SwapEvent, receipt *domain.Receipt, receiptSwaps []domain.SwapEvent) (*domain.SwapRecord, bool, error) {
	if receipt.Status != 1 {
		return nil, false, nil
	}

	// The event's logged sender is usually a router contract; the trader is
	// the transaction sender.
	inAddr := receipt.From
	outAddr := event.To

	direction := domain.DirectionSell
	if event.Amount0Out.Cmp(event.Amount1Out) > 0 {
		direction = domain.DirectionBuy
	}

	// Net flows per side. Chained routing can leave nonzero inbound dust on
	// the outgoing side, so the out side nets amount-out minus amount-in.
	var trackedChange, counterChange *big.Int
	if direction == domain.DirectionBuy {
		trackedChange = new(big.Int).Sub(event.Amount0Out, event.Amount0In)
		counterChange = new(big.Int).Set(event.Amount1In)
	} else {
		trackedChange = new(big.Int).Set(event.Amount0In)
		counterChange = new(big.Int).Sub(event.Amount1Out, event.Amount1In)
	}

	tokenIn := c.token0
	tokenOut := c.token1
	if direction == domain.DirectionBuy {
		tokenIn, tokenOut = c.token1, c.token0
	}

	relevance := domain.RelevanceUnknown

	if len(receiptSwaps) > 0 {
		first := receiptSwaps[0]
		last := receiptSwaps[len(receiptSwaps)-1]
		firstIsPair := first.Pair == c.pair
		lastIsPair := last.Pair == c.pair
		fromTracked := firstIsPair && direction == domain.DirectionSell
		toTracked := lastIsPair && direction == domain.DirectionBuy

		switch {
		case fromTracked && toTracked:
			relevance = domain.RelevanceInOut
		case fromTracked:
			relevance = domain.RelevanceIn
		case firstIsPair && direction == domain.DirectionBuy:
			relevance = domain.RelevanceThrough
		case toTracked:
			relevance = domain.RelevanceOut
		case lastIsPair && direction == domain.DirectionSell:
			relevance = domain.RelevanceThrough
		default:
			relevance = domain.RelevanceThrough
		}

		// When the chain does not start or end at the tracked pool, the true
		// entry/exit asset comes from the terminal hop's token ordering, not
		// from the tracked pool's immediate counter asset.
		if !fromTracked && !toTracked {
			if !firstIsPair {
				t0, t1, err := c.pairTokens(ctx, first.Pair)
				if err != nil {
					return nil, false, fmt.Errorf("resolve first hop %s: %w", first.Pair.Hex(), err)
				}
				if first.Amount0In.Cmp(first.Amount1In) > 0 {
					tokenIn = t0
				} else {
					tokenIn = t1
				}
			}
			if !lastIsPair {
				t0, t1, err := c.pairTokens(ctx, last.Pair)
				if err != nil {
					return nil, false, fmt.Errorf("resolve last hop %s: %w", last.Pair.Hex(), err)
				}
				if last.Amount0Out.Cmp(last.Amount1Out) > 0 {
					tokenOut = t0
				} else {
					tokenOut = t1
				}
			}
		}

		// The funds' effective recipient is wherever the final hop delivered.
		outAddr = last.To
	}

	if c.cptAt != nil {
		blockCPT, err := c.cptAt(ctx, event.Block)
		if err != nil {
			return nil, false, fmt.Errorf("credits per token at block %d: %w", event.Block, err)
		}
		trackedChange = credits.Adjust(trackedChange, blockCPT, c.refCPT)
	}

	rec := &domain.SwapRecord{
		TokenA:        c.token0,
		TokenB:        c.token1,
		Block:         event.Block,
		InAddress:     inAddr,
		OutAddress:    outAddr,
		Direction:     direction,
		TrackedChange: trackedChange,
		CounterChange: counterChange,
		TokenIn:       tokenIn,
		TokenOut:      tokenOut,
		Relevance:     relevance,
		TxHash:        event.TxHash,
	}
	return rec, true, nil
}
