// Package gather fetches per-holder balances from the chain with a bounded
// worker pool. Output order matches input order regardless of which worker
// finishes first.
package gather

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/attribution"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/chain"
)

// DefaultWorkers bounds concurrent RPC requests per gather run.
const DefaultWorkers = 8

// Options configures a gather run.
type Options struct {
	// Workers caps concurrent balance lookups. Zero means DefaultWorkers.
	Workers int

	// Accumulator, when nonzero, is the staking contract whose per-user
	// deposits are folded into each holder's combined balance.
	Accumulator common.Address
	PoolID      uint64
}

// Gatherer resolves holder balances against a chain source.
type Gatherer struct {
	src    chain.Source
	logger *zap.Logger
	opts   Options
}

// New creates a gatherer.
func New(src chain.Source, logger *zap.Logger, opts Options) *Gatherer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Gatherer{src: src, logger: logger, opts: opts}
}

// HolderBalances fetches the pair-token balance of every holder at the given
// block, plus the holder's staked deposit when an accumulator is configured.
// The first lookup error aborts the run.
func (g *Gatherer) HolderBalances(ctx context.Context, pair common.Address, holders []common.Address, block uint64) ([]attribution.HolderBalance, error) {
	if len(holders) == 0 {
		return nil, nil
	}

	out := make([]attribution.HolderBalance, len(holders))
	errs := make([]error, len(holders))

	pool := pond.NewPool(g.opts.Workers, pond.WithQueueSize(len(holders)))
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	useStaking := g.opts.Accumulator != (common.Address{})

	for i, holder := range holders {
		i, holder := i, holder
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			direct, err := g.src.HolderBalance(groupCtx, pair, holder, block)
			if err != nil {
				errs[i] = fmt.Errorf("balance of %s: %w", holder.Hex(), err)
				return
			}
			staked := new(big.Int)
			if useStaking {
				staked, err = g.src.StakingUserBalance(groupCtx, g.opts.Accumulator, g.opts.PoolID, holder, block)
				if err != nil {
					errs[i] = fmt.Errorf("staked balance of %s: %w", holder.Hex(), err)
					return
				}
			}
			out[i] = attribution.HolderBalance{Holder: holder, Direct: direct, Staked: staked}
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		g.logger.Warn("parallel balance fetch encountered error",
			zap.String("pair", pair.Hex()),
			zap.Uint64("block", block),
			zap.Error(err),
		)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	g.logger.Info("gathered holder balances",
		zap.String("pair", pair.Hex()),
		zap.Uint64("block", block),
		zap.Int("holders", len(holders)),
	)
	return out, nil
}

// StakerCredits fetches the credit balance of every staker at the given block.
func (g *Gatherer) StakerCredits(ctx context.Context, geyser common.Address, stakers []common.Address, block uint64) ([]*big.Int, error) {
	if len(stakers) == 0 {
		return nil, nil
	}

	out := make([]*big.Int, len(stakers))
	errs := make([]error, len(stakers))

	pool := pond.NewPool(g.opts.Workers, pond.WithQueueSize(len(stakers)))
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for i, staker := range stakers {
		i, staker := i, staker
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			credits, err := g.src.CreditsBalance(groupCtx, geyser, staker, block)
			if err != nil {
				errs[i] = fmt.Errorf("credits of %s: %w", staker.Hex(), err)
				return
			}
			out[i] = credits
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		g.logger.Warn("parallel credits fetch encountered error",
			zap.String("geyser", geyser.Hex()),
			zap.Uint64("block", block),
			zap.Error(err),
		)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
