// Command lpsnapshot extracts the proportional ownership of one pool at a
// block and prints the ownership CSV. Supported pool variants are uniswap,
// sushiswap (whose MasterChef custody is folded back onto stakers) and
// mooniswap (no genesis burn, reserves are raw token balances).
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/attribution"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/chain/ethereum"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/discovery"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/gather"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/logging"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/registry"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/reporting"
)

func main() {
	variant := flag.String("variant", "uniswap", "Pool variant: uniswap, sushiswap or mooniswap")
	counter := flag.String("counter", "USDT", "Counter asset of the pool: USDT, USDC or WETH")
	block := flag.Uint64("block", 0, "Block height to snapshot")
	refCPT := flag.String("ref-cpt", "", "Reference credits-per-token factor; when set, tracked amounts are restated at it")
	registryPath := flag.String("registry", "", "YAML registry override file")
	endpoint := flag.String("endpoint", "", "JSON-RPC endpoint (defaults to ETH_RPC_URL)")
	workers := flag.Int("workers", gather.DefaultWorkers, "Concurrent balance lookups")
	flag.Parse()

	godotenv.Load()

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *block == 0 {
		fmt.Fprintln(os.Stderr, "Error: --block is required")
		os.Exit(1)
	}

	reg, err := loadRegistry(*registryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading registry: %v\n", err)
		os.Exit(1)
	}

	asset := domain.CounterAsset(*counter)
	counterToken, ok := reg.CounterTokens[asset]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported counter asset %q\n", *counter)
		os.Exit(1)
	}

	url := *endpoint
	if url == "" {
		url = os.Getenv("ETH_RPC_URL")
	}
	if url == "" {
		fmt.Fprintln(os.Stderr, "Error: no JSON-RPC endpoint; set --endpoint or ETH_RPC_URL")
		os.Exit(1)
	}

	ctx := context.Background()

	client, err := ethereum.Dial(ctx, url, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to endpoint: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	var adjust *attribution.CreditsAdjustment
	if *refCPT != "" {
		ref, ok := new(big.Int).SetString(*refCPT, 10)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: --ref-cpt %q is not a base-10 integer\n", *refCPT)
			os.Exit(1)
		}
		fromCPT, err := client.CreditsPerToken(ctx, reg.TrackedAsset, *block)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading credits per token: %v\n", err)
			os.Exit(1)
		}
		adjust = &attribution.CreditsAdjustment{FromCPT: fromCPT, ToCPT: ref}
	}

	records, err := snapshotPool(ctx, client, reg, logger, *variant, counterToken, *block, *workers, adjust)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(reporting.RenderOwnership(records))
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Mainnet(), nil
	}
	return registry.Load(path)
}

func snapshotPool(
	ctx context.Context,
	client *ethereum.Client,
	reg *registry.Registry,
	logger *zap.Logger,
	variant string,
	counterToken common.Address,
	block uint64,
	workers int,
	adjust *attribution.CreditsAdjustment,
) ([]domain.OwnershipRecord, error) {
	disc := discovery.NewDiscoverer(client, reg)
	set := discovery.NewParticipantSet()
	gopts := gather.Options{Workers: workers}

	var (
		snap *domain.PoolSnapshot
		opts attribution.Options
	)

	switch variant {
	case "uniswap", "sushiswap":
		factory := reg.UniswapFactory
		if variant == "sushiswap" {
			factory = reg.SushiswapFactory
		}
		pair, err := client.PairByTokens(ctx, factory, reg.TrackedAsset, counterToken, block)
		if err != nil {
			return nil, err
		}
		snap, err = client.PoolSnapshot(ctx, pair, block)
		if err != nil {
			return nil, err
		}

		mints, err := client.MintEvents(ctx, pair, 0, block)
		if err != nil {
			return nil, err
		}
		if err := disc.FromMints(ctx, mints, set); err != nil {
			return nil, err
		}
		transfers, err := client.TransferEvents(ctx, pair, 0, block)
		if err != nil {
			return nil, err
		}
		disc.FromTransfers(transfers, set)

		opts = attribution.Options{
			BurnedLiquidity: big.NewInt(attribution.MinimumLiquidity),
			AdjustTracked:   adjust,
			TrackedIsTokenB: snap.TokenA != reg.TrackedAsset,
		}

		if variant == "sushiswap" {
			pid, err := client.StakingPoolID(ctx, reg.MasterChef, pair, block)
			if err != nil {
				return nil, err
			}
			gopts.Accumulator = reg.MasterChef
			gopts.PoolID = pid
			chefBalance, err := client.HolderBalance(ctx, pair, reg.MasterChef, block)
			if err != nil {
				return nil, err
			}
			opts.AccumulatorBalance = chefBalance
			logger.Info("resolved staking accumulator",
				zap.Uint64("poolId", pid),
				zap.String("custody", chefBalance.String()))
		}

	case "mooniswap":
		pool := reg.MooniswapPool
		if pool == (common.Address{}) {
			return nil, fmt.Errorf("registry has no mooniswap pool configured")
		}
		var err error
		snap, err = client.MooniswapSnapshot(ctx, pool, block)
		if err != nil {
			return nil, err
		}

		deposits, err := client.MintEvents(ctx, pool, 0, block)
		if err != nil {
			return nil, err
		}
		disc.FromDepositors(deposits, set)
		transfers, err := client.TransferEvents(ctx, pool, 0, block)
		if err != nil {
			return nil, err
		}
		disc.FromTransfers(transfers, set)

		// No genesis burn and no accumulator on this variant.
		opts = attribution.Options{
			AdjustTracked:   adjust,
			TrackedIsTokenB: snap.TokenA != reg.TrackedAsset,
		}

	default:
		return nil, fmt.Errorf("unknown pool variant %q", variant)
	}

	holders := set.Addresses()
	if gopts.Accumulator != (common.Address{}) {
		// The accumulator holds shares on behalf of its stakers; it is not a
		// participant itself.
		filtered := holders[:0]
		for _, h := range holders {
			if h != gopts.Accumulator {
				filtered = append(filtered, h)
			}
		}
		holders = filtered
	}

	balances, err := gather.New(client, logger, gopts).HolderBalances(ctx, snap.Pair, holders, block)
	if err != nil {
		return nil, err
	}

	records, report, err := attribution.Attribute(snap, balances, opts)
	if err != nil {
		return nil, err
	}

	logger.Info("attribution reconciled",
		zap.String("pair", snap.Pair.Hex()),
		zap.Uint64("block", block),
		zap.Int("holders", report.Holders),
		zap.Int("nonzeroHolders", report.NonzeroHolders),
		zap.String("attributableSupply", report.AttributableSupply.String()),
	)
	return records, nil
}
