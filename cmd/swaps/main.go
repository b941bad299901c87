// Command swaps classifies every swap against one tracked pool over a block
// range and prints the swap CSV.
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

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/chain/ethereum"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/logging"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/registry"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/reporting"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/swaps"
)

func main() {
	factory := flag.String("factory", "uniswap", "Factory to resolve the pool on: uniswap or sushiswap")
	counter := flag.String("counter", "USDT", "Counter asset of the pool: USDT, USDC or WETH")
	fromBlock := flag.Uint64("from", 0, "First block of the range")
	toBlock := flag.Uint64("to", 0, "Last block of the range")
	refCPT := flag.String("ref-cpt", "", "Reference credits-per-token factor; when set, tracked amounts are restated at it")
	registryPath := flag.String("registry", "", "YAML registry override file")
	endpoint := flag.String("endpoint", "", "JSON-RPC endpoint (defaults to ETH_RPC_URL)")
	flag.Parse()

	godotenv.Load()

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *fromBlock == 0 || *toBlock == 0 || *toBlock < *fromBlock {
		fmt.Fprintln(os.Stderr, "Error: --from and --to must define a valid block range")
		os.Exit(1)
	}

	reg := registry.Mainnet()
	if *registryPath != "" {
		reg, err = registry.Load(*registryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading registry: %v\n", err)
			os.Exit(1)
		}
	}

	asset := domain.CounterAsset(*counter)
	counterToken, ok := reg.CounterTokens[asset]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported counter asset %q\n", *counter)
		os.Exit(1)
	}

	factoryAddr := reg.UniswapFactory
	switch *factory {
	case "uniswap":
	case "sushiswap":
		factoryAddr = reg.SushiswapFactory
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown factory %q\n", *factory)
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

	pair, err := client.PairByTokens(ctx, factoryAddr, reg.TrackedAsset, counterToken, *toBlock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	token0, token1, err := client.PairTokens(ctx, pair, *toBlock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading pair tokens: %v\n", err)
		os.Exit(1)
	}
	// Classification assumes the tracked asset sorted into the token0 slot,
	// which holds for every affected pool.
	if token0 != reg.TrackedAsset || token1 != counterToken {
		fmt.Fprintf(os.Stderr, "Error: pair %s token ordering does not match the tracked pool\n", pair.Hex())
		os.Exit(1)
	}

	pairTokens := func(ctx context.Context, p common.Address) (common.Address, common.Address, error) {
		return client.PairTokens(ctx, p, *toBlock)
	}
	classifier := swaps.NewClassifier(pair, token0, token1, pairTokens)
	if *refCPT != "" {
		ref, ok := new(big.Int).SetString(*refCPT, 10)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: --ref-cpt %q is not a base-10 integer\n", *refCPT)
			os.Exit(1)
		}
		classifier = classifier.WithCreditsAdjustment(func(ctx context.Context, block uint64) (*big.Int, error) {
			return client.CreditsPerToken(ctx, reg.TrackedAsset, block)
		}, ref)
	}

	events, err := client.SwapEvents(ctx, pair, *fromBlock, *toBlock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading swap events: %v\n", err)
		os.Exit(1)
	}

	var (
		records []domain.SwapRecord
		skipped int
	)
	for _, ev := range events {
		receipt, err := client.TransactionReceipt(ctx, ev.TxHash)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading receipt %s: %v\n", ev.TxHash.Hex(), err)
			os.Exit(1)
		}
		receiptSwaps, err := client.SwapEventsInReceipt(ctx, ev.TxHash)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading receipt swaps %s: %v\n", ev.TxHash.Hex(), err)
			os.Exit(1)
		}
		rec, ok, err := classifier.Classify(ctx, ev, receipt, receiptSwaps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error classifying %s: %v\n", ev.TxHash.Hex(), err)
			os.Exit(1)
		}
		if !ok {
			skipped++
			continue
		}
		records = append(records, *rec)
	}

	logger.Info("classified swaps",
		zap.String("pair", pair.Hex()),
		zap.Uint64("from", *fromBlock),
		zap.Uint64("to", *toBlock),
		zap.Int("records", len(records)),
		zap.Int("skippedFailed", skipped),
	)

	fmt.Print(reporting.RenderSwaps(records))
}
