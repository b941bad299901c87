// Command creditspertoken prints the tracked asset's rebasing
// credits-per-token factor at a block.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/chain/ethereum"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/logging"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/registry"
)

func main() {
	block := flag.Uint64("block", 0, "Block height to query")
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

	if *block == 0 {
		fmt.Fprintln(os.Stderr, "Error: --block is required")
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

	cpt, err := client.CreditsPerToken(ctx, reg.TrackedAsset, *block)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading credits per token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("credits per token at block %d: %s\n", *block, cpt)
}
