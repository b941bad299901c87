// Command stakers reconciles the SnowSwap geyser's per-staker positions at a
// block and prints the staking CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/chain/ethereum"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/discovery"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/gather"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/logging"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/registry"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/reporting"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/staking"
)

func main() {
	block := flag.Uint64("block", 0, "Block height to snapshot")
	registryPath := flag.String("registry", "", "YAML registry override file")
	endpoint := flag.String("endpoint", "", "JSON-RPC endpoint (defaults to ETH_RPC_URL)")
	workers := flag.Int("workers", gather.DefaultWorkers, "Concurrent balance lookups")
	refCPT := flag.String("ref-cpt", "", "Reference credits-per-token factor; when set, tracked amounts are restated at it")
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

	geyser := reg.SnowswapGeyser

	supply, err := client.TotalSupply(ctx, geyser, *block)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading geyser supply: %v\n", err)
		os.Exit(1)
	}
	knownBalance, err := client.TokenBalance(ctx, reg.TrackedAsset, geyser, *block)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading geyser balance: %v\n", err)
		os.Exit(1)
	}
	knownCredits, err := client.TokenCreditsBalance(ctx, reg.TrackedAsset, geyser, *block)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading geyser credit balance: %v\n", err)
		os.Exit(1)
	}
	cpt, err := client.CreditsPerToken(ctx, reg.TrackedAsset, *block)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading credits per token: %v\n", err)
		os.Exit(1)
	}

	snap := &staking.GeyserSnapshot{
		Contract:           geyser,
		TotalSupply:        supply,
		KnownBalance:       knownBalance,
		KnownCreditBalance: knownCredits,
		CreditsPerToken:    cpt,
		Block:              *block,
	}
	if *refCPT != "" {
		ref, ok := new(big.Int).SetString(*refCPT, 10)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: --ref-cpt %q is not a base-10 integer\n", *refCPT)
			os.Exit(1)
		}
		snap = snap.Restate(ref)
	}

	stakes, err := client.StakeEvents(ctx, geyser, 0, *block)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stake events: %v\n", err)
		os.Exit(1)
	}
	set := discovery.NewParticipantSet()
	discovery.NewDiscoverer(client, reg).FromStakes(stakes, set)

	stakers := set.Addresses()
	creditBalances, err := gather.New(client, logger, gather.Options{Workers: *workers}).
		StakerCredits(ctx, geyser, stakers, *block)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error gathering staker credits: %v\n", err)
		os.Exit(1)
	}

	balances := make([]staking.StakerBalance, len(stakers))
	for i, addr := range stakers {
		balances[i] = staking.StakerBalance{Holder: addr, Credits: creditBalances[i]}
	}

	records, report, err := staking.Attribute(snap, balances)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("geyser reconciled",
		zap.String("geyser", geyser.Hex()),
		zap.Uint64("block", *block),
		zap.Int("stakers", report.Stakers),
		zap.String("creditTotal", report.CreditTotal.String()),
		zap.String("adjustedTotal", report.AdjustedTotal.String()),
	)

	fmt.Print(reporting.RenderStaking(records))
}
