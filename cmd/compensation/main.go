// Command compensation aggregates every produced snapshot into the final
// per-account compensation table. It reads the CSVs emitted by the other
// binaries from a data directory using their conventional names, applies
// optional off-platform proceeds and a blacklist, and prints the table.
// A finished run can be archived to Postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/ledger"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/logging"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/registry"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/reporting"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/storage/postgres"
)

func main() {
	dataDir := flag.String("data-dir", "out", "Directory holding the produced CSVs")
	start := flag.Uint64("start", 0, "Pre-incident snapshot block")
	end := flag.Uint64("end", 0, "Post-incident snapshot block")
	proceedsPath := flag.String("proceeds", "", "Off-platform proceeds CSV (Address,Amount,Price,Proceeds)")
	blacklistPath := flag.String("blacklist", "", "Address blacklist file, one address per line")
	account := flag.String("account", "", "Dump one account's ledger state instead of the table")
	postgresDSN := flag.String("postgres-dsn", "", "Archive the finished run to this Postgres instance")
	registryPath := flag.String("registry", "", "YAML registry override file")
	flag.Parse()

	godotenv.Load()

	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *start == 0 || *end == 0 {
		fmt.Fprintln(os.Stderr, "Error: --start and --end are required")
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

	led := ledger.New(ledger.DefaultParameters(), reg.CounterAssetFor)

	if err := loadAll(led, logger, *dataDir, *start, *end, *proceedsPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	blacklist := map[common.Address]bool{}
	if *blacklistPath != "" {
		f, err := os.Open(*blacklistPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening blacklist: %v\n", err)
			os.Exit(1)
		}
		blacklist, err = reporting.ParseAddressList(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing blacklist: %v\n", err)
			os.Exit(1)
		}
	}

	if *account != "" {
		dumpAccount(led, common.HexToAddress(*account))
		return
	}

	rows, err := led.Rows(blacklist)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(reporting.RenderCompensation(rows))

	if *postgresDSN != "" {
		if err := archive(context.Background(), *postgresDSN, *start, *end, rows); err != nil {
			fmt.Fprintf(os.Stderr, "Error archiving run: %v\n", err)
			os.Exit(1)
		}
		logger.Info("archived run",
			zap.Uint64("start", *start),
			zap.Uint64("end", *end),
			zap.Int("rows", len(rows)))
	}
}

// loadAll feeds every produced CSV into the ledger. Balance snapshots are
// required; pool, staking and swap files are skipped with a warning when a
// variant was not extracted.
func loadAll(led *ledger.Ledger, logger *zap.Logger, dir string, start, end uint64, proceedsPath string) error {
	for _, phase := range []struct {
		tag   ledger.Phase
		block uint64
	}{
		{ledger.PhaseStart, start},
		{ledger.PhaseEnd, end},
	} {
		balances, err := readBalances(filepath.Join(dir, fmt.Sprintf("balances_%d.csv", phase.block)))
		if err != nil {
			return err
		}
		led.ApplyBalances(phase.tag, balances)

		for _, variant := range []string{"uniswap", "sushiswap", "mooniswap"} {
			path := filepath.Join(dir, fmt.Sprintf("%s_lp_%d.csv", variant, phase.block))
			recs, ok, err := readOwnership(path)
			if err != nil {
				return err
			}
			if !ok {
				logger.Warn("skipping missing pool snapshot", zap.String("path", path))
				continue
			}
			if err := led.ApplyOwnership(phase.tag, recs); err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
		}

		path := filepath.Join(dir, fmt.Sprintf("snowswap_stakers_%d.csv", phase.block))
		stakes, ok, err := readStaking(path)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("skipping missing staking snapshot", zap.String("path", path))
		} else {
			led.ApplyStaking(phase.tag, stakes)
		}
	}

	for _, variant := range []string{"uniswap", "sushiswap", "mooniswap"} {
		path := filepath.Join(dir, fmt.Sprintf("%s_swaps_%d-%d.csv", variant, start, end))
		recs, ok, err := readSwaps(path)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("skipping missing swap file", zap.String("path", path))
			continue
		}
		if err := led.ApplySwaps(recs); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	if proceedsPath != "" {
		f, err := os.Open(proceedsPath)
		if err != nil {
			return fmt.Errorf("open proceeds: %w", err)
		}
		defer f.Close()
		proceeds, err := reporting.ParseProceeds(f)
		if err != nil {
			return fmt.Errorf("parse proceeds: %w", err)
		}
		for addr, amounts := range proceeds {
			for _, usd := range amounts {
				led.AddOffPlatformProceeds(addr, usd)
			}
		}
	}
	return nil
}

func readBalances(path string) ([]domain.BalanceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	recs, err := reporting.ParseBalances(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return recs, nil
}

func readOwnership(path string) ([]domain.OwnershipRecord, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	recs, err := reporting.ParseOwnership(f)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return recs, true, nil
}

func readStaking(path string) ([]domain.StakingRecord, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	recs, err := reporting.ParseStaking(f)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return recs, true, nil
}

func readSwaps(path string) ([]domain.SwapRecord, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	recs, err := reporting.ParseSwaps(f)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return recs, true, nil
}

// dumpAccount prints one account's ledger state for forensic review.
func dumpAccount(led *ledger.Ledger, addr common.Address) {
	acct := led.Account(addr)
	if acct == nil {
		fmt.Fprintf(os.Stderr, "Error: %s appears in no data source\n", addr.Hex())
		os.Exit(1)
	}

	fmt.Printf("base balance start: %s\n", acct.BaseBalanceStart())
	fmt.Printf("pooled tracked start: %s\n", acct.TrackedPooledStart())
	fmt.Printf("eligible balance: %s\n", acct.EligibleBalanceUsd())

	comp, err := acct.Compensation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("primary compensation: %s\n", comp.Primary)
	fmt.Printf("secondary compensation: %s\n", comp.Secondary)

	for _, asset := range domain.CounterAssets {
		fmt.Printf("%s swap in: %s out: %s\n", asset, acct.SwapIn(asset), acct.SwapOut(asset))
	}
}

// archive persists a finished run, creating the schema when missing.
func archive(ctx context.Context, dsn string, start, end uint64, rows []ledger.Row) error {
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}
	_, err = postgres.NewRunStore(pool).Insert(ctx, start, end, rows)
	return err
}
