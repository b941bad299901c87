package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

// readRecords reads all CSV rows with the expected field count, skipping a
// header row when present.
func readRecords(r io.Reader, fields int, header string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && strings.Join(rows[0], ",") == header {
		rows = rows[1:]
	}
	return rows, nil
}

func parseBig(field, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("parse %s: %q is not a base-10 integer", field, value)
	}
	return v, nil
}

// ParseBalances parses a balance snapshot CSV.
func ParseBalances(r io.Reader) ([]domain.BalanceRecord, error) {
	rows, err := readRecords(r, 3, BalanceHeader)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BalanceRecord, 0, len(rows))
	for i, row := range rows {
		balance, err := parseBig("balance", row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		isContract, err := strconv.ParseBool(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parse isContract: %w", i+1, err)
		}
		out = append(out, domain.BalanceRecord{
			Address:    common.HexToAddress(row[0]),
			Balance:    balance,
			IsContract: isContract,
		})
	}
	return out, nil
}

// ParseOwnership parses a pool ownership CSV.
func ParseOwnership(r io.Reader) ([]domain.OwnershipRecord, error) {
	rows, err := readRecords(r, 6, OwnershipHeader)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OwnershipRecord, 0, len(rows))
	for i, row := range rows {
		share, err := parseBig("combinedShareBalance", row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		attrA, err := parseBig("attributedReserveA", row[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		attrB, err := parseBig("attributedReserveB", row[5])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, domain.OwnershipRecord{
			TokenA:       common.HexToAddress(row[0]),
			TokenB:       common.HexToAddress(row[1]),
			Holder:       common.HexToAddress(row[2]),
			ShareBalance: share,
			AttributedA:  attrA,
			AttributedB:  attrB,
		})
	}
	return out, nil
}

// ParseStaking parses a staking snapshot CSV.
func ParseStaking(r io.Reader) ([]domain.StakingRecord, error) {
	rows, err := readRecords(r, 4, StakingHeader)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StakingRecord, 0, len(rows))
	for i, row := range rows {
		credits, err := parseBig("shareBalance", row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		derived, err := parseBig("derivedBalance", row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		adjusted, err := parseBig("adjustedDerivedBalance", row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, domain.StakingRecord{
			Holder:                 common.HexToAddress(row[0]),
			CreditBalance:          credits,
			DerivedBalance:         derived,
			AdjustedDerivedBalance: adjusted,
		})
	}
	return out, nil
}

// ParseSwaps parses a classified swap CSV.
func ParseSwaps(r io.Reader) ([]domain.SwapRecord, error) {
	rows, err := readRecords(r, 12, SwapHeader)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SwapRecord, 0, len(rows))
	for i, row := range rows {
		block, err := strconv.ParseUint(strings.TrimSpace(row[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse block: %w", i+1, err)
		}
		tracked, err := parseBig("trackedAssetChange", row[6])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		counter, err := parseBig("counterAssetChange", row[7])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, domain.SwapRecord{
			TokenA:        common.HexToAddress(row[0]),
			TokenB:        common.HexToAddress(row[1]),
			Block:         block,
			InAddress:     common.HexToAddress(row[3]),
			OutAddress:    common.HexToAddress(row[4]),
			Direction:     domain.Direction(strings.TrimSpace(row[5])),
			TrackedChange: tracked,
			CounterChange: counter,
			TokenIn:       common.HexToAddress(row[8]),
			TokenOut:      common.HexToAddress(row[9]),
			Relevance:     domain.Relevance(strings.TrimSpace(row[10])),
			TxHash:        common.HexToHash(row[11]),
		})
	}
	return out, nil
}

// parseUSD parses a decimal USD value and scales it to 18 decimals,
// truncating toward zero.
func parseUSD(field, value string) (*big.Int, error) {
	v, ok := new(big.Rat).SetString(strings.TrimSpace(value))
	if !ok {
		return nil, fmt.Errorf("parse %s: %q is not a decimal number", field, value)
	}
	v.Mul(v, new(big.Rat).SetInt(wad))
	return new(big.Int).Quo(v.Num(), v.Denom()), nil
}

// ParseProceeds parses an off-platform proceeds CSV of
// Address,Amount,Price,Proceeds rows. Only the address and the decimal USD
// proceeds are carried; the amount and unit price columns are informational.
func ParseProceeds(r io.Reader) (map[common.Address][]*big.Int, error) {
	rows, err := readRecords(r, 4, "Address,Amount,Price,Proceeds")
	if err != nil {
		return nil, err
	}
	out := make(map[common.Address][]*big.Int, len(rows))
	for i, row := range rows {
		usd, err := parseUSD("proceeds", row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		addr := common.HexToAddress(row[0])
		out[addr] = append(out[addr], usd)
	}
	return out, nil
}

// ParseAddressList parses a one-column address file, for blacklists.
func ParseAddressList(r io.Reader) (map[common.Address]bool, error) {
	rows, err := readRecords(r, 1, "address")
	if err != nil {
		return nil, err
	}
	out := make(map[common.Address]bool, len(rows))
	for _, row := range rows {
		entry := strings.TrimSpace(row[0])
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		out[common.HexToAddress(entry)] = true
	}
	return out, nil
}
