// Package reporting renders and parses the CSV record schemas the pipeline
// binaries exchange. Field order is significant; numeric values are plain
// base-10 text at their native 1e18 (or token-native) scale.
package reporting

import (
	"fmt"
	"strings"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/ledger"
)

// Column headers, one per schema.
const (
	BalanceHeader      = "address,balance,isContract"
	OwnershipHeader    = "tokenA,tokenB,holder,combinedShareBalance,attributedReserveA,attributedReserveB"
	StakingHeader      = "holder,shareBalance,derivedBalance,adjustedDerivedBalance"
	SwapHeader         = "tokenA,tokenB,block,inAddress,outAddress,direction,trackedAssetChange,counterAssetChange,tokenIn,tokenOut,relevance,txHash"
	CompensationHeader = "address,eligibleUsdHuman,primaryCompHuman,secondaryCompWithBonusHuman,secondaryCompHuman,eligibleUsdRaw,primaryCompRaw,secondaryCompRaw"
)

// RenderBalances renders balance snapshot records as CSV.
func RenderBalances(recs []domain.BalanceRecord) string {
	var sb strings.Builder
	sb.WriteString(BalanceHeader + "\n")
	for _, r := range recs {
		sb.WriteString(fmt.Sprintf("%s,%s,%t\n", r.Address.Hex(), r.Balance, r.IsContract))
	}
	return sb.String()
}

// RenderOwnership renders pool ownership records as CSV.
func RenderOwnership(recs []domain.OwnershipRecord) string {
	var sb strings.Builder
	sb.WriteString(OwnershipHeader + "\n")
	for _, r := range recs {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s\n",
			r.TokenA.Hex(),
			r.TokenB.Hex(),
			r.Holder.Hex(),
			r.ShareBalance,
			r.AttributedA,
			r.AttributedB,
		))
	}
	return sb.String()
}

// RenderStaking renders staking snapshot records as CSV.
func RenderStaking(recs []domain.StakingRecord) string {
	var sb strings.Builder
	sb.WriteString(StakingHeader + "\n")
	for _, r := range recs {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s\n",
			r.Holder.Hex(),
			r.CreditBalance,
			r.DerivedBalance,
			r.AdjustedDerivedBalance,
		))
	}
	return sb.String()
}

// RenderSwaps renders classified swap records as CSV.
func RenderSwaps(recs []domain.SwapRecord) string {
	var sb strings.Builder
	sb.WriteString(SwapHeader + "\n")
	for _, r := range recs {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%s,%s,%s,%s,%s,%s\n",
			r.TokenA.Hex(),
			r.TokenB.Hex(),
			r.Block,
			r.InAddress.Hex(),
			r.OutAddress.Hex(),
			r.Direction,
			r.TrackedChange,
			r.CounterChange,
			r.TokenIn.Hex(),
			r.TokenOut.Hex(),
			r.Relevance,
			r.TxHash.Hex(),
		))
	}
	return sb.String()
}

// RenderCompensation renders the final compensation table as CSV. The first
// four value columns are comma-grouped two-decimal amounts for human review,
// quoted when they contain a comma; the last three are the raw 1e18-scaled
// integers. The bonus column carries the 25% interest uplift on the secondary
// grant and exists only in this human-facing view.
func RenderCompensation(rows []ledger.Row) string {
	var sb strings.Builder
	sb.WriteString(CompensationHeader + "\n")
	for _, row := range rows {
		fields := []string{
			row.Address.Hex(),
			humanAmount(row.Eligible),
			humanAmount(row.Primary),
			humanAmountWithBonus(row.Secondary),
			humanAmount(row.Secondary),
			row.Eligible.String(),
			row.Primary.String(),
			row.Secondary.String(),
		}
		for i, f := range fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			if strings.Contains(f, ",") {
				sb.WriteString(`"` + f + `"`)
			} else {
				sb.WriteString(f)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
