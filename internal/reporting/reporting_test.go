package reporting

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/ledger"
)

func addr(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

func usd(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), wad)
}

func TestHumanAmount(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"0", "0.00"},
		{"1000000000000000000", "1.00"},
		{"1234567890000000000000", "1,234.57"},
		{"12340000000000000000", "12.34"},
		{"999999999999999999", "1.00"},       // rounds up
		{"1005000000000000000", "1.01"},      // tie rounds away from zero
		{"1234567000000000000000000", "1,234,567.00"},
		{"-1234567890000000000000", "-1,234.57"},
	}
	for _, tc := range cases {
		v, ok := new(big.Int).SetString(tc.raw, 10)
		require.True(t, ok, tc.raw)
		assert.Equal(t, tc.want, humanAmount(v), tc.raw)
	}
}

func TestHumanAmountWithBonus(t *testing.T) {
	// 1000.00 with the 25% uplift reads 1,250.00.
	assert.Equal(t, "1,250.00", humanAmountWithBonus(usd(1000)))
	assert.Equal(t, "0.00", humanAmountWithBonus(new(big.Int)))
}

func TestBalancesRoundTrip(t *testing.T) {
	recs := []domain.BalanceRecord{
		{Address: addr(1), Balance: usd(12), IsContract: false},
		{Address: addr(2), Balance: big.NewInt(1), IsContract: true},
	}

	out := RenderBalances(recs)
	assert.True(t, strings.HasPrefix(out, BalanceHeader+"\n"))

	parsed, err := ParseBalances(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, recs, parsed)
}

func TestOwnershipRoundTrip(t *testing.T) {
	recs := []domain.OwnershipRecord{{
		TokenA:       addr(0xA0),
		TokenB:       addr(0xA1),
		Holder:       addr(1),
		ShareBalance: big.NewInt(1_000_000),
		AttributedA:  usd(3),
		AttributedB:  big.NewInt(3_000_000),
	}}

	parsed, err := ParseOwnership(strings.NewReader(RenderOwnership(recs)))
	require.NoError(t, err)
	assert.Equal(t, recs, parsed)
}

func TestStakingRoundTrip(t *testing.T) {
	recs := []domain.StakingRecord{{
		Holder:                 addr(1),
		CreditBalance:          big.NewInt(123),
		DerivedBalance:         big.NewInt(61),
		AdjustedDerivedBalance: big.NewInt(60),
	}}

	parsed, err := ParseStaking(strings.NewReader(RenderStaking(recs)))
	require.NoError(t, err)
	assert.Equal(t, recs, parsed)
}

func TestSwapsRoundTrip(t *testing.T) {
	recs := []domain.SwapRecord{{
		TokenA:        addr(0xA0),
		TokenB:        addr(0xA1),
		Block:         11272254,
		InAddress:     addr(1),
		OutAddress:    addr(2),
		Direction:     domain.DirectionSell,
		TrackedChange: usd(10),
		CounterChange: big.NewInt(9_900_000),
		TokenIn:       addr(0xA0),
		TokenOut:      addr(0xA1),
		Relevance:     domain.RelevanceIn,
		TxHash:        common.BytesToHash([]byte{0xBB}),
	}}

	parsed, err := ParseSwaps(strings.NewReader(RenderSwaps(recs)))
	require.NoError(t, err)
	assert.Equal(t, recs, parsed)
}

func TestParseBalances_WrongFieldCount(t *testing.T) {
	_, err := ParseBalances(strings.NewReader(BalanceHeader + "\n0x01,1\n"))
	assert.Error(t, err)
}

func TestParseBalances_BadNumber(t *testing.T) {
	_, err := ParseBalances(strings.NewReader(BalanceHeader + "\n0x01,notanumber,false\n"))
	assert.Error(t, err)
}

func TestParseBalances_NoHeader(t *testing.T) {
	// Headerless files are accepted; the first row is data.
	parsed, err := ParseBalances(strings.NewReader("0x0000000000000000000000000000000000000001,5,false\n"))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, big.NewInt(5), parsed[0].Balance)
}

func TestRenderCompensation(t *testing.T) {
	rows := []ledger.Row{
		{
			Address:      addr(1),
			Eligible:     usd(500),
			Primary:      usd(500),
			SecondaryUsd: new(big.Int),
			Secondary:    new(big.Int),
		},
		{
			Address:      addr(2),
			Eligible:     usd(5000),
			Primary:      usd(2000),
			SecondaryUsd: usd(3000),
			Secondary:    usd(20107),
		},
	}

	out := RenderCompensation(rows)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, CompensationHeader, lines[0])

	assert.Equal(t,
		addr(1).Hex()+",500.00,500.00,0.00,0.00,500000000000000000000,500000000000000000000,0",
		lines[1])

	// Amounts with thousands grouping are quoted so the CSV stays parseable.
	assert.Equal(t,
		addr(2).Hex()+`,"5,000.00","2,000.00","25,133.75","20,107.00",5000000000000000000000,2000000000000000000000,20107000000000000000000`,
		lines[2])
}

func TestParseProceeds(t *testing.T) {
	in := "Address,Amount,Price,Proceeds\n" +
		addr(1).Hex() + ",95.2,1.05,100\n" +
		addr(1).Hex() + ",50,1.00,50.25\n" +
		addr(2).Hex() + ",1,0.98,0.980000000000000000123\n"

	got, err := ParseProceeds(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[addr(1)], 2)
	assert.Equal(t, usd(100), got[addr(1)][0])
	// Decimal proceeds scale to 18 decimals.
	assert.Equal(t, "50250000000000000000", got[addr(1)][1].String())
	// Anything past the 18th decimal truncates.
	assert.Equal(t, "980000000000000000", got[addr(2)][0].String())
}

func TestParseProceeds_BadDecimal(t *testing.T) {
	in := addr(1).Hex() + ",1,1,not-a-number\n"

	_, err := ParseProceeds(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proceeds")
}

func TestParseAddressList(t *testing.T) {
	in := "# treasury and deployer\n" +
		addr(1).Hex() + "\n" +
		"\n" +
		addr(2).Hex() + "\n"

	got, err := ParseAddressList(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, got[addr(1)])
	assert.True(t, got[addr(2)])
}
