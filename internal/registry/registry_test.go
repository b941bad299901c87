package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

func TestMainnetDefaults(t *testing.T) {
	reg := Mainnet()

	assert.Equal(t, common.HexToAddress("0x2A8e1E676Ec238d8A992307B495b45B3fEAa5e86"), reg.TrackedAsset)
	assert.Equal(t, common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), reg.CounterTokens[domain.AssetUSDT])
	assert.Equal(t, common.HexToAddress("0xc2EdaD668740f1aA35E4D8f227fB8E17dcA888Cd"), reg.MasterChef)
	assert.Len(t, reg.AddLiquiditySelectors, 3)
}

func TestCounterAssetFor(t *testing.T) {
	reg := Mainnet()

	asset, err := reg.CounterAssetFor(reg.CounterTokens[domain.AssetWETH])
	require.NoError(t, err)
	assert.Equal(t, domain.AssetWETH, asset)

	_, err = reg.CounterAssetFor(common.HexToAddress("0x00000000000000000000000000000000000000AA"))
	var unknown *UnknownCounterAssetError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000AA"), unknown.Token)
}

func TestIsAddLiquiditySelector(t *testing.T) {
	reg := Mainnet()

	assert.True(t, reg.IsAddLiquiditySelector(common.FromHex(SelectorAddLiquidity)))
	assert.True(t, reg.IsAddLiquiditySelector(common.FromHex(SelectorAddLiquidityETH)))
	assert.True(t, reg.IsAddLiquiditySelector(common.FromHex(SelectorZapInETH)))
	assert.False(t, reg.IsAddLiquiditySelector(common.FromHex("0xdeadbeef")))
	assert.False(t, reg.IsAddLiquiditySelector(nil))
	assert.False(t, reg.IsAddLiquiditySelector(common.FromHex("0xe8e337"))) // truncated
}

func writeRegistryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	path := writeRegistryFile(t, `
tracked_asset: "0x0000000000000000000000000000000000000001"
counter_tokens:
  USDT: "0x0000000000000000000000000000000000000002"
mooniswap_pool: "0x0000000000000000000000000000000000000003"
`)

	reg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0x01"), reg.TrackedAsset)
	assert.Equal(t, common.HexToAddress("0x02"), reg.CounterTokens[domain.AssetUSDT])
	assert.Equal(t, common.HexToAddress("0x03"), reg.MooniswapPool)

	// Untouched entries keep the mainnet defaults.
	assert.Equal(t, Mainnet().UniswapFactory, reg.UniswapFactory)
	assert.Equal(t, Mainnet().CounterTokens[domain.AssetUSDC], reg.CounterTokens[domain.AssetUSDC])
	assert.Len(t, reg.AddLiquiditySelectors, 3)
}

func TestLoad_SelectorsReplaceDefaults(t *testing.T) {
	path := writeRegistryFile(t, `
add_liquidity_selectors:
  - "0x01020304"
`)

	reg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, reg.AddLiquiditySelectors, 1)
	assert.True(t, reg.IsAddLiquiditySelector(common.FromHex("0x01020304")))
	assert.False(t, reg.IsAddLiquiditySelector(common.FromHex(SelectorAddLiquidity)))
}

func TestLoad_RejectsUnknownCounterAsset(t *testing.T) {
	path := writeRegistryFile(t, `
counter_tokens:
  DAI: "0x0000000000000000000000000000000000000004"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsShortSelector(t *testing.T) {
	path := writeRegistryFile(t, `
add_liquidity_selectors:
  - "0x0102"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
