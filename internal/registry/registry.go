// Package registry externalizes the network-specific contract addresses and
// call selectors the reconciliation depends on, so the core stays
// network-agnostic. Defaults match Ethereum mainnet; a YAML file can override
// any entry.
package registry

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/domain"
)

// UnknownCounterAssetError is returned when a pool or swap references a
// counter asset outside the configured set. The reconciliation refuses to
// guess an asset's identity.
type UnknownCounterAssetError struct {
	Token common.Address
}

func (e *UnknownCounterAssetError) Error() string {
	return fmt.Sprintf("token %s is part of an unknown token pair", e.Token.Hex())
}

// Registry holds the contract addresses and add-liquidity call selectors for
// one network.
type Registry struct {
	TrackedAsset     common.Address            // OUSD
	CounterTokens    map[domain.CounterAsset]common.Address
	UniswapFactory   common.Address
	SushiswapFactory common.Address
	MasterChef       common.Address // SushiSwap staking accumulator
	SnowswapGeyser   common.Address
	MooniswapPool    common.Address

	// Call selectors recognized as liquidity-add entry points. A Mint event
	// whose originating transaction matches none of these is a fatal
	// condition, never a guess.
	AddLiquiditySelectors [][]byte
}

// fileConfig is the YAML shape of a registry override file.
type fileConfig struct {
	TrackedAsset          string            `yaml:"tracked_asset"`
	CounterTokens         map[string]string `yaml:"counter_tokens"`
	UniswapFactory        string            `yaml:"uniswap_factory"`
	SushiswapFactory      string            `yaml:"sushiswap_factory"`
	MasterChef            string            `yaml:"master_chef"`
	SnowswapGeyser        string            `yaml:"snowswap_geyser"`
	MooniswapPool         string            `yaml:"mooniswap_pool"`
	AddLiquiditySelectors []string          `yaml:"add_liquidity_selectors"`
}

// Mainnet contract addresses of the affected deployment.
const (
	mainnetOUSD             = "0x2A8e1E676Ec238d8A992307B495b45B3fEAa5e86"
	mainnetUSDT             = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	mainnetUSDC             = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	mainnetWETH             = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	mainnetUniswapFactory   = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
	mainnetSushiswapFactory = "0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"
	mainnetMasterChef       = "0xc2EdaD668740f1aA35E4D8f227fB8E17dcA888Cd"
	mainnetSnowswapGeyser   = "0x7c2Fa8c30DB09e8B3c147Ac67947829447BF07bD"
)

// Liquidity-add selectors observed on the affected pools. ZapInETH shows up
// because Zapper.fi mints directly on SushiSwap pairs.
const (
	SelectorAddLiquidity    = "0xe8e33700"
	SelectorAddLiquidityETH = "0xf305d719"
	SelectorZapInETH        = "0x1d572320"
)

// Mainnet returns the default registry for Ethereum mainnet.
func Mainnet() *Registry {
	return &Registry{
		TrackedAsset: common.HexToAddress(mainnetOUSD),
		CounterTokens: map[domain.CounterAsset]common.Address{
			domain.AssetUSDT: common.HexToAddress(mainnetUSDT),
			domain.AssetUSDC: common.HexToAddress(mainnetUSDC),
			domain.AssetWETH: common.HexToAddress(mainnetWETH),
		},
		UniswapFactory:   common.HexToAddress(mainnetUniswapFactory),
		SushiswapFactory: common.HexToAddress(mainnetSushiswapFactory),
		MasterChef:       common.HexToAddress(mainnetMasterChef),
		SnowswapGeyser:   common.HexToAddress(mainnetSnowswapGeyser),
		AddLiquiditySelectors: [][]byte{
			common.FromHex(SelectorAddLiquidity),
			common.FromHex(SelectorAddLiquidityETH),
			common.FromHex(SelectorZapInETH),
		},
	}
}

// Load reads a YAML registry file and applies it over the mainnet defaults.
// Empty fields keep their defaults.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}

	reg := Mainnet()
	if cfg.TrackedAsset != "" {
		reg.TrackedAsset = common.HexToAddress(cfg.TrackedAsset)
	}
	if cfg.UniswapFactory != "" {
		reg.UniswapFactory = common.HexToAddress(cfg.UniswapFactory)
	}
	if cfg.SushiswapFactory != "" {
		reg.SushiswapFactory = common.HexToAddress(cfg.SushiswapFactory)
	}
	if cfg.MasterChef != "" {
		reg.MasterChef = common.HexToAddress(cfg.MasterChef)
	}
	if cfg.SnowswapGeyser != "" {
		reg.SnowswapGeyser = common.HexToAddress(cfg.SnowswapGeyser)
	}
	if cfg.MooniswapPool != "" {
		reg.MooniswapPool = common.HexToAddress(cfg.MooniswapPool)
	}
	for symbol, addr := range cfg.CounterTokens {
		asset := domain.CounterAsset(symbol)
		switch asset {
		case domain.AssetUSDT, domain.AssetUSDC, domain.AssetWETH:
			reg.CounterTokens[asset] = common.HexToAddress(addr)
		default:
			return nil, fmt.Errorf("registry file names unsupported counter asset %q", symbol)
		}
	}
	if len(cfg.AddLiquiditySelectors) > 0 {
		reg.AddLiquiditySelectors = nil
		for _, sel := range cfg.AddLiquiditySelectors {
			b := common.FromHex(sel)
			if len(b) != 4 {
				return nil, fmt.Errorf("add-liquidity selector %q is not 4 bytes", sel)
			}
			reg.AddLiquiditySelectors = append(reg.AddLiquiditySelectors, b)
		}
	}
	return reg, nil
}

// CounterAssetFor resolves a token address to its configured counter asset.
func (r *Registry) CounterAssetFor(token common.Address) (domain.CounterAsset, error) {
	for _, asset := range domain.CounterAssets {
		if r.CounterTokens[asset] == token {
			return asset, nil
		}
	}
	return "", &UnknownCounterAssetError{Token: token}
}

// IsAddLiquiditySelector reports whether sel matches a known liquidity-add
// entry point.
func (r *Registry) IsAddLiquiditySelector(sel []byte) bool {
	if len(sel) != 4 {
		return false
	}
	for _, known := range r.AddLiquiditySelectors {
		if string(known) == string(sel) {
			return true
		}
	}
	return false
}
