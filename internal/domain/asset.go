package domain

// CounterAsset identifies one of the supported counter assets a tracked-asset
// pool can be paired with.
type CounterAsset string

// Supported counter assets.
const (
	AssetUSDT CounterAsset = "USDT"
	AssetUSDC CounterAsset = "USDC"
	AssetWETH CounterAsset = "WETH"
)

// CounterAssets lists the supported counter assets in a fixed order.
var CounterAssets = []CounterAsset{AssetUSDT, AssetUSDC, AssetWETH}
