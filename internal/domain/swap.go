package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Direction of a classified trade. The tracked asset is always on the left
// side of the pair, so "buy" means the tracked asset was bought.
type Direction string

// Trade direction constants.
const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Relevance describes the position of the tracked pool within a
// (possibly multi-hop) swap chain.
type Relevance string

// Relevance constants.
const (
	RelevanceIn      Relevance = "in"      // chain originates from the tracked asset
	RelevanceOut     Relevance = "out"     // chain terminates in the tracked asset
	RelevanceInOut   Relevance = "in+out"  // single-hop trade against the tracked pool
	RelevanceThrough Relevance = "through" // tracked pool is an intermediate hop
	RelevanceUnknown Relevance = "unknown" // no chain information available
)

// SwapRecord is a classified swap against the tracked pool.
type SwapRecord struct {
	TokenA        common.Address // tracked asset
	TokenB        common.Address // tracked pool's immediate counter asset
	Block         uint64
	InAddress     common.Address // transaction sender, never the router
	OutAddress    common.Address // effective recipient (final hop's "to")
	Direction     Direction
	TrackedChange *big.Int       // net tracked-asset amount moved
	CounterChange *big.Int       // net counter-asset amount moved
	TokenIn       common.Address // true originating asset of the chain
	TokenOut      common.Address // true terminating asset of the chain
	Relevance     Relevance
	TxHash        common.Hash
}
