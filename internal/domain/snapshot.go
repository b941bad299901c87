package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolSnapshot is the frozen state of an AMM pool at a block. TokenA is the
// pool's token0 and TokenB its token1; for pools without a reserve accessor
// the reserves are the pool's raw token balances.
type PoolSnapshot struct {
	Pair        common.Address
	TokenA      common.Address
	TokenB      common.Address
	TotalSupply *big.Int
	ReserveA    *big.Int
	ReserveB    *big.Int
	Block       uint64
}

// BalanceRecord is one address's tracked-asset balance at a snapshot block.
type BalanceRecord struct {
	Address    common.Address
	Balance    *big.Int
	IsContract bool
}

// OwnershipRecord is one holder's attributed claim on a pool's reserves.
type OwnershipRecord struct {
	TokenA       common.Address
	TokenB       common.Address
	Holder       common.Address
	ShareBalance *big.Int // direct LP balance plus staked balance
	AttributedA  *big.Int
	AttributedB  *big.Int
}

// StakingRecord is one staker's reconciled geyser position.
type StakingRecord struct {
	Holder                 common.Address
	CreditBalance          *big.Int
	DerivedBalance         *big.Int // credits converted via credits-per-token
	AdjustedDerivedBalance *big.Int // proportional share of the known balance
}
