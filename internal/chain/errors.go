package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PairNotFoundError is returned when a factory has no pool for the requested
// token pair. Reported distinctly from conservation failures so a missing
// deployment is never confused with a broken reconciliation.
type PairNotFoundError struct {
	Factory common.Address
	TokenA  common.Address
	TokenB  common.Address
}

func (e *PairNotFoundError) Error() string {
	return fmt.Sprintf("unable to find pair %s-%s on factory %s",
		e.TokenA.Hex(), e.TokenB.Hex(), e.Factory.Hex())
}

// StakingPoolNotFoundError is returned when a staking contract has no pool
// registered for an LP token.
type StakingPoolNotFoundError struct {
	Staking common.Address
	LPToken common.Address
}

func (e *StakingPoolNotFoundError) Error() string {
	return fmt.Sprintf("could not find relevant staking pool for pair %s on %s",
		e.LPToken.Hex(), e.Staking.Hex())
}
