package domain

import (
	"fmt"
	"math/big"
)

// ConservationError reports a reconciled sum that fails to match on-chain
// ground truth. It always carries the specific numeric mismatch for forensic
// review; nothing is silently corrected, and a violation invalidates the
// entire batch that produced it.
type ConservationError struct {
	Quantity  string   // what failed to reconcile
	Expected  *big.Int // on-chain ground truth
	Computed  *big.Int // reconciled sum
	Tolerance *big.Int // maximum acceptable discrepancy, zero for exact checks
}

func (e *ConservationError) Error() string {
	if e.Tolerance == nil || e.Tolerance.Sign() == 0 {
		return fmt.Sprintf("conservation violation: %s: expected %s, computed %s",
			e.Quantity, e.Expected, e.Computed)
	}
	return fmt.Sprintf("conservation violation: %s: expected %s, computed %s (tolerance %s)",
		e.Quantity, e.Expected, e.Computed, e.Tolerance)
}
