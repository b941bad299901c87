package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Typed event records for the event kinds the reconciliation consumes.
// Each carries only the fields the pipeline reads, already decoded.

// MintEvent is a liquidity-add (Mint/Deposited) event on a pool.
// Sender is the logged sender, which for router-mediated deposits is the
// router contract, not the depositor.
type MintEvent struct {
	Pair   common.Address
	Sender common.Address
	TxHash common.Hash
	Block  uint64
}

// TransferEvent is an LP share token transfer.
type TransferEvent struct {
	Pair   common.Address
	From   common.Address
	To     common.Address
	TxHash common.Hash
	Block  uint64
}

// StakeEvent is a Staked event on a geyser contract.
type StakeEvent struct {
	Contract common.Address
	User     common.Address
	TxHash   common.Hash
	Block    uint64
}

// SwapEvent is a raw pool Swap event before classification.
type SwapEvent struct {
	Pair       common.Address
	Amount0In  *big.Int
	Amount1In  *big.Int
	Amount0Out *big.Int
	Amount1Out *big.Int
	To         common.Address
	TxHash     common.Hash
	Block      uint64
	LogIndex   uint
}

// Transaction carries the transaction fields the pipeline reads.
type Transaction struct {
	Hash  common.Hash
	From  common.Address
	Input []byte
}

// Receipt carries the receipt fields the pipeline reads.
type Receipt struct {
	TxHash common.Hash
	From   common.Address
	Status uint64 // 1 = success
}

// InputSelector returns the 4-byte call selector of the transaction input,
// or nil when the input is shorter than a selector.
func (t *Transaction) InputSelector() []byte {
	if len(t.Input) < 4 {
		return nil
	}
	return t.Input[:4]
}
