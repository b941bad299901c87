// Package storage defines the run-archive contract. A finished compensation
// run is archived once, keyed by its block range, and never amended.
package storage

import (
	"context"
	"time"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/ledger"
)

// Run is an archived compensation run.
type Run struct {
	ID         int64
	StartBlock uint64
	EndBlock   uint64
	CreatedAt  time.Time
	Rows       []ledger.Row
}

// RunStore archives finished compensation runs.
type RunStore interface {
	// Insert archives a run with its rows atomically. A run for the same
	// (startBlock, endBlock) returns ErrDuplicateKey.
	Insert(ctx context.Context, startBlock, endBlock uint64, rows []ledger.Row) (int64, error)

	// GetByRange loads an archived run. Returns ErrNotFound when the block
	// range was never archived.
	GetByRange(ctx context.Context, startBlock, endBlock uint64) (*Run, error)
}
