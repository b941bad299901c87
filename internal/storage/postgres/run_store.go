package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/OriginProtocol/ousd-compensation-calculation/internal/ledger"
	"github.com/OriginProtocol/ousd-compensation-calculation/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert archives a run and its rows atomically. Returns ErrDuplicateKey if
// the (start_block, end_block) range was already archived.
func (s *RunStore) Insert(ctx context.Context, startBlock, endBlock uint64, rows []ledger.Row) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO compensation_runs (start_block, end_block) VALUES ($1, $2) RETURNING id`,
		startBlock, endBlock,
	).Scan(&runID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, storage.ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert run: %w", err)
	}

	const insertRow = `
		INSERT INTO compensation_rows (
			run_id, position, address, eligible_usd, primary_comp, secondary_usd, secondary_comp
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, row := range rows {
		_, err := tx.Exec(ctx, insertRow,
			runID,
			i,
			row.Address.Hex(),
			row.Eligible.String(),
			row.Primary.String(),
			row.SecondaryUsd.String(),
			row.Secondary.String(),
		)
		if err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return runID, nil
}

// GetByRange loads an archived run with its rows in original order.
func (s *RunStore) GetByRange(ctx context.Context, startBlock, endBlock uint64) (*storage.Run, error) {
	run := &storage.Run{StartBlock: startBlock, EndBlock: endBlock}
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_at FROM compensation_runs WHERE start_block = $1 AND end_block = $2`,
		startBlock, endBlock,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query run: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT address, eligible_usd::TEXT, primary_comp::TEXT, secondary_usd::TEXT, secondary_comp::TEXT
		 FROM compensation_rows WHERE run_id = $1 ORDER BY position`,
		run.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr, eligible, primary, secondaryUsd, secondary string
		if err := rows.Scan(&addr, &eligible, &primary, &secondaryUsd, &secondary); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := ledger.Row{Address: common.HexToAddress(addr)}
		var ok bool
		if row.Eligible, ok = new(big.Int).SetString(eligible, 10); !ok {
			return nil, fmt.Errorf("corrupt eligible_usd %q for run %d", eligible, run.ID)
		}
		if row.Primary, ok = new(big.Int).SetString(primary, 10); !ok {
			return nil, fmt.Errorf("corrupt primary_comp %q for run %d", primary, run.ID)
		}
		if row.SecondaryUsd, ok = new(big.Int).SetString(secondaryUsd, 10); !ok {
			return nil, fmt.Errorf("corrupt secondary_usd %q for run %d", secondaryUsd, run.ID)
		}
		if row.Secondary, ok = new(big.Int).SetString(secondary, 10); !ok {
			return nil, fmt.Errorf("corrupt secondary_comp %q for run %d", secondary, run.ID)
		}
		run.Rows = append(run.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return run, nil
}
