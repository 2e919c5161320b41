package store

import (
	"context"
	"fmt"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter manages the global monotonic sequence number shared across
// all event tables. Per-table auto-increment IDs can't order events across
// tables, so every event takes its sequence from this single-row counter.
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu      sync.Mutex
	drv     dialect.ExecQuerier
	dialect string
}

// newSequenceCounter seeds the counter row if it does not exist yet.
func newSequenceCounter(ctx context.Context, drv *entsql.Driver) (*sequenceCounter, error) {
	query, args := entsql.Dialect(drv.Dialect()).
		Insert(GlobalSequenceTable.Name).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{drv: drv, dialect: drv.Dialect()}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	query, args := entsql.Dialect(sc.dialect).
		Update(GlobalSequenceTable.Name).
		Set("next_val", entsql.Expr("next_val + 1")).
		Where(entsql.EQ("id", 1)).
		Returning("next_val").
		Query()

	rows := &entsql.Rows{}
	if err := sc.drv.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		return 0, fmt.Errorf("next sequence: counter row missing")
	}
	var next int64
	if err := rows.Scan(&next); err != nil {
		return 0, fmt.Errorf("scan sequence: %w", err)
	}
	return next - 1, nil
}
