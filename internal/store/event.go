package store

import (
	"context"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter allocates the global sequence shared by LLM events and
// assessments, so the model calls behind an assessment are the events
// whose sequence precedes it. A sequence taken by a rolled-back append is
// skipped, never reused.
type sequenceCounter struct {
	mu  sync.Mutex
	drv *entsql.Driver
}

const (
	sequenceDDL  = `CREATE TABLE IF NOT EXISTS global_sequence (id INTEGER PRIMARY KEY CHECK (id = 1), next_val INTEGER NOT NULL)`
	sequenceSeed = `INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`
	sequenceNext = `UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`
)

// Next returns the next sequence number.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var rows entsql.Rows
	if err := sc.drv.Query(ctx, sequenceNext, []any{}, &rows); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		return 0, fmt.Errorf("next sequence: counter row missing")
	}
	var seq int64
	if err := rows.Scan(&seq); err != nil {
		return 0, fmt.Errorf("scan sequence: %w", err)
	}
	return seq, rows.Err()
}
