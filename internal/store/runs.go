package store

import (
	"context"
	"fmt"

	"github.com/roach88/datalib/internal/render"
	"github.com/roach88/datalib/internal/txn"
)

// runsTable holds the run history; see schema.sql.
const runsTable = "runs"

// Run is one saved pipeline output.
type Run struct {
	Seq         int64  `json:"seq"`
	Pipeline    string `json:"pipeline"`
	TxID        string `json:"tx_id"`
	OutputTable string `json:"output_table"`
	RowCount    int    `json:"row_count"`
	GroupCount  int    `json:"group_count"`
	ContentHash string `json:"content_hash"`
}

// RecordRun saves c to table and appends a Run describing it, both in the
// same database. The returned Run carries the assigned sequence number.
func (s *Store) RecordRun(ctx context.Context, pipeline, txID, table string, c txn.Store) (Run, error) {
	if err := CheckTable(table); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	hash, err := render.ContentHash(c)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	if err := s.SaveCollection(ctx, table, c); err != nil {
		return Run{}, err
	}

	run := Run{
		Pipeline:    pipeline,
		TxID:        txID,
		OutputTable: table,
		RowCount:    c.Len(),
		ContentHash: hash,
	}
	for i := range c.Len() {
		if c.Child(i) != nil {
			run.GroupCount++
		}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (pipeline, tx_id, output_table, row_count, group_count, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.Pipeline, run.TxID, run.OutputTable, run.RowCount, run.GroupCount, run.ContentHash)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	if run.Seq, err = res.LastInsertId(); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Runs lists the recorded runs for table in insertion order. An empty table
// lists every run.
func (s *Store) Runs(ctx context.Context, table string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, pipeline, tx_id, output_table, row_count, group_count, content_hash
		FROM runs
		WHERE ? = '' OR output_table = ?
		ORDER BY seq ASC
	`, table, table)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Seq, &r.Pipeline, &r.TxID, &r.OutputTable, &r.RowCount, &r.GroupCount, &r.ContentHash); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
