package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/datalib/internal/collection"
)

// LoadCollection runs query and returns its result as a named collection.
// Result columns become column names, so they must be unique. Options are
// applied as by collection.NewNamed.
//
// INTEGER values load as int and TEXT as string; REAL stays float64 and
// NULL becomes nil.
func (s *Store) LoadCollection(ctx context.Context, query string, opts ...collection.Option) (*collection.Collection, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	defer rows.Close()

	names, data, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	c, err := collection.NewNamed(names, data, opts...)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	return c, nil
}

func scanAll(rows *sql.Rows) ([]string, [][]any, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var data [][]any
	for rows.Next() {
		row := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row %d: %w", len(data), err)
		}
		for i, v := range row {
			row[i] = fromSQL(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return names, data, nil
}

func fromSQL(v any) any {
	switch val := v.(type) {
	case int64:
		return int(val)
	case []byte:
		return string(val)
	default:
		return val
	}
}
