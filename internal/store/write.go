package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/datalib/internal/record"
	"github.com/roach88/datalib/internal/render"
	"github.com/roach88/datalib/internal/txn"
)

// membersSuffix names the table holding group members of a saved table.
const membersSuffix = "_members"

// groupRowColumn links a member row to its parent row.
const groupRowColumn = "group_row"

// ErrReservedTable is returned when an output table would replace the run
// history or an SQLite internal table.
var ErrReservedTable = errors.New("reserved table name")

// CheckTable reports whether table can receive a saved collection. The run
// history tables and names with the sqlite_ prefix are reserved; SQLite
// compares identifiers case-insensitively, so the check does too.
func CheckTable(table string) error {
	if table == "" {
		return errors.New("table name is required")
	}
	name := strings.ToLower(table)
	if name == runsTable || name == runsTable+membersSuffix || strings.HasPrefix(name, "sqlite_") {
		return fmt.Errorf("table %q: %w", table, ErrReservedTable)
	}
	return nil
}

// SaveCollection writes c to table, replacing any previous contents. Column
// names are the collection's names, or c0, c1, ... for positional
// collections. Children are written to table+"_members" with an extra
// group_row column holding the parent's row index. Members' own children are
// not saved.
//
// Lists and structs are stored as canonical JSON text. The whole save is
// one SQL transaction.
func (s *Store) SaveCollection(ctx context.Context, table string, c txn.Store) error {
	if err := CheckTable(table); err != nil {
		return fmt.Errorf("save collection: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save collection: %w", err)
	}
	defer tx.Rollback()

	if err := saveLevel(ctx, tx, table, c); err != nil {
		return fmt.Errorf("save collection %q: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save collection: %w", err)
	}
	return nil
}

func saveLevel(ctx context.Context, tx *sql.Tx, table string, c txn.Store) error {
	cols := columnNames(c)
	if err := recreate(ctx, tx, table, cols); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, table, cols, c.Rows(), nil); err != nil {
		return err
	}

	members, ok := memberColumns(c)
	if !ok {
		return dropTables(ctx, tx, table+membersSuffix)
	}

	child := table + membersSuffix
	if err := recreate(ctx, tx, child, members); err != nil {
		return err
	}
	for i := range c.Len() {
		m := c.Child(i)
		if m == nil {
			continue
		}
		if err := insertRows(ctx, tx, child, members, m.Rows(), i); err != nil {
			return err
		}
	}
	return nil
}

// memberColumns returns group_row plus the member columns of the first
// child, and false when c has no children.
func memberColumns(c txn.Store) ([]string, bool) {
	for i := range c.Len() {
		if m := c.Child(i); m != nil {
			return append([]string{groupRowColumn}, columnNames(m)...), true
		}
	}
	return nil, false
}

func columnNames(c txn.Store) []string {
	if c.Kind() == record.Named {
		return c.Names()
	}
	width := 0
	if rows := c.Rows(); len(rows) > 0 {
		width = len(rows[0])
	}
	cols := make([]string, width)
	for i := range cols {
		cols[i] = "c" + strconv.Itoa(i)
	}
	return cols
}

func recreate(ctx context.Context, tx *sql.Tx, table string, cols []string) error {
	if err := dropTables(ctx, tx, table); err != nil {
		return err
	}
	if len(cols) == 0 {
		// SQLite tables need at least one column.
		cols = []string{"_"}
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(quoted, ", "))
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func dropTables(ctx context.Context, tx *sql.Tx, tables ...string) error {
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(t)); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}

// insertRows inserts rows; a non-nil groupRow is prepended to every row.
func insertRows(ctx context.Context, tx *sql.Tx, table string, cols []string, rows [][]any, groupRow any) error {
	if len(rows) == 0 || len(cols) == 0 {
		return nil
	}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		args := make([]any, 0, len(cols))
		if groupRow != nil {
			args = append(args, groupRow)
		}
		for _, v := range row {
			sv, err := toSQL(v)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			args = append(args, sv)
		}
		if len(args) != len(cols) {
			return fmt.Errorf("row %d has %d values, table has %d columns", i, len(args), len(cols))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return nil
}

func toSQL(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, string, []byte, int, int8, int16, int32, int64, uint8, uint16, uint32, float32, float64:
		return val, nil
	case []any, map[string]any:
		data, err := render.MarshalCanonical(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return record.FormatCell(val), nil
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
