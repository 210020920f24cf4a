package txn

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"testing"

	"github.com/roach88/datalib/internal/record"
	"github.com/roach88/datalib/internal/testutil"
)

// memStore is a minimal Store used to exercise the engine without the
// collection package.
type memStore struct {
	names    []string
	rows     [][]any
	children map[int]Store
}

func newMem(rows ...[]any) *memStore {
	return &memStore{rows: rows, children: map[int]Store{}}
}

func newNamedMem(names []string, rows ...[]any) *memStore {
	return &memStore{names: names, rows: rows, children: map[int]Store{}}
}

func (m *memStore) Kind() record.Kind {
	if m.names != nil {
		return record.Named
	}
	return record.Positional
}

func (m *memStore) Len() int        { return len(m.rows) }
func (m *memStore) Rows() [][]any   { return m.rows }
func (m *memStore) Names() []string { return m.names }

func (m *memStore) At(i int) (record.View, error) {
	if i < 0 || i >= len(m.rows) {
		return nil, fmt.Errorf("row %d: out of range", i)
	}
	var children record.Source
	if c, ok := m.children[i]; ok {
		children = c
	}
	if m.names != nil {
		return record.NewNamed(m.names, m.rows[i], children), nil
	}
	return record.New(m.rows[i], children), nil
}

func (m *memStore) All() iter.Seq[record.View] {
	return func(yield func(record.View) bool) {
		for i := range m.rows {
			v, _ := m.At(i)
			if !yield(v) {
				return
			}
		}
	}
}

func (m *memStore) Child(i int) Store {
	if c, ok := m.children[i]; ok {
		return c
	}
	return nil
}

func (m *memStore) ReplaceAll(rows [][]any)                { m.rows = rows }
func (m *memStore) ReplaceChildren(children map[int]Store) { m.children = children }
func (m *memStore) AddName(name string)                    { m.names = append(m.names, name) }

func (m *memStore) Factory(rows [][]any) Store {
	return &memStore{names: append([]string(nil), m.names...), rows: rows, children: map[int]Store{}}
}

// newTx creates a transaction with deterministic IDs and a captured log.
func newTx(t *testing.T, s Store) (*Transaction, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(s, WithLogger(logger), WithIDGenerator(testutil.NewSequenceGenerator("tx"))), &buf
}

func constant(v any) DeriveFunc {
	return func(record.View, Store) (any, error) { return v, nil }
}
