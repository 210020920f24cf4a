package txn

import "github.com/roach88/datalib/internal/record"

// Store is the row store a Transaction commits into.
//
// The engine is the only writer while a commit runs. Rows returns the
// backing slice; the engine never mutates it in place and hands
// freshly-built slices to ReplaceAll instead.
type Store interface {
	record.Source

	Kind() record.Kind

	// Rows returns the backing rows in storage order.
	Rows() [][]any

	// Names returns the column names of a named store, nil otherwise.
	Names() []string

	// Child returns the store attached to row i, or nil.
	Child(i int) Store

	// ReplaceAll swaps the backing rows. Children are left alone.
	ReplaceAll(rows [][]any)

	// ReplaceChildren swaps the whole children mapping.
	ReplaceChildren(children map[int]Store)

	// AddName appends a column name to a named store.
	AddName(name string)

	// Factory builds an empty-childed store of the same kind (and names) from
	// rows.
	Factory(rows [][]any) Store
}
