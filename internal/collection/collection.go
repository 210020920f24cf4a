package collection

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/roach88/datalib/internal/record"
	"github.com/roach88/datalib/internal/txn"
)

var (
	// ErrIndexOutOfRange is returned by At for a row index outside the collection.
	ErrIndexOutOfRange = errors.New("row index out of range")

	// ErrRaggedRows is returned when rows do not share the collection width.
	ErrRaggedRows = errors.New("rows have inconsistent width")
)

// Collection is an ordered set of rows plus a sparse map of child
// collections produced by grouping.
//
// A Collection is either positional (New) or named (NewNamed). Every
// collection owns exactly one transaction; all mutation goes through it.
//
// INVARIANTS:
//   - At rest every row has Width() values
//   - children indices refer to the current rows
type Collection struct {
	kind     record.Kind
	names    []string
	rows     [][]any
	children map[int]txn.Store

	tx      *txn.Transaction
	txOpts  []txn.Option
	staging []txn.Instruction
	optErr  error
}

// New creates a positional collection holding copies of rows.
//
// Options stage instructions that are committed in one transaction before New
// returns; a failing commit is returned as the error.
func New(rows [][]any, opts ...Option) (*Collection, error) {
	return build(record.Positional, nil, rows, opts)
}

// NewNamed creates a collection whose rows are addressed by column name.
func NewNamed(names []string, rows [][]any, opts ...Option) (*Collection, error) {
	if names == nil {
		names = []string{}
	}
	if dup := firstDuplicate(names); dup != "" {
		return nil, fmt.Errorf("duplicate column name %q", dup)
	}
	return build(record.Named, names, rows, opts)
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(rows [][]any, opts ...Option) *Collection {
	c, err := New(rows, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// MustNewNamed is like NewNamed but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNewNamed(names []string, rows [][]any, opts ...Option) *Collection {
	c, err := NewNamed(names, rows, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func build(kind record.Kind, names []string, rows [][]any, opts []Option) (*Collection, error) {
	c := newBare(kind, names, rows)
	if err := c.checkWidth(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.optErr != nil {
		return nil, fmt.Errorf("applying collection options: %w", c.optErr)
	}
	c.tx = txn.New(c, c.txOpts...)

	if len(c.staging) == 0 {
		return c, nil
	}
	staged := c.staging
	c.staging = nil
	err := c.Transact(func(c *Collection) error {
		for _, inst := range staged {
			if err := c.tx.Stage(inst); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("applying collection options: %w", err)
	}
	return c, nil
}

func newBare(kind record.Kind, names []string, rows [][]any) *Collection {
	c := &Collection{
		kind:     kind,
		names:    slices.Clone(names),
		rows:     make([][]any, len(rows)),
		children: make(map[int]txn.Store),
	}
	for i, r := range rows {
		c.rows[i] = slices.Clone(r)
		if c.rows[i] == nil {
			c.rows[i] = []any{}
		}
	}
	return c
}

func (c *Collection) checkWidth() error {
	if len(c.rows) == 0 {
		return nil
	}
	want := len(c.rows[0])
	if c.kind == record.Named {
		want = len(c.names)
	}
	for i, r := range c.rows {
		if len(r) != want {
			return fmt.Errorf("row %d has %d values, want %d: %w", i, len(r), want, ErrRaggedRows)
		}
	}
	return nil
}

// Kind reports whether rows are positional or named.
func (c *Collection) Kind() record.Kind { return c.kind }

// Len returns the number of rows.
func (c *Collection) Len() int { return len(c.rows) }

// Width returns the number of columns.
func (c *Collection) Width() int {
	if c.kind == record.Named {
		return len(c.names)
	}
	if len(c.rows) == 0 {
		return 0
	}
	return len(c.rows[0])
}

// Names returns the column names of a named collection, nil otherwise. The
// returned slice must not be modified.
func (c *Collection) Names() []string {
	if c.kind != record.Named {
		return nil
	}
	return c.names
}

// Rows returns the backing rows. The returned slices must not be modified.
func (c *Collection) Rows() [][]any { return c.rows }

// Transaction returns the transaction bound to this collection.
func (c *Collection) Transaction() *txn.Transaction { return c.tx }

// At returns a view over row i with its children attached.
func (c *Collection) At(i int) (record.View, error) {
	if i < 0 || i >= len(c.rows) {
		return nil, fmt.Errorf("row %d of %d: %w", i, len(c.rows), ErrIndexOutOfRange)
	}
	return c.view(i), nil
}

// All yields a view per row in storage order. The sequence can be ranged
// over any number of times.
func (c *Collection) All() iter.Seq[record.View] {
	return func(yield func(record.View) bool) {
		for i := range c.rows {
			if !yield(c.view(i)) {
				return
			}
		}
	}
}

func (c *Collection) view(i int) record.View {
	var children record.Source
	if child, ok := c.children[i]; ok {
		children = child
	}
	if c.kind == record.Named {
		return record.NewNamed(c.names, c.rows[i], children)
	}
	return record.New(c.rows[i], children)
}

// Child returns the group members attached to row i, or nil.
func (c *Collection) Child(i int) txn.Store {
	if child, ok := c.children[i]; ok {
		return child
	}
	return nil
}

// Children returns the group members attached to row i as a collection.
func (c *Collection) Children(i int) *Collection {
	child, _ := c.children[i].(*Collection)
	return child
}

// ReplaceAll swaps the backing rows. Children are left alone.
func (c *Collection) ReplaceAll(rows [][]any) { c.rows = rows }

// ReplaceChildren swaps the children mapping.
func (c *Collection) ReplaceChildren(children map[int]txn.Store) {
	if children == nil {
		children = make(map[int]txn.Store)
	}
	c.children = children
}

// AddName appends a column name. Positional collections ignore it.
func (c *Collection) AddName(name string) {
	if c.kind == record.Named {
		c.names = append(c.names, name)
	}
}

// Factory builds a collection of the same kind and names from rows. The new
// collection has no children and its own transaction, configured like this
// one.
func (c *Collection) Factory(rows [][]any) txn.Store {
	return c.factory(rows)
}

func (c *Collection) factory(rows [][]any) *Collection {
	f := newBare(c.kind, c.names, rows)
	f.txOpts = c.txOpts
	f.tx = txn.New(f, f.txOpts...)
	return f
}

// Clone returns a deep copy of the rows with children attached, backed by a
// new transaction.
func (c *Collection) Clone() *Collection {
	out := c.factory(c.rows)
	for i, child := range c.children {
		if cc, ok := child.(*Collection); ok {
			out.children[i] = cc.Clone()
			continue
		}
		out.children[i] = child
	}
	return out
}

// String summarizes the collection.
func (c *Collection) String() string {
	label := "Collection"
	if c.kind == record.Named {
		label = "NamedCollection"
	}
	if len(c.rows) == 0 {
		return fmt.Sprintf("<%s Empty>", label)
	}
	return fmt.Sprintf("<%s %d rows, %d columns>", label, len(c.rows), c.Width())
}

func firstDuplicate(names []string) string {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return n
		}
		seen[n] = struct{}{}
	}
	return ""
}

var _ txn.Store = (*Collection)(nil)
