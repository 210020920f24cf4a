package txn

import (
	"fmt"

	"github.com/roach88/datalib/internal/record"
)

// Instruction is a unit of deferred work staged for one phase.
// Only the instruction types in this package implement it.
type Instruction interface {
	Phase() Phase
	instruction() // Sealed
}

// Filter keeps the rows it accepts. All filters staged in one commit are
// combined with logical AND.
type Filter func(row record.View) (bool, error)

func (Filter) Phase() Phase { return PhaseFilter }
func (Filter) instruction() {}

// KeyFunc derives the grouping key of a row.
type KeyFunc func(row record.View) (any, error)

type selectorKind int

const (
	selectIndex selectorKind = iota
	selectName
	selectKey
)

// Group partitions rows by a column or by a derived key.
// Construct it with ByIndex, ByName or ByKey.
type Group struct {
	kind  selectorKind
	index int
	name  string
	key   KeyFunc
}

// ByIndex groups by the value in column i.
func ByIndex(i int) Group {
	return Group{kind: selectIndex, index: i}
}

// ByName groups by the value of the named column.
func ByName(name string) Group {
	return Group{kind: selectName, name: name}
}

// ByKey groups by the value fn derives from each row. Parent rows of a key
// group carry no values.
func ByKey(fn KeyFunc) Group {
	return Group{kind: selectKey, key: fn}
}

func (Group) Phase() Phase { return PhaseGroup }
func (Group) instruction() {}

// String describes the selector for logs.
func (g Group) String() string {
	switch g.kind {
	case selectIndex:
		return fmt.Sprintf("group(index=%d)", g.index)
	case selectName:
		return fmt.Sprintf("group(name=%q)", g.name)
	default:
		return "group(key)"
	}
}

// DeriveFunc computes the value of a new column for one row. The store is
// the collection being committed; it still has its pre-phase shape.
type DeriveFunc func(row record.View, s Store) (any, error)

// NewColumn appends a derived column to every row. Name is required for
// named stores and ignored by positional ones.
type NewColumn struct {
	Name   string
	Derive DeriveFunc
}

func (NewColumn) Phase() Phase { return PhaseNewCols }
func (NewColumn) instruction() {}

// Aggregate is staged in the aggregate phase, which has no default
// behaviour yet.
type Aggregate struct {
	Name string
	Fn   func(s Store) (any, error)
}

func (Aggregate) Phase() Phase { return PhaseAggregate }
func (Aggregate) instruction() {}

// Sort is staged in the sort phase, which has no default behaviour yet.
type Sort struct {
	Less func(a, b record.View) bool
}

func (Sort) Phase() Phase { return PhaseSort }
func (Sort) instruction() {}
