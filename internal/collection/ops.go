package collection

import (
	"fmt"

	"github.com/roach88/datalib/internal/expr"
	"github.com/roach88/datalib/internal/record"
	"github.com/roach88/datalib/internal/txn"
)

// Filter keeps the rows accepted by fn. Inside a transaction the filter is
// staged; otherwise it is applied immediately.
func (c *Collection) Filter(fn txn.Filter) error {
	return c.tx.Add(fn)
}

// Where keeps the rows for which a boolean calculation such as
// "{amount} > 5" holds.
func (c *Collection) Where(expression string) error {
	fn, err := whereFilter(expression)
	if err != nil {
		return err
	}
	return c.tx.Add(fn)
}

// Group groups rows by g: each run of adjacent rows with an equal key
// becomes a child collection.
func (c *Collection) Group(g txn.Group) error {
	return c.tx.Add(g)
}

// AddColumn derives a new column with fn.
func (c *Collection) AddColumn(name string, fn txn.DeriveFunc) error {
	return c.tx.Add(txn.NewColumn{Name: name, Derive: fn})
}

// AddFormattedColumn derives a text column from a {field} template.
func (c *Collection) AddFormattedColumn(name, format string) error {
	inst, err := formattedColumn(name, format)
	if err != nil {
		return err
	}
	return c.tx.Add(inst)
}

// AddCalculatedColumn derives a column from a calculation over the row's
// fields.
func (c *Collection) AddCalculatedColumn(name, expression string) error {
	inst, err := calculatedColumn(name, expression)
	if err != nil {
		return err
	}
	return c.tx.Add(inst)
}

// Begin starts the collection's transaction.
func (c *Collection) Begin() error { return c.tx.Begin() }

// Commit commits the collection's transaction.
func (c *Collection) Commit() error { return c.tx.Commit() }

// Rollback discards whatever the transaction has staged.
func (c *Collection) Rollback() { c.tx.Rollback() }

// Transact runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when fn fails or panics; it is never left
// active.
func (c *Collection) Transact(fn func(*Collection) error) error {
	if err := c.tx.Begin(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			c.tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(c); err != nil {
		c.tx.Rollback()
		return err
	}
	return c.tx.Commit()
}

func formattedColumn(name, format string) (txn.NewColumn, error) {
	tmpl, err := expr.ParseTemplate(format)
	if err != nil {
		return txn.NewColumn{}, fmt.Errorf("formatted column %q: %w", name, err)
	}
	return txn.NewColumn{
		Name: name,
		Derive: func(row record.View, _ txn.Store) (any, error) {
			return tmpl.Render(row)
		},
	}, nil
}

func calculatedColumn(name, expression string) (txn.NewColumn, error) {
	calc, err := expr.Compile(expression)
	if err != nil {
		return txn.NewColumn{}, fmt.Errorf("calculated column %q: %w", name, err)
	}
	return txn.NewColumn{
		Name: name,
		Derive: func(row record.View, _ txn.Store) (any, error) {
			return calc.Eval(row)
		},
	}, nil
}

func whereFilter(expression string) (txn.Filter, error) {
	calc, err := expr.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return calc.Predicate, nil
}
