package collection

import (
	"github.com/roach88/datalib/internal/txn"
)

// Option configures a Collection at construction.
//
// Options that change data stage an instruction; New and NewNamed commit all
// of them in a single transaction, so their order does not matter.
type Option func(*Collection)

// WithTransactionOptions configures the collection's transaction (logger, ID
// generator). Collections built by Factory inherit them.
func WithTransactionOptions(opts ...txn.Option) Option {
	return func(c *Collection) {
		c.txOpts = append(c.txOpts, opts...)
	}
}

// WithFilter keeps the rows accepted by fn.
func WithFilter(fn txn.Filter) Option {
	return stage(fn)
}

// WithGroup groups rows by g. Only one grouping applies per commit.
func WithGroup(g txn.Group) Option {
	return stage(g)
}

// WithWhere keeps the rows for which a boolean calculation holds.
func WithWhere(expression string) Option {
	return func(c *Collection) {
		fn, err := whereFilter(expression)
		c.stageOption(fn, err)
	}
}

// WithColumn derives a new column with fn.
func WithColumn(name string, fn txn.DeriveFunc) Option {
	return stage(txn.NewColumn{Name: name, Derive: fn})
}

// WithFormattedColumn derives a text column from a {field} template.
func WithFormattedColumn(name, format string) Option {
	return func(c *Collection) {
		inst, err := formattedColumn(name, format)
		c.stageOption(inst, err)
	}
}

// WithCalculatedColumn derives a column from a calculation such as
// "{price} * {qty}".
func WithCalculatedColumn(name, expression string) Option {
	return func(c *Collection) {
		inst, err := calculatedColumn(name, expression)
		c.stageOption(inst, err)
	}
}

func stage(inst txn.Instruction) Option {
	return func(c *Collection) {
		c.stageOption(inst, nil)
	}
}

// stageOption records the first option error; build reports it before
// anything is committed.
func (c *Collection) stageOption(inst txn.Instruction, err error) {
	if c.optErr != nil {
		return
	}
	if err != nil {
		c.optErr = err
		return
	}
	c.staging = append(c.staging, inst)
}
