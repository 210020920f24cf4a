// Package collection provides the row store: an ordered list of rows, either
// positional or named, plus child collections attached by grouping.
//
// Every Collection owns a txn.Transaction. Mutating calls (Filter, Where,
// Group, AddColumn, AddFormattedColumn, AddCalculatedColumn) stage an
// instruction while a transaction is active and apply it on their own
// otherwise:
//
//	c := collection.MustNewNamed([]string{"a", "b"}, rows)
//	err := c.Transact(func(c *collection.Collection) error {
//		if err := c.Where("{c} > 5"); err != nil {
//			return err
//		}
//		return c.AddCalculatedColumn("c", "{a} + {b}")
//	})
//
// The filter refers to a column derived in the same transaction; the commit
// retries it once the column exists.
package collection
